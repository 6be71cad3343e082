package builtins

import (
	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

// registerStackMeta wires the forth-ish stack primitives (spec §4.3/§4.6
// "Stack meta"). dup/swap/drop/over/rot/depth are the conventional
// arity-fixed forms; dig/pick and bury/roll generalize over/rot to an
// arbitrary depth, and dip/tap run a Block with different stack-hiding
// disciplines.
func registerStackMeta(r *Registry) {
	r.stack("dup", func(h Host) error {
		v, err := h.Pop("dup")
		if err != nil {
			return err
		}
		h.Push(v)
		h.Push(v)
		return nil
	})
	r.stack("swap", func(h Host) error {
		vs, err := h.PopN("swap", 2)
		if err != nil {
			return err
		}
		h.Push(vs[1])
		h.Push(vs[0])
		return nil
	})
	r.stack("drop", func(h Host) error {
		_, err := h.Pop("drop")
		return err
	})
	r.stack("over", func(h Host) error {
		vs, err := h.PopN("over", 2)
		if err != nil {
			return err
		}
		h.Push(vs[0])
		h.Push(vs[1])
		h.Push(vs[0])
		return nil
	})
	r.stack("rot", func(h Host) error {
		vs, err := h.PopN("rot", 3)
		if err != nil {
			return err
		}
		h.Push(vs[1])
		h.Push(vs[2])
		h.Push(vs[0])
		return nil
	})
	r.stack("depth", func(h Host) error {
		h.Push(value.Number(float64(h.Depth())))
		return nil
	})

	// dig/pick: pick copies the Nth-from-top item without disturbing the
	// rest; dig removes it and moves it to the top.
	r.stack("pick", func(h Host) error {
		n, err := popIndex(h, "pick")
		if err != nil {
			return err
		}
		v, ok := h.Peek(n)
		if !ok {
			return errtype.StackUnderflow("pick")
		}
		h.Push(v)
		return nil
	})
	r.stack("dig", func(h Host) error {
		n, err := popIndex(h, "dig")
		if err != nil {
			return err
		}
		all := h.All()
		idx := len(all) - 1 - n
		if idx < 0 || idx >= len(all) {
			return errtype.StackUnderflow("dig")
		}
		v := all[idx]
		rest := append(append([]value.Value(nil), all[:idx]...), all[idx+1:]...)
		h.Replace(rest)
		h.Push(v)
		return nil
	})

	// bury/roll: bury moves the top item down N places; roll rotates the
	// top N+1 items so the bottom of that window comes to the top.
	r.stack("bury", func(h Host) error {
		n, err := popIndex(h, "bury")
		if err != nil {
			return err
		}
		top, err := h.Pop("bury")
		if err != nil {
			return err
		}
		all := h.All()
		idx := len(all) - n
		if idx < 0 {
			idx = 0
		}
		out := append(append(append([]value.Value(nil), all[:idx]...), top), all[idx:]...)
		h.Replace(out)
		return nil
	})
	r.stack("roll", func(h Host) error {
		n, err := popIndex(h, "roll")
		if err != nil {
			return err
		}
		vs, err := h.PopN("roll", n+1)
		if err != nil {
			return err
		}
		out := append(append([]value.Value(nil), vs[1:]...), vs[0])
		for _, v := range out {
			h.Push(v)
		}
		return nil
	})

	r.stack("dip", func(h Host) error {
		block, err := h.Pop("dip")
		if err != nil {
			return err
		}
		hidden, err := h.Pop("dip")
		if err != nil {
			return err
		}
		if block.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(block))
		}
		if _, err := h.RunBlock(block.Exprs()); err != nil {
			return err
		}
		h.Push(hidden)
		return nil
	})

	r.stack("tap", func(h Host) error {
		block, err := h.Pop("tap")
		if err != nil {
			return err
		}
		if block.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(block))
		}
		before := h.All()
		if _, err := h.RunBlock(block.Exprs()); err != nil {
			return err
		}
		newTop, hasNewTop := h.Peek(0)
		if len(before) > 0 {
			before = before[:len(before)-1]
		}
		h.Replace(before)
		if hasNewTop {
			h.Push(newTop)
		}
		return nil
	})
}

func popIndex(h Host, op string) (int, error) {
	v, err := h.Pop(op)
	if err != nil {
		return 0, err
	}
	if v.Tag != value.TagNumber {
		return 0, errtype.TypeMismatch("Number", value.TypeOf(v))
	}
	return int(v.Num()), nil
}

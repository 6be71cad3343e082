// Combinators (spec §4.6). fanout/zip/cross operate on Lists/Blocks the
// way tables.go's row ops do; retry/retry-delay delegate to
// pkg/concurrency.Retry, the same sleep-and-reattempt loop future-based
// retries use, so both code paths share one backoff implementation.
package builtins

import (
	"time"

	"github.com/hsab-shell/hsab/pkg/concurrency"
	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func registerCombinators(r *Registry) {
	// fanout: `value [block] fanout` runs block against value, pushing
	// whatever the block leaves on top (Nil if it left nothing) — the
	// liberal, non-unit-arity contract spec.md instructs implementers to
	// preserve verbatim.
	r.stack("fanout", func(h Host) error {
		block, err := h.Pop("fanout")
		if err != nil {
			return err
		}
		if block.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(block))
		}
		input, err := h.Pop("fanout")
		if err != nil {
			return err
		}
		before := h.All()
		h.Push(input)
		if _, err := h.RunBlock(block.Exprs()); err != nil {
			return err
		}
		result, ok := h.Peek(0)
		h.Replace(before)
		if ok {
			h.Push(result)
		} else {
			h.Push(value.Nil())
		}
		return nil
	})

	r.stack("zip", func(h Host) error {
		b, err := h.Pop("zip")
		if err != nil {
			return err
		}
		a, err := h.Pop("zip")
		if err != nil {
			return err
		}
		if a.Tag != value.TagList || b.Tag != value.TagList {
			return errtype.TypeMismatch("List", value.TypeOf(a))
		}
		al, bl := a.List(), b.List()
		n := len(al)
		if len(bl) < n {
			n = len(bl)
		}
		pairs := make([]value.Value, n)
		for i := 0; i < n; i++ {
			pairs[i] = value.List([]value.Value{al[i], bl[i]})
		}
		h.Push(value.List(pairs))
		return nil
	})

	r.stack("cross", func(h Host) error {
		b, err := h.Pop("cross")
		if err != nil {
			return err
		}
		a, err := h.Pop("cross")
		if err != nil {
			return err
		}
		if a.Tag != value.TagList || b.Tag != value.TagList {
			return errtype.TypeMismatch("List", value.TypeOf(a))
		}
		var out []value.Value
		for _, av := range a.List() {
			for _, bv := range b.List() {
				out = append(out, value.List([]value.Value{av, bv}))
			}
		}
		h.Push(value.List(out))
		return nil
	})

	r.stack("compose", func(h Host) error {
		g, err := h.Pop("compose")
		if err != nil {
			return err
		}
		f, err := h.Pop("compose")
		if err != nil {
			return err
		}
		if f.Tag != value.TagBlock || g.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(f))
		}
		composed := append(append([]value.Expr(nil), f.Exprs()...), g.Exprs()...)
		h.Push(value.Block(composed))
		return nil
	})

	r.stack("retry", func(h Host) error {
		n, err := popIndex(h, "retry")
		if err != nil {
			return err
		}
		block, err := h.Pop("retry")
		if err != nil {
			return err
		}
		if block.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(block))
		}
		return runRetry(h, block, n, 100*time.Millisecond)
	})

	r.stack("retry-delay", func(h Host) error {
		ms, err := popIndex(h, "retry-delay")
		if err != nil {
			return err
		}
		n, err := popIndex(h, "retry-delay")
		if err != nil {
			return err
		}
		block, err := h.Pop("retry-delay")
		if err != nil {
			return err
		}
		if block.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(block))
		}
		return runRetry(h, block, n, time.Duration(ms)*time.Millisecond)
	})
}

func runRetry(h Host, block value.Value, attempts int, delay time.Duration) error {
	return concurrency.Retry(attempts, delay, func() (int, error) {
		code, err := h.RunBlock(block.Exprs())
		if err != nil {
			return code, err
		}
		if code != 0 {
			return code, errtype.Exec("retry attempt exited non-zero")
		}
		return code, nil
	})
}

// List operations (spec C6): spread/marker/each/collect/keep/map/filter.
// Every one of these works by scanning the stack back to the nearest
// Marker Value, the same group-delimiter idiom the `record` and `table`
// builtins use for a "run of values belonging together". Grounded on
// original_source/src/eval/list.rs's list_spread/list_each/list_collect/
// list_keep (map/filter are literally each+collect and keep+collect
// there too).
package builtins

import (
	"strings"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func registerListOps(r *Registry) {
	r.stack("spread", listSpread)
	r.stack("marker", listMarker)
	r.stack("each", listEach)
	r.stack("collect", listCollect)
	r.stack("keep", listKeep)
	r.stack("map", listMap)
	r.stack("filter", listFilter)
}

func isBreakLoop(err error) bool {
	ee, ok := err.(*errtype.EvalError)
	return ok && ee.Kind == errtype.KindBreakLoop
}

// popToMarker pops values down to (and removing) the nearest Marker,
// returning them in their original push order. A stack that runs out
// before a Marker turns up is a plain stack-underflow error.
func popToMarker(h Host, op string) ([]value.Value, error) {
	var reversed []value.Value
	for {
		v, err := h.Pop(op)
		if err != nil {
			return nil, err
		}
		if v.Tag == value.TagMarker {
			break
		}
		reversed = append(reversed, v)
	}
	items := make([]value.Value, len(reversed))
	for i, v := range reversed {
		items[len(reversed)-1-i] = v
	}
	return items, nil
}

// listMarker pushes a bare Marker, the stack separator each/collect/keep
// scan back to.
func listMarker(h Host) error {
	h.Push(value.Marker())
	return nil
}

// listSpread pops a container and pushes a Marker followed by its
// elements: a List's items in order, a Map's values, or (anything else)
// its string form split into non-empty lines.
func listSpread(h Host) error {
	v, err := h.Pop("spread")
	if err != nil {
		return err
	}
	h.Push(value.Marker())
	switch v.Tag {
	case value.TagList:
		for _, item := range v.List() {
			h.Push(item)
		}
	case value.TagMap:
		for _, k := range v.MapKeys() {
			mv, _ := v.MapGet(k)
			h.Push(mv)
		}
	default:
		for _, line := range strings.Split(v.AsArg(), "\n") {
			if line == "" {
				continue
			}
			h.Push(value.Literal(line))
		}
	}
	return nil
}

// listEach pops a Block and runs it once per item back to the nearest
// Marker, pushing each item before running the block. A break inside the
// block ends the loop early rather than propagating.
func listEach(h Host) error {
	block, err := h.Pop("each")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	items, err := popToMarker(h, "each")
	if err != nil {
		return err
	}
	for _, item := range items {
		h.Push(item)
		if _, err := h.RunBlock(block.Exprs()); err != nil {
			if isBreakLoop(err) {
				break
			}
			return err
		}
	}
	return nil
}

// listCollect folds everything back to the nearest Marker into one
// newline-joined Output, silently skipping items that don't coerce to a
// string (Blocks, Tables, Maps, Futures, Markers). An empty fold pushes
// Nil rather than an empty Output.
func listCollect(h Host) error {
	items, err := popToMarker(h, "collect")
	if err != nil {
		return err
	}
	var lines []string
	for _, item := range items {
		if !item.Coercible() {
			continue
		}
		lines = append(lines, item.AsArg())
	}
	joined := strings.Join(lines, "\n")
	if joined == "" {
		h.Push(value.Nil())
		return nil
	}
	h.Push(value.Output(joined))
	return nil
}

// listKeep pops a predicate Block and, for each item back to the nearest
// Marker, runs it in a disposable frame of its own (a temporary Marker
// the predicate's residue is discarded down to) and keeps the item iff
// the predicate's exit code was zero. Survivors are pushed back behind a
// fresh Marker in their original order.
func listKeep(h Host) error {
	pred, err := h.Pop("keep")
	if err != nil {
		return err
	}
	if pred.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(pred))
	}
	items, err := popToMarker(h, "keep")
	if err != nil {
		return err
	}
	var kept []value.Value
	for _, item := range items {
		h.Push(value.Marker())
		h.Push(item)
		if _, err := h.RunBlock(pred.Exprs()); err != nil {
			return err
		}
		if _, err := popToMarker(h, "keep"); err != nil {
			return err
		}
		if h.ExitCode() == 0 {
			kept = append(kept, item)
		}
	}
	h.Push(value.Marker())
	for _, item := range kept {
		h.Push(item)
	}
	return nil
}

// listMap is each followed by collect.
func listMap(h Host) error {
	if err := listEach(h); err != nil {
		return err
	}
	return listCollect(h)
}

// listFilter is keep followed by collect.
func listFilter(h Host) error {
	if err := listKeep(h); err != nil {
		return err
	}
	return listCollect(h)
}

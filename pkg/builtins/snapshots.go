// Snapshots (spec §4.6) plus the SPEC_FULL-supplemented snapshot-diff,
// grounded on the teacher's pkg/cheatsheet/validate.go use of
// github.com/pmezard/go-difflib for unified-diff text comparison.
package builtins

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/hsab-shell/hsab/pkg/value"
)

func registerSnapshots(r *Registry) {
	// snapshot takes its name from the first popped value, coerced via AsArg.
	r.stack("snapshot", func(h Host) error {
		name, err := h.Pop("snapshot")
		if err != nil {
			return err
		}
		h.SaveSnapshot(name.AsArg())
		return nil
	})
	r.stack("snapshot-restore", func(h Host) error {
		name, err := h.Pop("snapshot-restore")
		if err != nil {
			return err
		}
		pushBool(h, h.RestoreSnapshot(name.AsArg()))
		return nil
	})
	r.stack("snapshot-list", func(h Host) error {
		names := h.ListSnapshots()
		items := make([]value.Value, len(names))
		for i, n := range names {
			items[i] = value.Literal(n)
		}
		h.Push(value.List(items))
		return nil
	})
	r.stack("snapshot-delete", func(h Host) error {
		name, err := h.Pop("snapshot-delete")
		if err != nil {
			return err
		}
		pushBool(h, h.DeleteSnapshot(name.AsArg()))
		return nil
	})
	r.stack("snapshot-clear", func(h Host) error {
		h.ClearSnapshots()
		return nil
	})

	r.stack("snapshot-diff", func(h Host) error {
		name, err := h.Pop("snapshot-diff")
		if err != nil {
			return err
		}
		before, ok := h.SnapshotValues(name.AsArg())
		if !ok {
			h.Push(value.Literal(""))
			return nil
		}
		after := h.All()
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(renderStack(before)),
			B:        difflib.SplitLines(renderStack(after)),
			FromFile: name.AsArg(),
			ToFile:   "current",
			Context:  1,
		})
		if err != nil {
			return err
		}
		h.Push(value.Literal(diff))
		return nil
	})
}

func renderStack(vs []value.Value) string {
	out := ""
	for _, v := range vs {
		out += fmt.Sprintf("%s: %s\n", value.TypeOf(v), v.AsArg())
	}
	return out
}

// Error handling (spec §4.6/C13). try runs a Block and converts any error
// it raises into a pushed Error Value instead of propagating; throw raises
// one. Grounded on pkg/errtype's EvalError taxonomy (already the
// evaluator's own error currency) rather than inventing a parallel one.
package builtins

import (
	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func registerErrorHandling(r *Registry) {
	r.stack("try", func(h Host) error {
		block, err := h.Pop("try")
		if err != nil {
			return err
		}
		if block.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(block))
		}
		before := h.All()
		_, runErr := h.RunBlock(block.Exprs())
		if runErr == nil {
			return nil
		}
		msg := runErr.Error()
		kind := "ExecError"
		if ee, ok := runErr.(*errtype.EvalError); ok {
			kind = string(ee.Kind)
			if ee.Message != "" {
				msg = ee.Message
			}
		}
		h.Replace(before)
		h.Push(value.ErrorVal(value.ErrorValue{Kind: kind, Message: msg}))
		h.SetExitCode(1)
		return nil
	})

	// throw is self-handling: it pushes the Error Value and sets the exit
	// code directly rather than aborting evaluation (spec §4.6).
	r.stack("throw", func(h Host) error {
		v, err := h.Pop("throw")
		if err != nil {
			return err
		}
		h.Push(value.ErrorVal(value.ErrorValue{Kind: "thrown", Message: v.AsArg()}))
		h.SetExitCode(1)
		return nil
	})
}

// Type introspection (spec §4.6, §8 "typeof is total").
package builtins

import "github.com/hsab-shell/hsab/pkg/value"

func registerTypeInfo(r *Registry) {
	r.stack("typeof", func(h Host) error {
		v, err := h.Pop("typeof")
		if err != nil {
			return err
		}
		h.Push(value.Literal(value.TypeOf(v)))
		return nil
	})
}

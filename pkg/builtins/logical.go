package builtins

func registerLogical(r *Registry) {
	r.stack("not", func(h Host) error {
		v, err := h.Pop("not")
		if err != nil {
			return err
		}
		pushBool(h, !v.Truthy())
		return nil
	})
	r.stack("xor", func(h Host) error {
		b, err := h.Pop("xor")
		if err != nil {
			return err
		}
		a, err := h.Pop("xor")
		if err != nil {
			return err
		}
		pushBool(h, a.Truthy() != b.Truthy())
		return nil
	})
	r.stack("nand", func(h Host) error {
		b, err := h.Pop("nand")
		if err != nil {
			return err
		}
		a, err := h.Pop("nand")
		if err != nil {
			return err
		}
		pushBool(h, !(a.Truthy() && b.Truthy()))
		return nil
	})
	r.stack("nor", func(h Host) error {
		b, err := h.Pop("nor")
		if err != nil {
			return err
		}
		a, err := h.Pop("nor")
		if err != nil {
			return err
		}
		pushBool(h, !(a.Truthy() || b.Truthy()))
		return nil
	})
}

// BigInt (spec §4.6). Non-negative arbitrary-precision integers backed by
// math/big — the one domain in this package where stdlib is the idiomatic
// ecosystem choice (DESIGN.md: no repo in the pack reaches for a
// third-party bigint library).
package builtins

import (
	"math/big"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func popBigInt(h Host, op string) (*big.Int, error) {
	v, err := h.Pop(op)
	if err != nil {
		return nil, err
	}
	switch v.Tag {
	case value.TagBigInt:
		return v.BigInt(), nil
	case value.TagNumber:
		bi := new(big.Int)
		big.NewFloat(v.Num()).Int(bi)
		return bi, nil
	case value.TagLiteral, value.TagOutput:
		bi, ok := new(big.Int).SetString(v.AsArg(), 10)
		if !ok {
			return nil, errtype.Exec("not a valid integer: " + v.AsArg())
		}
		return bi, nil
	default:
		return nil, errtype.TypeMismatch("BigInt, Number, or Literal", value.TypeOf(v))
	}
}

func requireNonNegative(n *big.Int, op string) error {
	if n.Sign() < 0 {
		return errtype.Exec(op + ": negative BigInt is not supported")
	}
	return nil
}

func binaryBigIntOp(name string, f func(z, a, b *big.Int) *big.Int) StackFn {
	return func(h Host) error {
		b, err := popBigInt(h, name)
		if err != nil {
			return err
		}
		a, err := popBigInt(h, name)
		if err != nil {
			return err
		}
		if err := requireNonNegative(a, name); err != nil {
			return err
		}
		if err := requireNonNegative(b, name); err != nil {
			return err
		}
		z := new(big.Int)
		f(z, a, b)
		if err := requireNonNegative(z, name); err != nil {
			return err
		}
		h.Push(value.BigInt(z))
		return nil
	}
}

func registerBigInt(r *Registry) {
	r.stack("to-bigint", func(h Host) error {
		n, err := popBigInt(h, "to-bigint")
		if err != nil {
			return err
		}
		if err := requireNonNegative(n, "to-bigint"); err != nil {
			return err
		}
		h.Push(value.BigInt(n))
		return nil
	})

	r.stack("big-add", binaryBigIntOp("big-add", func(z, a, b *big.Int) *big.Int { return z.Add(a, b) }))
	r.stack("big-sub", binaryBigIntOp("big-sub", func(z, a, b *big.Int) *big.Int { return z.Sub(a, b) }))
	r.stack("big-mul", binaryBigIntOp("big-mul", func(z, a, b *big.Int) *big.Int { return z.Mul(a, b) }))
	r.stack("big-div", func(h Host) error {
		b, err := popBigInt(h, "big-div")
		if err != nil {
			return err
		}
		a, err := popBigInt(h, "big-div")
		if err != nil {
			return err
		}
		if b.Sign() == 0 {
			return errtype.Exec("big-div: division by zero")
		}
		h.Push(value.BigInt(new(big.Int).Div(a, b)))
		return nil
	})
	r.stack("big-mod", func(h Host) error {
		b, err := popBigInt(h, "big-mod")
		if err != nil {
			return err
		}
		a, err := popBigInt(h, "big-mod")
		if err != nil {
			return err
		}
		if b.Sign() == 0 {
			return errtype.Exec("big-mod: modulo by zero")
		}
		h.Push(value.BigInt(new(big.Int).Mod(a, b)))
		return nil
	})
	r.stack("big-xor", binaryBigIntOp("big-xor", func(z, a, b *big.Int) *big.Int { return z.Xor(a, b) }))
	r.stack("big-and", binaryBigIntOp("big-and", func(z, a, b *big.Int) *big.Int { return z.And(a, b) }))
	r.stack("big-or", binaryBigIntOp("big-or", func(z, a, b *big.Int) *big.Int { return z.Or(a, b) }))

	r.stack("big-eq?", func(h Host) error {
		b, err := popBigInt(h, "big-eq?")
		if err != nil {
			return err
		}
		a, err := popBigInt(h, "big-eq?")
		if err != nil {
			return err
		}
		pushBool(h, a.Cmp(b) == 0)
		return nil
	})
	r.stack("big-lt?", func(h Host) error {
		b, err := popBigInt(h, "big-lt?")
		if err != nil {
			return err
		}
		a, err := popBigInt(h, "big-lt?")
		if err != nil {
			return err
		}
		pushBool(h, a.Cmp(b) < 0)
		return nil
	})
	r.stack("big-gt?", func(h Host) error {
		b, err := popBigInt(h, "big-gt?")
		if err != nil {
			return err
		}
		a, err := popBigInt(h, "big-gt?")
		if err != nil {
			return err
		}
		pushBool(h, a.Cmp(b) > 0)
		return nil
	})

	r.stack("big-shl", func(h Host) error {
		n, err := popIndex(h, "big-shl")
		if err != nil {
			return err
		}
		a, err := popBigInt(h, "big-shl")
		if err != nil {
			return err
		}
		h.Push(value.BigInt(new(big.Int).Lsh(a, uint(n))))
		return nil
	})
	r.stack("big-shr", func(h Host) error {
		n, err := popIndex(h, "big-shr")
		if err != nil {
			return err
		}
		a, err := popBigInt(h, "big-shr")
		if err != nil {
			return err
		}
		h.Push(value.BigInt(new(big.Int).Rsh(a, uint(n))))
		return nil
	})
	r.stack("big-pow", func(h Host) error {
		n, err := popIndex(h, "big-pow")
		if err != nil {
			return err
		}
		a, err := popBigInt(h, "big-pow")
		if err != nil {
			return err
		}
		h.Push(value.BigInt(new(big.Int).Exp(a, big.NewInt(int64(n)), nil)))
		return nil
	})
}

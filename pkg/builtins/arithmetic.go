package builtins

import (
	"math"
	"sort"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func popNum(h Host, op string) (float64, error) {
	v, err := h.Pop(op)
	if err != nil {
		return 0, err
	}
	if v.Tag != value.TagNumber {
		return 0, errtype.TypeMismatch("Number", value.TypeOf(v))
	}
	return v.Num(), nil
}

func binaryNumOp(name string, f func(a, b float64) (float64, error)) StackFn {
	return func(h Host) error {
		b, err := popNum(h, name)
		if err != nil {
			return err
		}
		a, err := popNum(h, name)
		if err != nil {
			return err
		}
		res, err := f(a, b)
		if err != nil {
			return err
		}
		h.Push(value.Number(res))
		return nil
	}
}

func unaryNumOp(name string, f func(a float64) (float64, error)) StackFn {
	return func(h Host) error {
		a, err := popNum(h, name)
		if err != nil {
			return err
		}
		res, err := f(a)
		if err != nil {
			return err
		}
		h.Push(value.Number(res))
		return nil
	}
}

func registerArithmetic(r *Registry) {
	r.stack("plus", binaryNumOp("plus", func(a, b float64) (float64, error) { return a + b, nil }))
	r.stack("minus", binaryNumOp("minus", func(a, b float64) (float64, error) { return a - b, nil }))
	r.stack("mul", binaryNumOp("mul", func(a, b float64) (float64, error) { return a * b, nil }))
	r.stack("div", binaryNumOp("div", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errtype.Exec("division by zero")
		}
		return a / b, nil
	}))
	r.stack("idiv", binaryNumOp("idiv", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errtype.Exec("division by zero")
		}
		return math.Trunc(a / b), nil
	}))
	r.stack("mod", binaryNumOp("mod", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errtype.Exec("modulo by zero")
		}
		return math.Mod(a, b), nil
	}))
	r.stack("pow", binaryNumOp("pow", func(a, b float64) (float64, error) { return math.Pow(a, b), nil }))
	r.stack("log-base", binaryNumOp("log-base", func(a, base float64) (float64, error) {
		return math.Log(a) / math.Log(base), nil
	}))
	r.stack("sqrt", unaryNumOp("sqrt", func(a float64) (float64, error) { return math.Sqrt(a), nil }))
	r.stack("floor", unaryNumOp("floor", func(a float64) (float64, error) { return math.Floor(a), nil }))
	r.stack("ceil", unaryNumOp("ceil", func(a float64) (float64, error) { return math.Ceil(a), nil }))
	r.stack("round", unaryNumOp("round", func(a float64) (float64, error) { return math.Round(a), nil }))
	r.stack("abs", unaryNumOp("abs", func(a float64) (float64, error) { return math.Abs(a), nil }))
	r.stack("negate", unaryNumOp("negate", func(a float64) (float64, error) { return -a, nil }))
	r.stack("max-of", binaryNumOp("max-of", func(a, b float64) (float64, error) { return math.Max(a, b), nil }))
	r.stack("min-of", binaryNumOp("min-of", func(a, b float64) (float64, error) { return math.Min(a, b), nil }))

	r.stack("sort-nums", func(h Host) error {
		v, err := h.Pop("sort-nums")
		if err != nil {
			return err
		}
		if v.Tag != value.TagList {
			return errtype.TypeMismatch("List", value.TypeOf(v))
		}
		items := append([]value.Value(nil), v.List()...)
		sort.Slice(items, func(i, j int) bool { return items[i].Num() < items[j].Num() })
		h.Push(value.List(items))
		return nil
	})
}

// Vector (numeric List-as-vector ops, following arithmetic.go's popNum/unaryNumOp shape and operating on the
// same Number-typed Lists aggregations.go already consumes).
package builtins

import (
	"math"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func popVectorPair(h Host, op string) (a, b []float64, err error) {
	bv, err := h.Pop(op)
	if err != nil {
		return nil, nil, err
	}
	av, err := h.Pop(op)
	if err != nil {
		return nil, nil, err
	}
	a, err = toFloatSlice(av, op)
	if err != nil {
		return nil, nil, err
	}
	b, err = toFloatSlice(bv, op)
	if err != nil {
		return nil, nil, err
	}
	if len(a) != len(b) {
		return nil, nil, errtype.Exec("vectors must have equal length")
	}
	return a, b, nil
}

func toFloatSlice(v value.Value, op string) ([]float64, error) {
	if v.Tag != value.TagList {
		return nil, errtype.TypeMismatch("List", value.TypeOf(v))
	}
	out := make([]float64, len(v.List()))
	for i, item := range v.List() {
		if item.Tag != value.TagNumber {
			return nil, errtype.TypeMismatch("Number", value.TypeOf(item))
		}
		out[i] = item.Num()
	}
	return out, nil
}

func magnitudeOf(v []float64) float64 {
	sum := 0.0
	for _, f := range v {
		sum += f * f
	}
	return math.Sqrt(sum)
}

func dotProductOf(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func registerVector(r *Registry) {
	r.stack("dot-product", func(h Host) error {
		a, b, err := popVectorPair(h, "dot-product")
		if err != nil {
			return err
		}
		h.Push(value.Number(dotProductOf(a, b)))
		return nil
	})

	r.stack("magnitude", func(h Host) error {
		v, err := h.Pop("magnitude")
		if err != nil {
			return err
		}
		nums, err := toFloatSlice(v, "magnitude")
		if err != nil {
			return err
		}
		h.Push(value.Number(magnitudeOf(nums)))
		return nil
	})

	r.stack("normalize", func(h Host) error {
		v, err := h.Pop("normalize")
		if err != nil {
			return err
		}
		nums, err := toFloatSlice(v, "normalize")
		if err != nil {
			return err
		}
		mag := magnitudeOf(nums)
		items := make([]value.Value, len(nums))
		for i, f := range nums {
			if mag == 0 {
				items[i] = value.Number(0)
				continue
			}
			items[i] = value.Number(f / mag)
		}
		h.Push(value.List(items))
		return nil
	})

	r.stack("cosine-similarity", func(h Host) error {
		a, b, err := popVectorPair(h, "cosine-similarity")
		if err != nil {
			return err
		}
		ma, mb := magnitudeOf(a), magnitudeOf(b)
		if ma == 0 || mb == 0 {
			h.Push(value.Number(0))
			return nil
		}
		h.Push(value.Number(dotProductOf(a, b) / (ma * mb)))
		return nil
	})

	r.stack("euclidean-distance", func(h Host) error {
		a, b, err := popVectorPair(h, "euclidean-distance")
		if err != nil {
			return err
		}
		sum := 0.0
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		h.Push(value.Number(math.Sqrt(sum)))
		return nil
	})
}

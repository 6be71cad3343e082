// Aggregations (spec §4.6 "Aggregations"). reduce/fold/bend are the
// concatenative combinators driving a Block over a List via Host.RunBlock,
// the same nested-block-over-the-live-stack discipline dip/tap use. plot is
// a SPEC_FULL supplement grounded on github.com/jesseduffield/asciigraph,
// which the teacher vendors for its own CPU/memory sparkline widgets.
package builtins

import (
	"math"
	"sort"
	"strings"

	"github.com/jesseduffield/asciigraph"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

// countOf implements count's per-tag arity (spec §4.6 aggregations): a
// List/Table/Map count their elements, a Literal/Output counts its
// lines, anything else counts as a single item.
func countOf(v value.Value) int {
	switch v.Tag {
	case value.TagList:
		return len(v.List())
	case value.TagTable:
		return len(v.Table().Rows)
	case value.TagMap:
		return v.MapLen()
	case value.TagLiteral, value.TagOutput:
		s := v.Str()
		if s == "" {
			return 0
		}
		return len(strings.Split(strings.TrimSuffix(s, "\n"), "\n"))
	default:
		return 1
	}
}

// bendIterationCap bounds bend's unfold per spec §4.6.
const bendIterationCap = 10000

func popNumList(h Host, op string) ([]float64, error) {
	v, err := h.Pop(op)
	if err != nil {
		return nil, err
	}
	if v.Tag != value.TagList {
		return nil, errtype.TypeMismatch("List", value.TypeOf(v))
	}
	nums := make([]float64, 0, len(v.List()))
	for _, item := range v.List() {
		if item.Tag != value.TagNumber {
			return nil, errtype.TypeMismatch("Number", value.TypeOf(item))
		}
		nums = append(nums, item.Num())
	}
	return nums, nil
}

func registerAggregations(r *Registry) {
	r.stack("sum", func(h Host) error {
		nums, err := popNumList(h, "sum")
		if err != nil {
			return err
		}
		h.Push(value.Number(sumOf(nums)))
		return nil
	})
	r.stack("avg", func(h Host) error {
		nums, err := popNumList(h, "avg")
		if err != nil {
			return err
		}
		if len(nums) == 0 {
			h.Push(value.Number(0))
			return nil
		}
		h.Push(value.Number(sumOf(nums) / float64(len(nums))))
		return nil
	})
	r.stack("count", func(h Host) error {
		v, err := h.Pop("count")
		if err != nil {
			return err
		}
		h.Push(value.Number(float64(countOf(v))))
		return nil
	})
	r.stack("product", func(h Host) error {
		nums, err := popNumList(h, "product")
		if err != nil {
			return err
		}
		p := 1.0
		for _, n := range nums {
			p *= n
		}
		h.Push(value.Number(p))
		return nil
	})
	r.stack("max", func(h Host) error {
		nums, err := popNumList(h, "max")
		if err != nil {
			return err
		}
		if len(nums) == 0 {
			return errtype.Exec("max of empty list")
		}
		m := nums[0]
		for _, n := range nums[1:] {
			m = math.Max(m, n)
		}
		h.Push(value.Number(m))
		return nil
	})
	r.stack("min", func(h Host) error {
		nums, err := popNumList(h, "min")
		if err != nil {
			return err
		}
		if len(nums) == 0 {
			return errtype.Exec("min of empty list")
		}
		m := nums[0]
		for _, n := range nums[1:] {
			m = math.Min(m, n)
		}
		h.Push(value.Number(m))
		return nil
	})
	r.stack("median", func(h Host) error {
		nums, err := popNumList(h, "median")
		if err != nil {
			return err
		}
		h.Push(value.Number(medianOf(nums)))
		return nil
	})
	r.stack("mode", func(h Host) error {
		nums, err := popNumList(h, "mode")
		if err != nil {
			return err
		}
		modes := modesOf(nums)
		if len(modes) == 0 {
			h.Push(value.Nil())
			return nil
		}
		h.Push(value.Number(modes[0]))
		return nil
	})
	r.stack("modes", func(h Host) error {
		nums, err := popNumList(h, "modes")
		if err != nil {
			return err
		}
		modes := modesOf(nums)
		items := make([]value.Value, len(modes))
		for i, m := range modes {
			items[i] = value.Number(m)
		}
		h.Push(value.List(items))
		return nil
	})
	r.stack("variance", func(h Host) error {
		nums, err := popNumList(h, "variance")
		if err != nil {
			return err
		}
		h.Push(value.Number(varianceOf(nums, false)))
		return nil
	})
	r.stack("sample-variance", func(h Host) error {
		nums, err := popNumList(h, "sample-variance")
		if err != nil {
			return err
		}
		h.Push(value.Number(varianceOf(nums, true)))
		return nil
	})
	r.stack("stdev", func(h Host) error {
		nums, err := popNumList(h, "stdev")
		if err != nil {
			return err
		}
		h.Push(value.Number(math.Sqrt(varianceOf(nums, false))))
		return nil
	})
	r.stack("sample-stdev", func(h Host) error {
		nums, err := popNumList(h, "sample-stdev")
		if err != nil {
			return err
		}
		h.Push(value.Number(math.Sqrt(varianceOf(nums, true))))
		return nil
	})
	r.stack("percentile", func(h Host) error {
		p, err := popNum(h, "percentile")
		if err != nil {
			return err
		}
		nums, err := popNumList(h, "percentile")
		if err != nil {
			return err
		}
		h.Push(value.Number(percentileOf(nums, p)))
		return nil
	})
	r.stack("five-num", func(h Host) error {
		nums, err := popNumList(h, "five-num")
		if err != nil {
			return err
		}
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		fields := map[string]value.Value{
			"min": value.Number(percentileOf(sorted, 0)),
			"q1":  value.Number(percentileOf(sorted, 25)),
			"med": value.Number(percentileOf(sorted, 50)),
			"q3":  value.Number(percentileOf(sorted, 75)),
			"max": value.Number(percentileOf(sorted, 100)),
		}
		h.Push(value.Map(fields, []string{"min", "q1", "med", "q3", "max"}))
		return nil
	})

	r.stack("reduce", func(h Host) error {
		block, err := h.Pop("reduce")
		if err != nil {
			return err
		}
		init, err := h.Pop("reduce")
		if err != nil {
			return err
		}
		list, err := h.Pop("reduce")
		if err != nil {
			return err
		}
		if list.Tag != value.TagList {
			return errtype.TypeMismatch("List", value.TypeOf(list))
		}
		if block.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(block))
		}
		acc := init
		for _, item := range list.List() {
			before := h.All()
			h.Push(acc)
			h.Push(item)
			if _, err := h.RunBlock(block.Exprs()); err != nil {
				return err
			}
			next, ok := h.Peek(0)
			if !ok {
				return errtype.Exec("reduce block did not leave a new accumulator on the stack")
			}
			h.Replace(before)
			acc = next
		}
		h.Push(acc)
		return nil
	})

	r.stack("fold", func(h Host) error {
		block, err := h.Pop("fold")
		if err != nil {
			return err
		}
		list, err := h.Pop("fold")
		if err != nil {
			return err
		}
		if list.Tag != value.TagList {
			return errtype.TypeMismatch("List", value.TypeOf(list))
		}
		items := list.List()
		if len(items) == 0 {
			return errtype.Exec("fold on empty list")
		}
		acc := items[0]
		for _, item := range items[1:] {
			before := h.All()
			h.Push(acc)
			h.Push(item)
			if _, err := h.RunBlock(block.Exprs()); err != nil {
				return err
			}
			next, ok := h.Peek(0)
			if !ok {
				return errtype.Exec("fold block did not leave a new accumulator on the stack")
			}
			h.Replace(before)
			acc = next
		}
		h.Push(acc)
		return nil
	})

	r.stack("bend", func(h Host) error {
		block, err := h.Pop("bend")
		if err != nil {
			return err
		}
		seed, err := h.Pop("bend")
		if err != nil {
			return err
		}
		if block.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(block))
		}
		var out []value.Value
		cur := seed
		for i := 0; i < bendIterationCap; i++ {
			before := h.All()
			h.Push(cur)
			if _, err := h.RunBlock(block.Exprs()); err != nil {
				return err
			}
			cont, ok := h.Peek(0)
			stop := !ok || cont.Tag == value.TagNil || (cont.Tag == value.TagBool && !cont.Bool())
			h.Replace(before)
			if stop {
				break
			}
			out = append(out, cont)
			cur = cont
		}
		h.Push(value.List(out))
		return nil
	})

	r.stack("plot", func(h Host) error {
		nums, err := popNumList(h, "plot")
		if err != nil {
			return err
		}
		h.Push(value.Literal(asciigraph.Plot(nums)))
		return nil
	})
}

func sumOf(nums []float64) float64 {
	s := 0.0
	for _, n := range nums {
		s += n
	}
	return s
}

func medianOf(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func modesOf(nums []float64) []float64 {
	counts := map[float64]int{}
	best := 0
	for _, n := range nums {
		counts[n]++
		if counts[n] > best {
			best = counts[n]
		}
	}
	if best == 0 {
		return nil
	}
	var modes []float64
	for n, c := range counts {
		if c == best {
			modes = append(modes, n)
		}
	}
	sort.Float64s(modes)
	return modes
}

func varianceOf(nums []float64, sample bool) float64 {
	n := len(nums)
	if n == 0 || (sample && n == 1) {
		return 0
	}
	mean := sumOf(nums) / float64(n)
	total := 0.0
	for _, v := range nums {
		d := v - mean
		total += d * d
	}
	divisor := float64(n)
	if sample {
		divisor = float64(n - 1)
	}
	return total / divisor
}

func percentileOf(sortedOrUnsorted []float64, p float64) float64 {
	if len(sortedOrUnsorted) == 0 {
		return 0
	}
	sorted := append([]float64(nil), sortedOrUnsorted...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

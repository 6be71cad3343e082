package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsab-shell/hsab/pkg/value"
)

func numList(ns ...float64) value.Value {
	items := make([]value.Value, len(ns))
	for i, n := range ns {
		items[i] = value.Number(n)
	}
	return value.List(items)
}

func TestSumAvgCount(t *testing.T) {
	reg := New()
	h := newTestHost()
	h.Push(numList(1, 2, 3, 4))
	_, err := reg.Dispatch(h, "sum")
	require.NoError(t, err)
	v, _ := h.Pop("test")
	assert.Equal(t, 10.0, v.Num())

	h.Push(numList(1, 2, 3, 4))
	_, err = reg.Dispatch(h, "avg")
	require.NoError(t, err)
	v, _ = h.Pop("test")
	assert.Equal(t, 2.5, v.Num())
}

func TestMedianAndPercentile(t *testing.T) {
	reg := New()
	h := newTestHost()
	h.Push(numList(3, 1, 2, 4))
	_, err := reg.Dispatch(h, "median")
	require.NoError(t, err)
	v, _ := h.Pop("test")
	assert.Equal(t, 2.5, v.Num())

	h.Push(numList(1, 2, 3, 4, 5))
	h.Push(value.Number(50))
	_, err = reg.Dispatch(h, "percentile")
	require.NoError(t, err)
	v, _ = h.Pop("test")
	assert.Equal(t, 3.0, v.Num())
}

func TestReduceOnEmptyListReturnsInit(t *testing.T) {
	reg := New()
	h := newTestHost()
	h.Push(numList())
	h.Push(value.Number(42))
	h.Push(value.Block(nil))
	_, err := reg.Dispatch(h, "reduce")
	require.NoError(t, err)
	v, _ := h.Pop("test")
	assert.Equal(t, 42.0, v.Num())
	assert.Equal(t, 0, h.ExitCode())
}

func TestVarianceAndStdev(t *testing.T) {
	reg := New()
	h := newTestHost()
	h.Push(numList(2, 4, 4, 4, 5, 5, 7, 9))
	_, err := reg.Dispatch(h, "variance")
	require.NoError(t, err)
	v, _ := h.Pop("test")
	assert.InDelta(t, 4.0, v.Num(), 0.001)
}

package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsab-shell/hsab/pkg/value"
)

func rec(fields map[string]value.Value, order []string) value.Value {
	return value.Map(fields, order)
}

func TestTableBuildsFromRecords(t *testing.T) {
	h := newTestHost()
	h.Push(value.Marker())
	h.Push(rec(map[string]value.Value{"name": value.Literal("alice"), "age": value.Number(30)}, []string{"name", "age"}))
	h.Push(rec(map[string]value.Value{"name": value.Literal("bob"), "age": value.Number(25)}, []string{"name", "age"}))

	reg := New()
	handled, err := reg.Dispatch(h, "table")
	require.True(t, handled)
	require.NoError(t, err)

	out, ok := h.Peek(0)
	require.True(t, ok)
	require.Equal(t, value.TagTable, out.Tag)
	tbl := out.Table()
	assert.Len(t, tbl.Rows, 2)
	assert.Contains(t, tbl.Columns, "name")
	assert.Contains(t, tbl.Columns, "age")
}

func TestTableSortByAndFirstLast(t *testing.T) {
	h := newTestHost()
	rows := [][]value.Value{
		{value.Literal("bob"), value.Number(25)},
		{value.Literal("alice"), value.Number(30)},
	}
	h.Push(value.NewTable([]string{"name", "age"}, rows))
	h.Push(value.Literal("name"))

	reg := New()
	handled, err := reg.Dispatch(h, "sort-by")
	require.True(t, handled)
	require.NoError(t, err)

	sorted, _ := h.Pop("test")
	tbl := sorted.Table()
	require.Equal(t, "alice", tbl.Rows[0][0].AsArg())

	h.Push(sorted)
	handled, err = reg.Dispatch(h, "first")
	require.True(t, handled)
	require.NoError(t, err)
	first, _ := h.Pop("test")
	v, ok := first.MapGet("name")
	require.True(t, ok)
	assert.Equal(t, "alice", v.AsArg())
}

func TestTableUniqueAndReverse(t *testing.T) {
	h := newTestHost()
	rows := [][]value.Value{
		{value.Literal("a")},
		{value.Literal("a")},
		{value.Literal("b")},
	}
	h.Push(value.NewTable([]string{"x"}, rows))
	reg := New()
	handled, err := reg.Dispatch(h, "unique")
	require.True(t, handled)
	require.NoError(t, err)
	out, _ := h.Pop("test")
	assert.Len(t, out.Table().Rows, 2)

	h.Push(out)
	handled, err = reg.Dispatch(h, "reverse")
	require.True(t, handled)
	require.NoError(t, err)
	out, _ = h.Pop("test")
	assert.Equal(t, "b", out.Table().Rows[0][0].AsArg())
}

package plugin

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsab-shell/hsab/pkg/value"
)

func roundTrip(t *testing.T, v value.Value) value.Value {
	t.Helper()
	s, err := valueToJSON(v)
	require.NoError(t, err)
	out, err := jsonToValue(s)
	require.NoError(t, err)
	return out
}

func TestValueJSONRoundTripScalars(t *testing.T) {
	assert.Equal(t, "hello", roundTrip(t, value.Literal("hello")).Str())
	assert.Equal(t, 3.5, roundTrip(t, value.Number(3.5)).Num())
	assert.Equal(t, true, roundTrip(t, value.Bool(true)).Bool())
	assert.Equal(t, value.TagNil, roundTrip(t, value.Nil()).Tag)
}

func TestValueJSONRoundTripList(t *testing.T) {
	in := value.List([]value.Value{value.Number(1), value.Literal("two"), value.Bool(false)})
	out := roundTrip(t, in)

	require.Equal(t, value.TagList, out.Tag)
	items := out.List()
	require.Len(t, items, 3)
	assert.Equal(t, 1.0, items[0].Num())
	assert.Equal(t, "two", items[1].Str())
	assert.Equal(t, false, items[2].Bool())
}

func TestValueJSONRoundTripMap(t *testing.T) {
	in := value.Map(map[string]value.Value{"a": value.Number(1), "b": value.Literal("x")}, []string{"a", "b"})
	out := roundTrip(t, in)

	require.Equal(t, value.TagMap, out.Tag)
	a, ok := out.MapGet("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, a.Num())
	b, ok := out.MapGet("b")
	require.True(t, ok)
	assert.Equal(t, "x", b.Str())
}

func TestValueJSONRoundTripTable(t *testing.T) {
	in := value.NewTable([]string{"name", "age"}, [][]value.Value{
		{value.Literal("Ada"), value.Number(30)},
	})
	out := roundTrip(t, in)

	require.Equal(t, value.TagTable, out.Tag)
	tbl := out.Table()
	assert.Equal(t, []string{"name", "age"}, tbl.Columns)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "Ada", tbl.Rows[0][0].Str())
	assert.Equal(t, 30.0, tbl.Rows[0][1].Num())
}

func TestValueJSONRoundTripError(t *testing.T) {
	code := 2
	in := value.ErrorVal(value.ErrorValue{Kind: "ExecError", Message: "boom", Code: &code, Source: "cmd", Command: "ls"})
	out := roundTrip(t, in)

	require.Equal(t, value.TagError, out.Tag)
	e := out.Error()
	assert.Equal(t, "ExecError", e.Kind)
	assert.Equal(t, "boom", e.Message)
	require.NotNil(t, e.Code)
	assert.Equal(t, 2, *e.Code)
	assert.Equal(t, "cmd", e.Source)
	assert.Equal(t, "ls", e.Command)
}

func TestValueJSONEncodeBigInt(t *testing.T) {
	n := big.NewInt(0).SetBytes([]byte{0xff, 0xff, 0xff, 0xff, 0xff})
	in := value.BigInt(n)

	generic := toJSONGeneric(in)
	m, ok := generic.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "bigint", m["__type"])
	assert.Equal(t, n.String(), m["decimal"])
}

func TestValueJSONEncodeBytes(t *testing.T) {
	in := value.Bytes([]byte{1, 2, 3})

	generic := toJSONGeneric(in)
	m, ok := generic.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "bytes", m["__type"])
	assert.Equal(t, 3, m["size"])
	assert.Equal(t, "010203", m["hex"])
}

func TestValueJSONMarker(t *testing.T) {
	out := roundTrip(t, value.Marker())
	assert.Equal(t, value.TagMarker, out.Tag)
}

package eval

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hsab-shell/hsab/pkg/value"
)

func TestValueToGenericScalars(t *testing.T) {
	assert.Equal(t, "hi", valueToGeneric(value.Literal("hi")))
	assert.Equal(t, 4.0, valueToGeneric(value.Number(4)))
	assert.Equal(t, true, valueToGeneric(value.Bool(true)))
	assert.Nil(t, valueToGeneric(value.Nil()))
}

func TestGenericToValueRoundTripList(t *testing.T) {
	in := value.List([]value.Value{value.Number(1), value.Literal("a")})
	out := genericToValue(valueToGeneric(in))

	assert.Equal(t, value.TagList, out.Tag)
	items := out.List()
	assert.Equal(t, 1.0, items[0].Num())
	assert.Equal(t, "a", items[1].Str())
}

func TestGenericToValueRoundTripMap(t *testing.T) {
	in := value.Map(map[string]value.Value{"x": value.Number(2)}, []string{"x"})
	out := genericToValue(valueToGeneric(in))

	assert.Equal(t, value.TagMap, out.Tag)
	x, ok := out.MapGet("x")
	assert.True(t, ok)
	assert.Equal(t, 2.0, x.Num())
}

func TestGenericToValueRoundTripError(t *testing.T) {
	code := 7
	in := value.ErrorVal(value.ErrorValue{Kind: "ExecError", Message: "nope", Code: &code})
	out := genericToValue(valueToGeneric(in))

	assert.Equal(t, value.TagError, out.Tag)
	e := out.Error()
	assert.Equal(t, "ExecError", e.Kind)
	assert.Equal(t, "nope", e.Message)
	assert.Equal(t, 7, *e.Code)
}

func TestGenericToValueRoundTripTable(t *testing.T) {
	in := value.NewTable([]string{"a"}, [][]value.Value{{value.Number(1)}})
	out := genericToValue(valueToGeneric(in))

	assert.Equal(t, value.TagTable, out.Tag)
	tbl := out.Table()
	assert.Equal(t, []string{"a"}, tbl.Columns)
	assert.Equal(t, 1.0, tbl.Rows[0][0].Num())
}

func TestValueToGenericBigIntIsOneWay(t *testing.T) {
	n := big.NewInt(255)
	generic := valueToGeneric(value.BigInt(n))

	m, ok := generic.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "bigint", m["__type"])
	assert.Equal(t, "255", m["decimal"])
	assert.Equal(t, "ff", m["hex"])
}

package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsab-shell/hsab/pkg/value"
)

// gtThreeBlock is the predicate `[3 gt?]`: pushes Number(3), then runs
// gt? against (item, 3).
func gtThreeBlock() value.Value {
	return value.Block([]value.Expr{valueExpr(value.Number(3)), wordExpr("gt?")})
}

func TestSpreadPushesMarkerThenListItems(t *testing.T) {
	h := newTestHost()
	h.Push(value.List([]value.Value{value.Number(1), value.Number(2), value.Number(3)}))

	_, err := New().Dispatch(h, "spread")
	require.NoError(t, err)

	all := h.All()
	require.Len(t, all, 4)
	assert.Equal(t, value.TagMarker, all[0].Tag)
	assert.Equal(t, 1.0, all[1].Num())
	assert.Equal(t, 2.0, all[2].Num())
	assert.Equal(t, 3.0, all[3].Num())
}

func TestSpreadOnStringSplitsNonEmptyLines(t *testing.T) {
	h := newTestHost()
	h.Push(value.Literal("a\n\nb\n"))

	_, err := New().Dispatch(h, "spread")
	require.NoError(t, err)

	all := h.All()
	require.Len(t, all, 3)
	assert.Equal(t, value.TagMarker, all[0].Tag)
	assert.Equal(t, "a", all[1].Str())
	assert.Equal(t, "b", all[2].Str())
}

func TestMarkerPushesBareMarker(t *testing.T) {
	h := newTestHost()
	_, err := New().Dispatch(h, "marker")
	require.NoError(t, err)

	top, ok := h.Peek(0)
	require.True(t, ok)
	assert.Equal(t, value.TagMarker, top.Tag)
}

func TestCollectJoinsWithNewlineAndSkipsNonCoercible(t *testing.T) {
	h := newTestHost()
	h.Push(value.Marker())
	h.Push(value.Number(4))
	h.Push(value.Block(nil)) // not coercible, should be skipped
	h.Push(value.Number(5))

	_, err := New().Dispatch(h, "collect")
	require.NoError(t, err)

	top, ok := h.Peek(0)
	require.True(t, ok)
	assert.Equal(t, value.TagOutput, top.Tag)
	assert.Equal(t, "4\n5", top.Str())
}

func TestCollectOfNothingPushesNil(t *testing.T) {
	h := newTestHost()
	h.Push(value.Marker())

	_, err := New().Dispatch(h, "collect")
	require.NoError(t, err)

	top, ok := h.Peek(0)
	require.True(t, ok)
	assert.Equal(t, value.TagNil, top.Tag)
}

func TestEachRunsBlockOncePerItem(t *testing.T) {
	h := newTestHost()
	h.Push(value.Marker())
	h.Push(value.Number(1))
	h.Push(value.Number(2))
	// block: dup plus (doubles the item) - use a block that just pushes
	// the item's double via "dup" "plus"
	block := value.Block([]value.Expr{wordExpr("dup"), wordExpr("plus")})
	h.Push(block)

	_, err := New().Dispatch(h, "each")
	require.NoError(t, err)

	all := h.All()
	require.Len(t, all, 2)
	assert.Equal(t, 2.0, all[0].Num())
	assert.Equal(t, 4.0, all[1].Num())
}

func TestKeepFiltersByPredicateExitCode(t *testing.T) {
	h := newTestHost()
	h.Push(value.Marker())
	h.Push(value.Number(1))
	h.Push(value.Number(4))
	h.Push(value.Number(5))
	h.Push(gtThreeBlock())

	_, err := New().Dispatch(h, "keep")
	require.NoError(t, err)

	all := h.All()
	require.Len(t, all, 3)
	assert.Equal(t, value.TagMarker, all[0].Tag)
	assert.Equal(t, 4.0, all[1].Num())
	assert.Equal(t, 5.0, all[2].Num())
}

// TestWorkedExampleSpreadKeepCollectCount reproduces the end-to-end
// scenario: a JSON-parsed list, spread, filtered down to items greater
// than 3, collected, and counted.
func TestWorkedExampleSpreadKeepCollectCount(t *testing.T) {
	h := newTestHost()
	parsed, err := parseJSON("[1,2,3,4,5]")
	require.NoError(t, err)
	h.Push(parsed)

	_, err = New().Dispatch(h, "spread")
	require.NoError(t, err)

	h.Push(gtThreeBlock())
	_, err = New().Dispatch(h, "keep")
	require.NoError(t, err)

	_, err = New().Dispatch(h, "collect")
	require.NoError(t, err)

	_, err = New().Dispatch(h, "count")
	require.NoError(t, err)

	top, ok := h.Peek(0)
	require.True(t, ok)
	assert.Equal(t, 2.0, top.Num())
}

func TestMapIsEachThenCollect(t *testing.T) {
	h := newTestHost()
	h.Push(value.Marker())
	h.Push(value.Number(1))
	h.Push(value.Number(2))
	block := value.Block([]value.Expr{wordExpr("dup"), wordExpr("plus")})
	h.Push(block)

	_, err := New().Dispatch(h, "map")
	require.NoError(t, err)

	top, ok := h.Peek(0)
	require.True(t, ok)
	assert.Equal(t, value.TagOutput, top.Tag)
	assert.Equal(t, "2\n4", top.Str())
}

func TestFilterIsKeepThenCollect(t *testing.T) {
	h := newTestHost()
	h.Push(value.Marker())
	h.Push(value.Number(1))
	h.Push(value.Number(4))
	h.Push(gtThreeBlock())

	_, err := New().Dispatch(h, "filter")
	require.NoError(t, err)

	top, ok := h.Peek(0)
	require.True(t, ok)
	assert.Equal(t, value.TagOutput, top.Tag)
	assert.Equal(t, "4", top.Str())
}

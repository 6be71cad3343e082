package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines(t *testing.T) {
	type scenario struct {
		multilineString string
		expected        []string
	}

	scenarios := []scenario{
		{
			"",
			[]string{},
		},
		{
			"\n",
			[]string{},
		},
		{
			"hello world !\nhello universe !\n",
			[]string{
				"hello world !",
				"hello universe !",
			},
		},
	}

	for _, s := range scenarios {
		assert.EqualValues(t, s.expected, SplitLines(s.multilineString))
	}
}

func TestWithPadding(t *testing.T) {
	type scenario struct {
		str      string
		padding  int
		expected string
	}

	scenarios := []scenario{
		{
			"hello world !",
			1,
			"hello world !",
		},
		{
			"hello world !",
			14,
			"hello world ! ",
		},
	}

	for _, s := range scenarios {
		assert.EqualValues(t, s.expected, WithPadding(s.str, s.padding))
	}
}

func TestMax(t *testing.T) {
	assert.Equal(t, 5, Max(5, 3))
	assert.Equal(t, 5, Max(3, 5))
}

func TestRenderTable(t *testing.T) {
	table, err := RenderTable([][]string{
		{"a", "bb"},
		{"ccc", "d"},
	})
	assert.NoError(t, err)
	assert.Equal(t, "a   bb\nccc d", table)

	_, err = RenderTable([][]string{
		{"a", "bb"},
		{"c"},
	})
	assert.Error(t, err)
}

func TestDecolorise(t *testing.T) {
	assert.Equal(t, "hello", Decolorise("\x1b[31mhello\x1b[0m"))
}

func TestSafeTruncate(t *testing.T) {
	assert.Equal(t, "hel", SafeTruncate("hello", 3))
	assert.Equal(t, "hi", SafeTruncate("hi", 3))
}

func TestResolvePlaceholderString(t *testing.T) {
	got := ResolvePlaceholderString("hello {{name}}", map[string]string{"name": "world"})
	assert.Equal(t, "hello world", got)
}

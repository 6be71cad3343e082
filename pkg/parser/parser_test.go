package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWords(t *testing.T) {
	exprs, err := Parse("1 2 add")
	assert.NoError(t, err)
	assert.Equal(t, []Expr{
		Word{Text: "1"},
		Word{Text: "2"},
		Word{Text: "add"},
	}, exprs)
}

func TestParseBlock(t *testing.T) {
	exprs, err := Parse("[ 1 2 add ] call")
	assert.NoError(t, err)
	assert.Equal(t, []Expr{
		Block{Body: []Expr{Word{Text: "1"}, Word{Text: "2"}, Word{Text: "add"}}},
		Word{Text: "call"},
	}, exprs)
}

func TestParseNestedBlock(t *testing.T) {
	exprs, err := Parse("[ 1 [ 2 3 add ] call add ]")
	assert.NoError(t, err)
	block, ok := exprs[0].(Block)
	assert.True(t, ok)
	assert.Len(t, block.Body, 4)
	_, ok = block.Body[1].(Block)
	assert.True(t, ok)
}

func TestParseDefine(t *testing.T) {
	exprs, err := Parse(":square [ dup mul ]")
	assert.NoError(t, err)
	assert.Equal(t, Define{Name: "square"}, exprs[0])
	assert.Equal(t, Block{Body: []Expr{Word{Text: "dup"}, Word{Text: "mul"}}}, exprs[1])
}

func TestParseVariableAndQuoted(t *testing.T) {
	exprs, err := Parse(`$HOME "hi $HOME"`)
	assert.NoError(t, err)
	assert.Equal(t, Variable{Name: "HOME"}, exprs[0])
	assert.Equal(t, Quoted{Content: "hi $HOME", Double: true}, exprs[1])
}

func TestParseLimboRef(t *testing.T) {
	exprs, err := Parse("`a1b2`")
	assert.NoError(t, err)
	assert.Equal(t, LimboRef{ID: "a1b2"}, exprs[0])
}

func TestParseScopedBlock(t *testing.T) {
	exprs, err := Parse("[ FOO=bar ; $FOO print ]")
	assert.NoError(t, err)
	sb, ok := exprs[0].(ScopedBlock)
	assert.True(t, ok)
	assert.Equal(t, []Assignment{{Name: "FOO", Value: Word{Text: "bar"}}}, sb.Assignments)
	assert.Equal(t, []Expr{Variable{Name: "FOO"}, Word{Text: "print"}}, sb.Body)
}

func TestParseUnterminatedBlock(t *testing.T) {
	_, err := Parse("[ 1 2 add")
	assert.Error(t, err)
}

func TestParseUnexpectedRBracket(t *testing.T) {
	_, err := Parse("1 2 ]")
	assert.Error(t, err)
}

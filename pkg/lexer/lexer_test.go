package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexWords(t *testing.T) {
	toks, err := Lex("1 2 add")
	assert.NoError(t, err)
	assert.Equal(t, []Token{
		{Kind: TokWord, Text: "1"},
		{Kind: TokWord, Text: "2"},
		{Kind: TokWord, Text: "add"},
	}, toks)
}

func TestLexComment(t *testing.T) {
	toks, err := Lex("dup # discard")
	assert.NoError(t, err)
	assert.Equal(t, []Token{{Kind: TokWord, Text: "dup"}}, toks)
}

func TestLexShebangLine(t *testing.T) {
	toks, err := Lex("#!/usr/bin/env hsab")
	assert.NoError(t, err)
	assert.Empty(t, toks)
}

func TestLexQuoted(t *testing.T) {
	toks, err := Lex(`'single' "double"`)
	assert.NoError(t, err)
	assert.Equal(t, []Token{
		{Kind: TokQuoted, Text: "single", Double: false},
		{Kind: TokQuoted, Text: "double", Double: true},
	}, toks)
}

func TestLexVariable(t *testing.T) {
	toks, err := Lex("$HOME ${PATH}")
	assert.NoError(t, err)
	assert.Equal(t, []Token{
		{Kind: TokVariable, Text: "HOME"},
		{Kind: TokVariable, Text: "PATH"},
	}, toks)
}

func TestLexLimboRef(t *testing.T) {
	toks, err := Lex("`a1b2` `c3d4:note`")
	assert.NoError(t, err)
	assert.Equal(t, []Token{
		{Kind: TokLimboRef, Text: "a1b2"},
		{Kind: TokLimboRef, Text: "c3d4"},
	}, toks)
}

func TestLexBlockBrackets(t *testing.T) {
	toks, err := Lex("[ 1 2 add ]")
	assert.NoError(t, err)
	assert.Equal(t, []Token{
		{Kind: TokLBracket},
		{Kind: TokWord, Text: "1"},
		{Kind: TokWord, Text: "2"},
		{Kind: TokWord, Text: "add"},
		{Kind: TokRBracket},
	}, toks)
}

func TestLexDefine(t *testing.T) {
	toks, err := Lex(":square [ dup mul ]")
	assert.NoError(t, err)
	assert.Equal(t, TokDefine, toks[0].Kind)
	assert.Equal(t, "square", toks[0].Text)
}

func TestLexBraceExpansionList(t *testing.T) {
	toks, err := Lex("{a,b,c}")
	assert.NoError(t, err)
	var words []string
	for _, tok := range toks {
		words = append(words, tok.Text)
	}
	assert.Equal(t, []string{"a", "b", "c"}, words)
}

func TestLexBraceExpansionRange(t *testing.T) {
	toks, err := Lex("{1..3}")
	assert.NoError(t, err)
	var words []string
	for _, tok := range toks {
		words = append(words, tok.Text)
	}
	assert.Equal(t, []string{"1", "2", "3"}, words)
}

func TestLexBraceExpansionReverseRange(t *testing.T) {
	toks, err := Lex("{3..1}")
	assert.NoError(t, err)
	var words []string
	for _, tok := range toks {
		words = append(words, tok.Text)
	}
	assert.Equal(t, []string{"3", "2", "1"}, words)
}

func TestLexUnterminatedQuote(t *testing.T) {
	_, err := Lex(`"oops`)
	assert.Error(t, err)
}

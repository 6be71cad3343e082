package parser

import (
	"fmt"

	"github.com/hsab-shell/hsab/pkg/lexer"
)

// Parse lexes and parses one line of source into a flat sequence of
// top-level expressions, ready for the evaluator's left-to-right drive
// loop (spec §4.2).
func Parse(line string) ([]Expr, error) {
	toks, err := lexer.Lex(line)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	exprs, err := p.parseSeq(false)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected %q", p.toks[p.pos].Text)
	}
	return exprs, nil
}

type parser struct {
	toks []lexer.Token
	pos  int
}

func (p *parser) peek() (lexer.Token, bool) {
	if p.pos >= len(p.toks) {
		return lexer.Token{}, false
	}
	return p.toks[p.pos], true
}

// parseSeq parses expressions until it hits a closing bracket (if inBlock)
// or end of input.
func (p *parser) parseSeq(inBlock bool) ([]Expr, error) {
	var out []Expr
	for {
		tok, ok := p.peek()
		if !ok {
			if inBlock {
				return nil, fmt.Errorf("unterminated block: missing ]")
			}
			return out, nil
		}
		if tok.Kind == lexer.TokRBracket {
			if !inBlock {
				return nil, fmt.Errorf("unexpected ]")
			}
			return out, nil
		}
		e, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

func (p *parser) parseOne() (Expr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of input")
	}
	switch tok.Kind {
	case lexer.TokWord:
		p.pos++
		return Word{Text: tok.Text}, nil
	case lexer.TokQuoted:
		p.pos++
		return Quoted{Content: tok.Text, Double: tok.Double}, nil
	case lexer.TokVariable:
		p.pos++
		return Variable{Name: tok.Text}, nil
	case lexer.TokLimboRef:
		p.pos++
		return LimboRef{ID: tok.Text}, nil
	case lexer.TokDefine:
		p.pos++
		return Define{Name: tok.Text}, nil
	case lexer.TokLBracket:
		return p.parseBracketed()
	case lexer.TokSemicolon:
		return nil, fmt.Errorf("unexpected ;")
	default:
		return nil, fmt.Errorf("unexpected token")
	}
}

// parseBracketed consumes a `[...]`. If it contains a top-level `;`, the
// portion before it is parsed as a `NAME=value` assignment header and the
// result is a ScopedBlock; otherwise it's a plain Block (spec §4.1/§4.8).
func (p *parser) parseBracketed() (Expr, error) {
	p.pos++ // consume '['

	depth := 0
	semiAt := -1
	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].Kind {
		case lexer.TokLBracket:
			depth++
		case lexer.TokRBracket:
			if depth == 0 {
				i = len(p.toks)
				continue
			}
			depth--
		case lexer.TokSemicolon:
			if depth == 0 && semiAt == -1 {
				semiAt = i
			}
		}
	}

	if semiAt == -1 {
		body, err := p.parseSeq(true)
		if err != nil {
			return nil, err
		}
		if err := p.expectRBracket(); err != nil {
			return nil, err
		}
		return Block{Body: body}, nil
	}

	var assigns []Assignment
	for p.pos < semiAt {
		tok := p.toks[p.pos]
		if tok.Kind != lexer.TokWord {
			return nil, fmt.Errorf("expected NAME=value assignment in scoped block header")
		}
		name, valExpr, err := parseAssignment(tok.Text)
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, Assignment{Name: name, Value: valExpr})
		p.pos++
	}
	p.pos++ // consume ';'

	body, err := p.parseSeq(true)
	if err != nil {
		return nil, err
	}
	if err := p.expectRBracket(); err != nil {
		return nil, err
	}
	return ScopedBlock{Assignments: assigns, Body: body}, nil
}

func (p *parser) expectRBracket() error {
	tok, ok := p.peek()
	if !ok || tok.Kind != lexer.TokRBracket {
		return fmt.Errorf("expected ]")
	}
	p.pos++
	return nil
}

func parseAssignment(word string) (string, Expr, error) {
	for i := 0; i < len(word); i++ {
		if word[i] == '=' {
			if i == 0 {
				return "", nil, fmt.Errorf("invalid assignment %q", word)
			}
			return word[:i], Word{Text: word[i+1:]}, nil
		}
	}
	return "", nil, fmt.Errorf("expected NAME=value, got %q", word)
}

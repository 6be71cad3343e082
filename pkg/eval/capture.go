// Capture-mode look-ahead (spec §4.4): whether an external command's
// stdout should be collected into a Value or left streaming to the
// terminal, decided by peeking at what follows it in the same expression
// sequence.
package eval

import "github.com/hsab-shell/hsab/pkg/parser"

// reservedKeywords are the syntactic keyword Words, all of which consume
// stack values per §4.4. Any other bare Word's final classification
// depends on the resolver (definitions/aliases/builtins/plugins/executables
// are all "consuming"), so isConsumingWord treats every non-empty Word as
// consuming as well.
var reservedKeywords = map[string]bool{
	"if": true, "elseif": true, "else": true,
	"times": true, "while": true, "until": true, "break": true,
	"|": true, ">": true, ">>": true, "<": true, "2>": true, "2>>": true,
	"&>": true, "2>&1": true, "&&": true, "||": true, "&": true,
	"@": true, "apply": true,
	"parallel": true, "fork": true, "parallel-n": true, "parallel-map": true, "race": true,
	"subst": true, "fifo": true, "timeout": true, "pipestatus": true,
	"json": true, "unjson": true, ".import": true,
}

// shouldCapture implements §4.4's should_capture(E[i+1..]): true iff the
// next non-pass-through token consumes stack values. Quoted, Variable,
// LimboRef, and Block are pass-through (look past them); ScopedBlock looks
// inside its own body first.
func shouldCapture(rest []parser.Expr) bool {
	for _, e := range rest {
		switch node := e.(type) {
		case parser.Quoted, parser.Variable, parser.LimboRef, parser.Block:
			continue
		case parser.ScopedBlock:
			if shouldCapture(node.Body) {
				return true
			}
			continue
		case parser.Define:
			return true
		case parser.Word:
			return isConsumingWord(node.Text)
		default:
			return true
		}
	}
	return false
}

// isConsumingWord reports whether a bare word, once classified, is one of
// the "consumes stack values" kinds §4.4 names: reserved keywords, or
// anything that isn't a plain unresolved literal push. Since classification
// itself requires the resolver (unavailable to this free function), this
// errs toward "consuming" for anything that isn't obviously a bare literal
// push — matching the spec's intent that only truly inert tokens fail to
// trigger capture.
func isConsumingWord(s string) bool {
	if reservedKeywords[s] {
		return true
	}
	// Any other bare word may resolve to a definition, alias, builtin,
	// plugin, or executable — all consuming per §4.4 — so treat it as
	// consuming. Only an empty word is inert.
	return s != ""
}

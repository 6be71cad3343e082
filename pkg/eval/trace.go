// Debug/trace stringification (spec §4.5 steps 1 and 3): expr_to_string.
package eval

import (
	"fmt"
	"strings"

	"github.com/hsab-shell/hsab/pkg/parser"
)

func exprToString(e parser.Expr) string {
	switch node := e.(type) {
	case parser.Word:
		return node.Text
	case parser.Quoted:
		if node.Double {
			return fmt.Sprintf("%q", node.Content)
		}
		return "'" + node.Content + "'"
	case parser.Variable:
		return "$" + node.Name
	case parser.LimboRef:
		return "`" + node.ID + "`"
	case parser.Define:
		return ":" + node.Name
	case parser.Block:
		parts := make([]string, len(node.Body))
		for i, b := range node.Body {
			parts[i] = exprToString(b)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case parser.ScopedBlock:
		var header []string
		for _, a := range node.Assignments {
			header = append(header, a.Name+"="+exprToString(a.Value))
		}
		parts := make([]string, len(node.Body))
		for i, b := range node.Body {
			parts[i] = exprToString(b)
		}
		return "[" + strings.Join(header, " ") + " ; " + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprintf("%v", e)
	}
}

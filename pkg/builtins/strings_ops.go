package builtins

import (
	"strconv"
	"strings"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

// registerStrings wires `len` (stack-native so it can special-case Bytes
// and List ahead of any string fallback, per spec §4.6) plus the
// string-arg family: slice, indexof, str-replace, format, split1, rsplit1.
func registerStrings(r *Registry) {
	r.stack("len", func(h Host) error {
		v, err := h.Pop("len")
		if err != nil {
			return err
		}
		switch v.Tag {
		case value.TagBytes:
			h.Push(value.Number(float64(len(v.Bytes()))))
		case value.TagList:
			h.Push(value.Number(float64(len(v.List()))))
		default:
			h.Push(value.Number(float64(len(v.AsArg()))))
		}
		return nil
	})

	r.strArg("slice", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 3 {
			return nil, 0, errtype.StackUnderflow("slice")
		}
		s := args[2]
		start, err1 := strconv.Atoi(args[1])
		end, err2 := strconv.Atoi(args[0])
		if err1 != nil || err2 != nil {
			return nil, 0, errtype.Exec("slice requires numeric bounds")
		}
		if start < 0 {
			start = 0
		}
		if end > len(s) {
			end = len(s)
		}
		if start > end {
			start = end
		}
		return []value.Value{value.Literal(s[start:end])}, 3, nil
	})

	r.strArg("indexof", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("indexof")
		}
		idx := strings.Index(args[1], args[0])
		return []value.Value{value.Number(float64(idx))}, 2, nil
	})

	r.strArg("str-replace", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 3 {
			return nil, 0, errtype.StackUnderflow("str-replace")
		}
		out := strings.ReplaceAll(args[2], args[1], args[0])
		return []value.Value{value.Literal(out)}, 3, nil
	})

	r.strArg("format", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) == 0 {
			return nil, 0, errtype.StackUnderflow("format")
		}
		tmpl := args[0]
		rest := args[1:]
		out, used := formatTemplate(tmpl, rest)
		return []value.Value{value.Literal(out)}, 1 + used, nil
	})

	r.strArg("split1", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("split1")
		}
		parts := strings.SplitN(args[1], args[0], 2)
		if len(parts) < 2 {
			parts = append(parts, "")
		}
		return []value.Value{value.Literal(parts[0]), value.Literal(parts[1])}, 2, nil
	})

	r.strArg("rsplit1", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("rsplit1")
		}
		idx := strings.LastIndex(args[1], args[0])
		if idx < 0 {
			return []value.Value{value.Literal(""), value.Literal(args[1])}, 2, nil
		}
		return []value.Value{
			value.Literal(args[1][:idx]),
			value.Literal(args[1][idx+len(args[0]):]),
		}, 2, nil
	})
}

// formatTemplate supports both sequential `{}` and positional `{N}`
// placeholders (spec §4.6 `format`). used reports how many of args were
// consumed by sequential placeholders.
func formatTemplate(tmpl string, args []string) (string, int) {
	var b strings.Builder
	seq := 0
	usedSeq := 0
	i := 0
	for i < len(tmpl) {
		if tmpl[i] == '{' {
			end := strings.IndexByte(tmpl[i:], '}')
			if end >= 0 {
				inner := tmpl[i+1 : i+end]
				if inner == "" {
					if seq < len(args) {
						b.WriteString(args[seq])
						seq++
						if seq > usedSeq {
							usedSeq = seq
						}
					}
					i += end + 1
					continue
				}
				if n, err := strconv.Atoi(inner); err == nil && n >= 0 && n < len(args) {
					b.WriteString(args[n])
					i += end + 1
					continue
				}
			}
		}
		b.WriteByte(tmpl[i])
		i++
	}
	return b.String(), usedSeq
}

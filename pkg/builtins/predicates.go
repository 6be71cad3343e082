package builtins

import (
	"os"
	"strings"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

// pushBool pushes the predicate's Bool result and sets the exit code to
// match (spec §4.6 "Predicates (exit-code form)"): 0 = true.
func pushBool(h Host, b bool) {
	h.Push(value.Bool(b))
	if b {
		h.SetExitCode(0)
	} else {
		h.SetExitCode(1)
	}
}

func binaryPredicate(name string, f func(a, b value.Value) bool) StackFn {
	return func(h Host) error {
		b, err := h.Pop(name)
		if err != nil {
			return err
		}
		a, err := h.Pop(name)
		if err != nil {
			return err
		}
		pushBool(h, f(a, b))
		return nil
	}
}

func numCompare(name string, f func(a, b float64) bool) StackFn {
	return binaryPredicate(name, func(a, b value.Value) bool {
		return f(a.Num(), b.Num())
	})
}

func valuesEqual(a, b value.Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case value.TagNumber:
		return a.Num() == b.Num()
	case value.TagBool:
		return a.Bool() == b.Bool()
	case value.TagNil:
		return true
	default:
		return a.AsArg() == b.AsArg()
	}
}

func unaryPredicate(name string, f func(v value.Value) bool) StackFn {
	return func(h Host) error {
		v, err := h.Pop(name)
		if err != nil {
			return err
		}
		pushBool(h, f(v))
		return nil
	}
}

func registerPredicates(r *Registry) {
	r.stack("eq?", binaryPredicate("eq?", valuesEqual))
	r.stack("ne?", binaryPredicate("ne?", func(a, b value.Value) bool { return !valuesEqual(a, b) }))
	r.stack("=?", binaryPredicate("=?", valuesEqual))
	r.stack("!=?", binaryPredicate("!=?", func(a, b value.Value) bool { return !valuesEqual(a, b) }))
	r.stack("lt?", numCompare("lt?", func(a, b float64) bool { return a < b }))
	r.stack("gt?", numCompare("gt?", func(a, b float64) bool { return a > b }))
	r.stack("le?", numCompare("le?", func(a, b float64) bool { return a <= b }))
	r.stack("ge?", numCompare("ge?", func(a, b float64) bool { return a >= b }))

	r.stack("file?", unaryPredicate("file?", func(v value.Value) bool {
		info, err := os.Stat(v.AsArg())
		return err == nil && !info.IsDir()
	}))
	r.stack("dir?", unaryPredicate("dir?", func(v value.Value) bool {
		info, err := os.Stat(v.AsArg())
		return err == nil && info.IsDir()
	}))
	r.stack("exists?", unaryPredicate("exists?", func(v value.Value) bool {
		_, err := os.Stat(v.AsArg())
		return err == nil
	}))
	r.stack("empty?", unaryPredicate("empty?", func(v value.Value) bool {
		switch v.Tag {
		case value.TagList:
			return len(v.List()) == 0
		case value.TagMap:
			return v.MapLen() == 0
		case value.TagBytes:
			return len(v.Bytes()) == 0
		case value.TagNil:
			return true
		default:
			return v.AsArg() == ""
		}
	}))
	r.strArg("contains?", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("contains?")
		}
		ok := strings.Contains(args[1], args[0])
		h.SetExitCode(boolCode(ok))
		return []value.Value{value.Bool(ok)}, 2, nil
	})
	r.strArg("starts?", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("starts?")
		}
		ok := strings.HasPrefix(args[1], args[0])
		h.SetExitCode(boolCode(ok))
		return []value.Value{value.Bool(ok)}, 2, nil
	})
	r.strArg("ends?", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 2 {
			return nil, 0, errtype.StackUnderflow("ends?")
		}
		ok := strings.HasSuffix(args[1], args[0])
		h.SetExitCode(boolCode(ok))
		return []value.Value{value.Bool(ok)}, 2, nil
	})

	r.stack("number?", unaryPredicate("number?", func(v value.Value) bool { return v.Tag == value.TagNumber }))
	r.stack("string?", unaryPredicate("string?", func(v value.Value) bool {
		return v.Tag == value.TagLiteral || v.Tag == value.TagOutput
	}))
	r.stack("array?", unaryPredicate("array?", func(v value.Value) bool { return v.Tag == value.TagList }))
	r.stack("function?", unaryPredicate("function?", func(v value.Value) bool { return v.Tag == value.TagBlock }))
	r.stack("error?", unaryPredicate("error?", func(v value.Value) bool { return v.Tag == value.TagError }))
	r.stack("nil?", unaryPredicate("nil?", func(v value.Value) bool { return v.Tag == value.TagNil }))
}

func boolCode(b bool) int {
	if b {
		return 0
	}
	return 1
}

package builtins

import (
	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

// fakeHost is a minimal in-memory Host for exercising builtins in
// isolation, without pulling in pkg/eval (which itself depends on this
// package).
type fakeHost struct {
	stack     []value.Value
	exitCode  int
	env       map[string]string
	cwd       string
	limbo     map[string]value.Value
	limboSeq  int
	snapshots map[string][]value.Value
}

func newTestHost() *fakeHost {
	return &fakeHost{
		env:       map[string]string{},
		cwd:       "/tmp",
		limbo:     map[string]value.Value{},
		snapshots: map[string][]value.Value{},
	}
}

func (f *fakeHost) Push(v value.Value) { f.stack = append(f.stack, v) }

func (f *fakeHost) Pop(op string) (value.Value, error) {
	if len(f.stack) == 0 {
		return value.Value{}, errtype.StackUnderflow(op)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *fakeHost) PopN(op string, k int) ([]value.Value, error) {
	if len(f.stack) < k {
		return nil, errtype.StackUnderflow(op)
	}
	out := append([]value.Value(nil), f.stack[len(f.stack)-k:]...)
	f.stack = f.stack[:len(f.stack)-k]
	return out, nil
}

func (f *fakeHost) Peek(depth int) (value.Value, bool) {
	idx := len(f.stack) - 1 - depth
	if idx < 0 || idx >= len(f.stack) {
		return value.Value{}, false
	}
	return f.stack[idx], true
}

func (f *fakeHost) Depth() int { return len(f.stack) }

func (f *fakeHost) All() []value.Value { return append([]value.Value(nil), f.stack...) }

func (f *fakeHost) Replace(vs []value.Value) { f.stack = append([]value.Value(nil), vs...) }

func (f *fakeHost) SetExitCode(code int) { f.exitCode = code }
func (f *fakeHost) ExitCode() int        { return f.exitCode }

// RunBlock stands in for pkg/eval's real evaluator (unavailable here without
// an import cycle): it runs each expr as a builtin dispatch by its string
// form when the expr already carries one, via blockExprWord. Tests that need
// real block semantics (dip/tap/where) supply exprs built with newWordExpr.
func (f *fakeHost) RunBlock(exprs []value.Expr) (int, error) {
	for _, e := range exprs {
		if v, ok := e.(valueExpr); ok {
			f.Push(value.Value(v))
			continue
		}
		word, ok := blockExprWord(e)
		if !ok {
			continue
		}
		handled, err := New().Dispatch(f, word)
		if err != nil {
			return f.exitCode, err
		}
		if !handled {
			f.Push(value.Literal(word))
		}
	}
	return f.exitCode, nil
}

// valueExpr is a test-only stand-in for a parsed Number/Literal Expr: it
// pushes the wrapped Value verbatim rather than going through word
// dispatch, for block bodies that need a real typed operand (e.g. a
// Number a predicate compares against).
type valueExpr value.Value

// blockExprWord recognizes the wordExpr test helper type so fakeHost can
// drive a tiny subset of block evaluation without depending on pkg/parser.
func blockExprWord(e value.Expr) (string, bool) {
	if w, ok := e.(wordExpr); ok {
		return string(w), true
	}
	return "", false
}

// wordExpr is a test-only stand-in for pkg/parser.Word, used to build Block
// Values whose bodies fakeHost.RunBlock can interpret.
type wordExpr string

func (f *fakeHost) Getenv(name string) string    { return f.env[name] }
func (f *fakeHost) Setenv(name, val string)       { f.env[name] = val }
func (f *fakeHost) Cwd() string                    { return f.cwd }
func (f *fakeHost) PreviewLen() int                { return 200 }

func (f *fakeHost) ToLimbo(v value.Value) string {
	f.limboSeq++
	id := "L" + string(rune('0'+f.limboSeq))
	f.limbo[id] = v
	return id
}
func (f *fakeHost) FromLimbo(id string) (value.Value, bool) {
	v, ok := f.limbo[id]
	return v, ok
}

func (f *fakeHost) SaveSnapshot(name string) string {
	f.snapshots[name] = f.All()
	return name
}
func (f *fakeHost) RestoreSnapshot(name string) bool {
	vs, ok := f.snapshots[name]
	if !ok {
		return false
	}
	f.Replace(vs)
	return true
}
func (f *fakeHost) ListSnapshots() []string {
	var out []string
	for k := range f.snapshots {
		out = append(out, k)
	}
	return out
}
func (f *fakeHost) DeleteSnapshot(name string) bool {
	if _, ok := f.snapshots[name]; !ok {
		return false
	}
	delete(f.snapshots, name)
	return true
}
func (f *fakeHost) ClearSnapshots() { f.snapshots = map[string][]value.Value{} }
func (f *fakeHost) SnapshotValues(name string) ([]value.Value, bool) {
	vs, ok := f.snapshots[name]
	return vs, ok
}

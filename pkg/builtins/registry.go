// Package builtins is hsab's closed builtin registry (spec C6): the
// single source of truth the resolver consults for "known builtin"
// membership, split into stack-native and string-arg populations.
// Grounded on the teacher's category-file layout under pkg/commands
// (one file per concern — container.go, image.go, volume.go, ...) and on
// pkg/i18n's "one big registry built by a constructor that calls many
// small register* helpers" shape.
package builtins

import (
	"github.com/hsab-shell/hsab/pkg/value"
)

// Host is the slice of evaluator capabilities builtins need. Defined here
// (not in pkg/eval) so pkg/eval can depend on pkg/builtins without a cycle:
// *eval.Evaluator satisfies this interface structurally.
type Host interface {
	Push(v value.Value)
	Pop(op string) (value.Value, error)
	PopN(op string, k int) ([]value.Value, error)
	Peek(depth int) (value.Value, bool)
	Depth() int
	All() []value.Value
	Replace([]value.Value)

	SetExitCode(code int)
	ExitCode() int

	// RunBlock evaluates a Block's expressions against the host's own
	// live stack and returns the exit code they left behind.
	RunBlock(exprs []value.Expr) (exitCode int, err error)

	Getenv(name string) string
	Setenv(name, val string)
	Cwd() string
	PreviewLen() int

	ToLimbo(v value.Value) string
	FromLimbo(id string) (value.Value, bool)

	SaveSnapshot(name string) string
	RestoreSnapshot(name string) bool
	ListSnapshots() []string
	DeleteSnapshot(name string) bool
	ClearSnapshots()
	SnapshotValues(name string) ([]value.Value, bool)
}

// StackFn is a stack-native builtin: it pops/pushes Values itself.
type StackFn func(h Host) error

// StringArgFn is a string-arg builtin. args is the greedily-popped
// argument vector in LIFO order (args[0] was the stack top). It returns
// how many of args it consumed (from the front) and what to push; unused
// args are restored to the stack in their original order by the
// dispatcher.
type StringArgFn func(h Host, args []string) (push []value.Value, consumed int, err error)

// Registry is the closed enumerated builtin set.
type Registry struct {
	stackNative map[string]StackFn
	stringArg   map[string]StringArgFn
}

func New() *Registry {
	r := &Registry{
		stackNative: map[string]StackFn{},
		stringArg:   map[string]StringArgFn{},
	}
	registerArithmetic(r)
	registerPredicates(r)
	registerLogical(r)
	registerStrings(r)
	registerPaths(r)
	registerStackMeta(r)
	registerRecords(r)
	registerTables(r)
	registerAggregations(r)
	registerSerialization(r)
	registerVector(r)
	registerEncoding(r)
	registerBigInt(r)
	registerErrorHandling(r)
	registerTypeInfo(r)
	registerCombinators(r)
	registerListOps(r)
	registerSnapshots(r)
	registerHTTP(r)
	return r
}

func (r *Registry) stack(name string, fn StackFn)         { r.stackNative[name] = fn }
func (r *Registry) strArg(name string, fn StringArgFn)     { r.stringArg[name] = fn }

// Has reports builtin-set membership, consulted by the resolver (spec
// §4.2 step 3).
func (r *Registry) Has(name string) bool {
	if _, ok := r.stackNative[name]; ok {
		return true
	}
	_, ok := r.stringArg[name]
	return ok
}

// maxGreedyArgs bounds how many consecutive coercible stack values a
// string-arg builtin's argv can contain, guarding against an unbounded
// scan on a very deep stack.
const maxGreedyArgs = 64

// greedyPopArgs pops consecutive non-Block, non-Marker, non-Nil values
// (spec §4.6 "string-arg builtins"), returning them coerced via AsArg in
// LIFO order alongside the raw Values (needed to push unused ones back
// without losing their original type).
func greedyPopArgs(h Host) (args []string, raw []value.Value) {
	for len(args) < maxGreedyArgs {
		v, ok := h.Peek(0)
		if !ok {
			break
		}
		if v.Tag == value.TagBlock || v.Tag == value.TagMarker || v.Tag == value.TagNil {
			break
		}
		if !v.Coercible() {
			break
		}
		popped, _ := h.Pop("string-arg")
		args = append(args, popped.AsArg())
		raw = append(raw, popped)
	}
	return args, raw
}

func pushBackUnused(h Host, raw []value.Value, consumed int) {
	for i := len(raw) - 1; i >= consumed; i-- {
		h.Push(raw[i])
	}
}

// Dispatch tries the stack-native population first, then string-arg
// (spec §4.6: "tried stack-native first"). handled reports whether name
// was in the registry at all.
func (r *Registry) Dispatch(h Host, name string) (handled bool, err error) {
	if fn, ok := r.stackNative[name]; ok {
		return true, fn(h)
	}
	if fn, ok := r.stringArg[name]; ok {
		args, raw := greedyPopArgs(h)
		push, consumed, err := fn(h, args)
		pushBackUnused(h, raw, consumed)
		for _, v := range push {
			h.Push(v)
		}
		return true, err
	}
	return false, nil
}

// Package eval is hsab's evaluator core (spec C5/C8): the stack machine
// that drives an expression sequence, resolves bare words through the
// 8-step literal dispatch (§4.5), and hosts control flow, user
// definitions, and local scopes. Grounded on the teacher's pkg/app "single
// driving loop consulting several small collaborator structs" shape
// (app.go's Run orchestrating gui/OSCommand/config), generalized from a
// TUI event loop to a line-at-a-time expression loop.
package eval

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/hsab-shell/hsab/pkg/builtins"
	"github.com/hsab-shell/hsab/pkg/concurrency"
	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/module"
	"github.com/hsab-shell/hsab/pkg/parser"
	"github.com/hsab-shell/hsab/pkg/process"
	"github.com/hsab-shell/hsab/pkg/resolver"
	"github.com/hsab-shell/hsab/pkg/stack"
	"github.com/hsab-shell/hsab/pkg/value"
)

const defaultMaxRecursion = 10000
const defaultPreviewLen = 8

// frame is one local-scope activation (spec §3.3 "Local scopes"): saved
// env vars to restore on exit, plus structured locals that cannot
// round-trip through an env var string.
type frame struct {
	savedEnv  map[string]*string // nil value means the var didn't exist before
	locals    map[string]value.Value
	returning bool
}

// Evaluator is hsab's C5 stack machine. It satisfies builtins.Host
// structurally, and is passed as such to Registry.Dispatch.
type Evaluator struct {
	Stack *stack.Stack

	Log *logrus.Entry

	Registry *builtins.Registry
	Resolver *resolver.Resolver
	Process  *process.Engine
	Futures  *concurrency.Manager
	Modules  *module.Loader

	definitions map[string]value.Value // name -> Block
	aliases     map[string]value.Value // name -> Block
	traps       map[string]value.Value // signal -> Block

	frames     []*frame
	depth      int
	maxRec     int
	previewLen int

	// ifChainTaken tracks whether a branch has already fired in the
	// if/elseif/else chain currently being evaluated (spec §4.8). Saved,
	// reset to nil, and restored around every Run so a nested chain
	// inside a branch body can't corrupt its enclosing chain's state.
	ifChainTaken *bool

	exitCode    int
	pipestatus  []int
	captureMode bool

	cwd string

	Trace bool
	Debug bool

	Stdout *os.File
	Stderr *os.File
	Stdin  *os.File

	// PluginCommands, when set, reports whether name is a registered plugin
	// command (spec §4.2 step 4). Left nil until pkg/plugin attaches itself.
	PluginCommands func(name string) bool

	// PluginCall, when set, dispatches a plugin command (spec §4.11
	// "Dispatch protocol"): args is the greedily-collected argv, stack is
	// the full evaluator stack JSON-generic encoded bottom-to-top. It
	// returns the plugin's exit code and its stack after the call, in the
	// same encoding, to be mirrored back in.
	PluginCall func(cmd string, args []string, stack []interface{}) (int32, []interface{}, error)

	// DebugHook, when set, is invoked with the stringified expr before each
	// step while Debug is true — the extension point a REPL front-end uses
	// to implement the n/c/s/b/q prompt (spec §4.5 step 1).
	DebugHook func(exprStr string)
}

func New(log *logrus.Entry) *Evaluator {
	cwd, _ := os.Getwd()
	ev := &Evaluator{
		Stack:       stack.New(),
		Log:         log,
		Futures:     concurrency.NewManager(),
		Modules:     module.NewLoader(),
		definitions: map[string]value.Value{},
		aliases:     map[string]value.Value{},
		traps:       map[string]value.Value{},
		maxRec:      defaultMaxRecursion,
		previewLen:  defaultPreviewLen,
		cwd:         cwd,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Stdin:       os.Stdin,
	}
	ev.Process = process.NewEngine(log)
	ev.Registry = builtins.New()
	ev.Resolver = resolver.New(resolver.Lookups{
		HasDefinition: ev.hasDefinition,
		HasAlias:      ev.hasAlias,
		HasBuiltin:    ev.Registry.Has,
		HasPlugin:     ev.hasPlugin,
	})
	if v := os.Getenv("HSAB_MAX_RECURSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ev.maxRec = n
		}
	}
	if v := os.Getenv("HSAB_PREVIEW_LEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ev.previewLen = n
		}
	}
	return ev
}

func (ev *Evaluator) hasDefinition(name string) bool { _, ok := ev.definitions[name]; return ok }
func (ev *Evaluator) hasAlias(name string) bool      { _, ok := ev.aliases[name]; return ok }

// hasPlugin is overridden once pkg/plugin's command table is wired in;
// until a plugin host is attached no word resolves as Plugin.
func (ev *Evaluator) hasPlugin(name string) bool {
	if ev.PluginCommands == nil {
		return false
	}
	return ev.PluginCommands(name)
}

// --- builtins.Host ---

func (ev *Evaluator) Push(v value.Value)              { ev.Stack.Push(v) }
func (ev *Evaluator) Pop(op string) (value.Value, error) {
	v, err := ev.Stack.Pop(op)
	if err != nil {
		return v, toEvalError(err, op)
	}
	return v, nil
}
func (ev *Evaluator) PopN(op string, k int) ([]value.Value, error) {
	vs, err := ev.Stack.PopN(op, k)
	if err != nil {
		return vs, toEvalError(err, op)
	}
	return vs, nil
}
func (ev *Evaluator) Peek(depth int) (value.Value, bool) { return ev.Stack.Peek(depth) }
func (ev *Evaluator) Depth() int                         { return ev.Stack.Depth() }
func (ev *Evaluator) All() []value.Value                 { return ev.Stack.All() }
func (ev *Evaluator) Replace(vs []value.Value)           { ev.Stack.Replace(vs) }

func (ev *Evaluator) SetExitCode(code int) { ev.exitCode = code }
func (ev *Evaluator) ExitCode() int        { return ev.exitCode }

func (ev *Evaluator) RunBlock(exprs []value.Expr) (int, error) {
	err := ev.Run(parser.FromValueExprs(exprs))
	return ev.exitCode, err
}

func (ev *Evaluator) Getenv(name string) string {
	if v, ok := ev.lookupLocal(name); ok {
		return v.AsArg()
	}
	return os.Getenv(name)
}
func (ev *Evaluator) Setenv(name, val string) { os.Setenv(name, val) }
func (ev *Evaluator) Cwd() string             { return ev.cwd }
func (ev *Evaluator) PreviewLen() int         { return ev.previewLen }

// SetMaxRecursion overrides the recursion ceiling from its HSAB_MAX_RECURSION
// env default, for callers applying a loaded UserConfig.MaxRecursion.
func (ev *Evaluator) SetMaxRecursion(n int) {
	if n > 0 {
		ev.maxRec = n
	}
}

// SetPreviewLen overrides the truncation length table/list previews use
// (spec's UserConfig.PreviewLength), applied once at startup from config.
func (ev *Evaluator) SetPreviewLen(n int) {
	if n > 0 {
		ev.previewLen = n
	}
}

func (ev *Evaluator) ToLimbo(v value.Value) string      { return ev.Stack.ToLimbo(v) }
func (ev *Evaluator) FromLimbo(id string) (value.Value, bool) { return ev.Stack.FromLimbo(id) }

func (ev *Evaluator) SaveSnapshot(name string) string    { return ev.Stack.SaveSnapshot(name) }
func (ev *Evaluator) RestoreSnapshot(name string) bool    { return ev.Stack.RestoreSnapshot(name) }
func (ev *Evaluator) ListSnapshots() []string             { return ev.Stack.ListSnapshots() }
func (ev *Evaluator) DeleteSnapshot(name string) bool      { return ev.Stack.DeleteSnapshot(name) }
func (ev *Evaluator) ClearSnapshots()                      { ev.Stack.ClearSnapshots() }
func (ev *Evaluator) SnapshotValues(name string) ([]value.Value, bool) {
	return ev.Stack.Snapshot(name)
}

func (ev *Evaluator) lookupLocal(name string) (value.Value, bool) {
	for i := len(ev.frames) - 1; i >= 0; i-- {
		if v, ok := ev.frames[i].locals[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

func toEvalError(err error, op string) error {
	if _, ok := err.(stack.ErrUnderflow); ok {
		return errtype.StackUnderflow(op)
	}
	return err
}

// --- Drive loop ---

// Run evaluates exprs in sequence (spec §4.5's eval(exprs) contract). It
// is also the entry point RunBlock uses for Block bodies, `try`, and
// every other "run this expression sequence against the live stack" site.
func (ev *Evaluator) Run(exprs []parser.Expr) error {
	savedChain := ev.ifChainTaken
	ev.ifChainTaken = nil
	defer func() { ev.ifChainTaken = savedChain }()
	return ev.runExprs(exprs, nil)
}

// runExprs is the shared per-expression drive loop. fr is non-nil only
// when running a user definition's body, enabling early exit on
// `.return` (spec §3.3/§4.8).
func (ev *Evaluator) runExprs(exprs []parser.Expr, fr *frame) error {
	for i, e := range exprs {
		if fr != nil && fr.returning {
			break
		}
		if ev.Debug {
			ev.debugHook(e)
		}
		ev.captureMode = shouldCapture(exprs[i+1:])
		if ev.Trace {
			ev.traceLine(e)
		}
		if err := ev.evalOne(e); err != nil {
			return err
		}
		if fr != nil && fr.returning {
			break
		}
	}
	return nil
}

func (ev *Evaluator) traceLine(e parser.Expr) {
	top, ok := ev.Stack.Peek(0)
	topStr := "<empty>"
	if ok {
		topStr = top.AsArg()
	}
	fmt.Fprintf(ev.Stderr, ">>> %s │ %s\n", exprToString(e), topStr)
}

func (ev *Evaluator) debugHook(e parser.Expr) {
	// Breakpoint matching and the step-mode REPL prompt are terminal-UI
	// concerns (out of scope per spec §1); this hook is the seam a REPL
	// front-end wires a real prompt into.
	if ev.DebugHook != nil {
		ev.DebugHook(exprToString(e))
	}
}

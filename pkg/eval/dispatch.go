// Top-level expression dispatch (spec §4.2/§4.5): the per-Expr-kind
// switch, the reserved-keyword fast path, the 8-step literal dispatch
// procedure, and user-definition calls with recursion-cap/local-frame
// management. This is the file every other *_dispatch.go in this package
// feeds into.
package eval

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/module"
	"github.com/hsab-shell/hsab/pkg/parser"
	"github.com/hsab-shell/hsab/pkg/process"
	"github.com/hsab-shell/hsab/pkg/value"
)

// evalOne dispatches a single Expr node by kind (spec §4.5 step 4).
func (ev *Evaluator) evalOne(e parser.Expr) error {
	switch node := e.(type) {
	case parser.Word:
		return ev.evalWord(node.Text)
	case parser.Quoted:
		ev.Push(value.Literal(ev.interpolate(node)))
		return nil
	case parser.Variable:
		ev.Push(value.Literal(ev.Getenv(node.Name)))
		return nil
	case parser.LimboRef:
		v, ok := ev.FromLimbo(node.ID)
		if !ok {
			v = value.Nil()
		}
		ev.Push(v)
		return nil
	case parser.Block:
		ev.Push(value.Block(parser.ToValueExprs(node.Body)))
		return nil
	case parser.ScopedBlock:
		return ev.execScopedBlock(node)
	case parser.Define:
		block, err := ev.Pop("define")
		if err != nil {
			return err
		}
		if block.Tag != value.TagBlock {
			return errtype.TypeMismatch("Block", value.TypeOf(block))
		}
		ev.definitions[node.Name] = block
		return nil
	default:
		return errtype.Exec(fmt.Sprintf("unrecognized expression node %T", e))
	}
}

// interpolate resolves $VAR/${VAR} references inside a double-quoted
// string; single-quoted Quoted nodes pass through unchanged (spec §4.1).
func (ev *Evaluator) interpolate(q parser.Quoted) string {
	if !q.Double {
		return q.Content
	}
	var b strings.Builder
	s := q.Content
	for i := 0; i < len(s); {
		if s[i] != '$' {
			b.WriteByte(s[i])
			i++
			continue
		}
		rest := s[i+1:]
		if strings.HasPrefix(rest, "{") {
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				b.WriteByte(s[i])
				i++
				continue
			}
			name := rest[1:end]
			b.WriteString(ev.Getenv(name))
			i += end + 2
			continue
		}
		j := 0
		for j < len(rest) && isNameByte(rest[j]) {
			j++
		}
		if j == 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		b.WriteString(ev.Getenv(rest[:j]))
		i += j + 1
	}
	return b.String()
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// evalWord dispatches the syntactic keywords handled before the 8-step
// literal procedure; user definitions can never shadow them (spec
// §4.8/§4.9/§4.10 each name their own reserved surface forms).
func (ev *Evaluator) evalWord(s string) error {
	switch s {
	case "if":
		return ev.execIf()
	case "elseif":
		return ev.execElseif()
	case "else":
		return ev.execElse()
	case "times":
		return ev.execTimes()
	case "while":
		return ev.execWhileUntil(false)
	case "until":
		return ev.execWhileUntil(true)
	case "break":
		return errtype.ErrBreak

	case "|":
		return ev.execPipe()
	case ">":
		return ev.execRedirect(process.RedirOut)
	case ">>":
		return ev.execRedirect(process.RedirAppend)
	case "<":
		return ev.execRedirect(process.RedirIn)
	case "2>":
		return ev.execRedirect(process.RedirErr)
	case "2>>":
		return ev.execRedirect(process.RedirErrAppend)
	case "&>":
		return ev.execRedirect(process.RedirBoth)
	case "2>&1":
		return ev.execRedirect(process.RedirErrToOut)
	case "&&":
		return ev.execLogical(true)
	case "||":
		return ev.execLogical(false)
	case "&":
		return ev.execBackground()
	case "@", "apply":
		return ev.execApply()
	case "parallel":
		return ev.execParallel()
	case "fork":
		return ev.execFork()
	case "parallel-n":
		return ev.execParallelN()
	case "parallel-map":
		return ev.execParallelMap()
	case "race":
		return ev.execRace()
	case "subst":
		return ev.execSubst()
	case "fifo":
		return ev.execFifo()
	case "timeout":
		return ev.execTimeout()
	case "pipestatus":
		return ev.execPipestatus()

	case ".import":
		return ev.execImport()

	case "async":
		return ev.execAsync()
	case "delay-async":
		return ev.execDelayAsync()
	case "delay":
		return ev.execDelay()
	case "await":
		return ev.execAwait()
	case "future-status":
		return ev.execFutureStatus()
	case "future-result":
		return ev.execFutureResult()
	case "future-cancel":
		return ev.execFutureCancel()
	case "await-all":
		return ev.execAwaitAll()
	case "future-await-n":
		return ev.execFutureAwaitN()
	case "future-race":
		return ev.execFutureRace()
	case "future-map":
		return ev.execFutureMap()

	case ".local":
		return ev.execLocal()
	case ".return":
		return ev.execReturn()
	}
	return ev.evalLiteral(s)
}

// evalLiteral implements the 8-step bare-Literal(s) dispatch (spec §4.5).
func (ev *Evaluator) evalLiteral(s string) error {
	if block, ok := ev.definitions[s]; ok {
		return ev.callDefinition(s, block)
	}
	if block, ok := ev.aliases[s]; ok {
		_, err := ev.RunBlock(block.Exprs())
		return err
	}
	if s == "." && ev.Depth() > 0 {
		return ev.execSource()
	}
	if s == "paste-here" {
		return ev.execPasteHere()
	}
	if handled, err := ev.Registry.Dispatch(ev, s); handled {
		return err
	}
	if ev.PluginCommands != nil && ev.PluginCommands(s) {
		return ev.dispatchPlugin(s)
	}
	if _, ok := ev.Resolver.FindExecutable(s); ok {
		return ev.executeCommand(s)
	}
	ev.pushLiteralOrNumber(s)
	return nil
}

// pushLiteralOrNumber implements step 8's fallback: a word that parses
// cleanly as a number becomes Number(f), matching spec's worked example
// (`[42] async await` → top-of-stack `Number(42)`); anything else is a
// plain Literal.
func (ev *Evaluator) pushLiteralOrNumber(s string) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		ev.Push(value.Number(f))
		return
	}
	ev.Push(value.Literal(s))
}

// dispatchPlugin is the seam pkg/plugin wires a real ABI call into (spec
// §4.11 "Dispatch protocol"): greedily collect argv the same way a
// string-arg builtin would, mirror the whole stack out, invoke the
// plugin, then mirror its stack back in and set the exit code it
// returned. Until a plugin host is attached, PluginCall is always nil so
// this falls back to an exec-style error.
func (ev *Evaluator) dispatchPlugin(name string) error {
	if ev.PluginCall == nil {
		return errtype.Exec(fmt.Sprintf("plugin command %q: no plugin host attached", name))
	}

	args, raw := greedyPluginArgs(ev)
	mirrored := make([]interface{}, len(ev.Stack.All()))
	for i, v := range ev.Stack.All() {
		mirrored[i] = valueToGeneric(v)
	}

	code, out, err := ev.PluginCall(name, args, mirrored)
	if err != nil {
		for i := len(raw) - 1; i >= 0; i-- {
			ev.Push(raw[i])
		}
		return errtype.Exec(fmt.Sprintf("plugin command %q: %v", name, err))
	}

	values := make([]value.Value, len(out))
	for i, g := range out {
		values[i] = genericToValue(g)
	}
	ev.Stack.Replace(values)
	ev.SetExitCode(int(code))
	return nil
}

// greedyPluginArgs pops consecutive coercible, non-Block/Marker/Nil values
// as a plugin command's argv, mirroring greedyPopArgs in pkg/builtins
// (kept as a separate copy: that one is unexported to its package and
// operates on the builtins.Host interface, not *Evaluator directly).
func greedyPluginArgs(ev *Evaluator) (args []string, raw []value.Value) {
	const maxGreedyArgs = 64
	for len(args) < maxGreedyArgs {
		v, ok := ev.Stack.Peek(0)
		if !ok {
			break
		}
		if v.Tag == value.TagBlock || v.Tag == value.TagMarker || v.Tag == value.TagNil {
			break
		}
		if !v.Coercible() {
			break
		}
		popped, _ := ev.Stack.Pop("plugin")
		args = append(args, popped.AsArg())
		raw = append(raw, popped)
	}
	return args, raw
}

// execSource implements step 3's `.` special case: pop a path, read and
// parse its contents, and run them inline against the live stack (no
// namespace renaming, unlike `.import`).
func (ev *Evaluator) execSource() error {
	pathV, err := ev.Pop(".")
	if err != nil {
		return err
	}
	if !pathV.Coercible() {
		return errtype.TypeMismatch("coercible path", value.TypeOf(pathV))
	}
	home, _ := os.UserHomeDir()
	canonical, err := module.Resolve(pathV.AsArg(), ev.Cwd(), home)
	if err != nil {
		return errtype.Io(err)
	}
	src, err := module.ReadSource(canonical)
	if err != nil {
		return errtype.Io(err)
	}
	exprs, err := parseSource(src)
	if err != nil {
		return errtype.Exec(err.Error())
	}
	return ev.Run(exprs)
}

// execPasteHere implements `paste-here` (spec §4.5 step 4): best-effort
// clipboard read, OS-dependent, empty Literal on any failure.
func (ev *Evaluator) execPasteHere() error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbpaste")
	case "windows":
		cmd = exec.Command("powershell", "-NoProfile", "-Command", "Get-Clipboard")
	default:
		if _, err := exec.LookPath("xclip"); err == nil {
			cmd = exec.Command("xclip", "-selection", "clipboard", "-o")
		} else {
			cmd = exec.Command("xsel", "--clipboard", "--output")
		}
	}
	out, err := cmd.Output()
	if err != nil {
		ev.Push(value.Literal(""))
		return nil
	}
	ev.Push(value.Literal(strings.TrimRight(string(out), "\n")))
	return nil
}

// callDefinition invokes a user definition (spec §4.8 "User definitions"):
// recursion-capped, with its own local-scope frame torn down (restoring
// every env var it touched) regardless of how the body exits.
func (ev *Evaluator) callDefinition(name string, block value.Value) error {
	if ev.depth >= ev.maxRec {
		return errtype.Exec(fmt.Sprintf("max recursion depth (%d) exceeded calling %q", ev.maxRec, name))
	}
	ev.depth++
	defer func() { ev.depth-- }()

	fr := &frame{savedEnv: map[string]*string{}, locals: map[string]value.Value{}}
	ev.frames = append(ev.frames, fr)
	defer ev.popFrame()

	savedChain := ev.ifChainTaken
	ev.ifChainTaken = nil
	defer func() { ev.ifChainTaken = savedChain }()

	return ev.runExprs(parser.FromValueExprs(block.Exprs()), fr)
}

// popFrame tears down the top local-scope frame, restoring every env var
// it touched (unsetting ones that didn't exist before the call).
func (ev *Evaluator) popFrame() {
	fr := ev.frames[len(ev.frames)-1]
	ev.frames = ev.frames[:len(ev.frames)-1]
	for k, prior := range fr.savedEnv {
		if prior == nil {
			os.Unsetenv(k)
		} else {
			os.Setenv(k, *prior)
		}
	}
}

func (ev *Evaluator) currentFrame() (*frame, bool) {
	if len(ev.frames) == 0 {
		return nil, false
	}
	return ev.frames[len(ev.frames)-1], true
}

// isStructuredLocal reports whether v's tag cannot round-trip through an
// env-var string, per spec §3.3's local-frame split.
func isStructuredLocal(v value.Value) bool {
	switch v.Tag {
	case value.TagBlock, value.TagList, value.TagMap, value.TagTable,
		value.TagBytes, value.TagBigInt, value.TagMedia, value.TagFuture:
		return true
	default:
		return false
	}
}

// execLocal implements `.local NAME` (spec §3.3/§4.8): pops NAME then the
// Value below it, storing it in the current frame's structured-locals map
// if it can't round-trip through an env string, else as an env var (with
// the prior value saved for restoration on frame exit).
func (ev *Evaluator) execLocal() error {
	nameV, err := ev.Pop(".local")
	if err != nil {
		return err
	}
	val, err := ev.Pop(".local")
	if err != nil {
		return err
	}
	fr, ok := ev.currentFrame()
	if !ok {
		return errtype.Exec(".local used outside a user definition")
	}
	name := nameV.AsArg()
	if isStructuredLocal(val) {
		fr.locals[name] = val
		return nil
	}
	if _, saved := fr.savedEnv[name]; !saved {
		if prior, existed := os.LookupEnv(name); existed {
			p := prior
			fr.savedEnv[name] = &p
		} else {
			fr.savedEnv[name] = nil
		}
	}
	os.Setenv(name, val.AsArg())
	return nil
}

// execReturn implements `.return` (spec §4.8): sets the current frame's
// early-exit flag, letting runExprs stop the body early.
func (ev *Evaluator) execReturn() error {
	fr, ok := ev.currentFrame()
	if !ok {
		return errtype.Exec(".return used outside a user definition")
	}
	fr.returning = true
	return nil
}

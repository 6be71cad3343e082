// Process-engine keyword dispatch (spec C7): the reserved process
// operators (pipe, redirection, logical combinators, background,
// parallel/fork/race family, process substitution, timeout, pipestatus)
// and plain external-command execution, all bridging into
// pkg/process.Engine. Grounded on the teacher's os.go "build argv, run,
// capture or stream" shape.
package eval

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh/terminal"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/process"
	"github.com/hsab-shell/hsab/pkg/value"
)

// executeCommand is literal-dispatch step 7 (spec §4.7 execute_command):
// greedily pop argv, expand each token, and spawn argv[0]=name.
func (ev *Evaluator) executeCommand(name string) error {
	argv := append([]string{name}, ev.popArgv()...)
	return ev.runArgv(argv)
}

// popArgv greedily pops non-Block, non-Marker args (Nil dropped silently),
// coerces via AsArg, expands tilde/glob, and returns them in call order.
func (ev *Evaluator) popArgv() []string {
	var rev []string
	for {
		v, ok := ev.Peek(0)
		if !ok || v.Tag == value.TagBlock || v.Tag == value.TagMarker {
			break
		}
		if !v.Coercible() {
			break
		}
		popped, _ := ev.Pop("execute_command")
		if popped.Tag == value.TagNil {
			continue
		}
		rev = append(rev, ev.expandWord(popped.AsArg()))
	}
	args := make([]string, len(rev))
	for i, a := range rev {
		args[len(rev)-1-i] = a
	}
	return args
}

// expandWord applies tilde then glob expansion to one argv token, unless
// it looks like a predicate word (ends with `?`, no slash or glob chars),
// per spec §4.7.
func (ev *Evaluator) expandWord(w string) string {
	if looksLikePredicate(w) {
		return w
	}
	expanded := expandTildeWord(w, ev.Getenv("HOME"))
	if strings.ContainsAny(expanded, "*?[") {
		matches, err := filepath.Glob(expanded)
		if err == nil && len(matches) > 0 {
			return strings.Join(matches, " ")
		}
	}
	return expanded
}

func looksLikePredicate(w string) bool {
	return strings.HasSuffix(w, "?") && !strings.ContainsAny(w[:len(w)-1], "/*?[]")
}

func expandTildeWord(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") && home != "" {
		return filepath.Join(home, p[2:])
	}
	return p
}

// runArgv runs argv through the process engine honoring the capture vs
// interactive rule (spec §4.7) and pushes the result.
func (ev *Evaluator) runArgv(argv []string) error {
	capture := ev.captureMode && !isStdoutTTY()
	res, err := ev.Process.Run(process.Spec{Argv: argv, Dir: ev.Cwd(), Capture: capture})
	if err != nil {
		return errtype.Exec(err.Error())
	}
	ev.SetExitCode(res.ExitCode)
	ev.Process.Pipestatus = []int{res.ExitCode}
	if capture {
		ev.pushOutput(res.Stdout)
	}
	return nil
}

func (ev *Evaluator) pushOutput(s string) {
	if s == "" {
		ev.Push(value.Nil())
		return
	}
	ev.Push(value.Output(s))
}

func isStdoutTTY() bool {
	return terminal.IsTerminal(int(os.Stdout.Fd()))
}

// execPipe implements `|` (spec §4.7): pop consumer Block and producer
// Value; the producer's stringified content becomes the consumer's stdin.
func (ev *Evaluator) execPipe() error {
	consumer, err := ev.Pop("|")
	if err != nil {
		return err
	}
	if consumer.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(consumer))
	}
	producer, err := ev.Pop("|")
	if err != nil {
		return err
	}
	argv, err := ev.argvOfBlock(consumer)
	if err != nil {
		return err
	}
	res, err := ev.Process.Pipe(argv, producer.AsArg(), nil, ev.Cwd())
	if err != nil {
		return errtype.Exec(err.Error())
	}
	ev.SetExitCode(res.ExitCode)
	ev.pushOutput(res.Stdout)
	return nil
}

// argvOfBlock resolves a single-command Block (as used by `|` and the
// redirection operators) to an argv by running its body against a scratch
// stack and collecting the resulting argv the same way popArgv does.
func (ev *Evaluator) argvOfBlock(block value.Value) ([]string, error) {
	before := ev.All()
	ev.Replace(nil)
	defer ev.Replace(before)
	if _, err := ev.RunBlock(block.Exprs()); err != nil {
		return nil, err
	}
	argv := ev.popArgv()
	if cmd, ok := ev.Peek(0); ok {
		if !cmd.Coercible() {
			return nil, errtype.TypeMismatch("coercible command name", value.TypeOf(cmd))
		}
		popped, _ := ev.Pop("argv")
		argv = append([]string{popped.AsArg()}, argv...)
	}
	if len(argv) == 0 {
		return nil, errtype.Exec("empty command block")
	}
	return argv, nil
}

// redirectPath pulls a literal/quoted filename out of a path-Block, the
// way `>`, `>>`, `<`, and the stderr variants require (spec §4.7).
func (ev *Evaluator) redirectPath(block value.Value) (string, error) {
	if block.Tag != value.TagBlock {
		return "", errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	before := ev.All()
	ev.Replace(nil)
	defer ev.Replace(before)
	if _, err := ev.RunBlock(block.Exprs()); err != nil {
		return "", err
	}
	v, ok := ev.Peek(0)
	if !ok {
		return "", errtype.Exec("empty redirect path block")
	}
	ev.Pop("redirect-path")
	return expandTildeWord(v.AsArg(), ev.Getenv("HOME")), nil
}

func (ev *Evaluator) execRedirect(op process.RedirectOp) error {
	pathBlock, err := ev.Pop("redirect")
	if err != nil {
		return err
	}
	path, err := ev.redirectPath(pathBlock)
	if err != nil {
		return err
	}
	cmdBlock, err := ev.Pop("redirect")
	if err != nil {
		return err
	}
	argv, err := ev.argvOfBlock(cmdBlock)
	if err != nil {
		return err
	}
	res, err := ev.Process.Redirect(op, argv, path, nil, ev.Cwd())
	if err != nil {
		return errtype.Io(err)
	}
	ev.SetExitCode(res.ExitCode)
	if op == process.RedirIn || op == process.RedirErrToOut {
		ev.pushOutput(res.Stdout)
	} else {
		ev.Push(value.Nil())
	}
	return nil
}

// execLogical implements `&&`/`||` (spec §4.7): pops two Blocks, left then
// right, running right only when the combinator's condition on left's
// exit code holds.
func (ev *Evaluator) execLogical(and bool) error {
	right, err := ev.Pop("logical")
	if err != nil {
		return err
	}
	left, err := ev.Pop("logical")
	if err != nil {
		return err
	}
	if left.Tag != value.TagBlock || right.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(left))
	}
	if _, err := ev.RunBlock(left.Exprs()); err != nil {
		return err
	}
	leftOK := ev.ExitCode() == 0
	if (and && !leftOK) || (!and && leftOK) {
		return nil
	}
	_, err = ev.RunBlock(right.Exprs())
	return err
}

// execBackground implements `&` (spec §4.7).
func (ev *Evaluator) execBackground() error {
	argv := ev.popArgv()
	if len(argv) == 0 {
		return errtype.Exec("empty background command")
	}
	job, err := ev.Process.Background(argv, nil, ev.Cwd())
	if err != nil {
		return errtype.Exec(err.Error())
	}
	os.Stderr.WriteString("[" + strconv.Itoa(job.ID) + "] " + strconv.Itoa(job.Pid) + "\n")
	return nil
}

// execApply implements `@`/`apply`: run a Block against whatever is
// currently on top of the stack, leaving its result in place (spec lists
// `Apply` among the process operators but leaves its exact contract to the
// implementer; this mirrors `dip`'s "run a block with an operand in
// scope" discipline without hiding the operand from the block).
func (ev *Evaluator) execApply() error {
	block, err := ev.Pop("apply")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	_, err = ev.RunBlock(block.Exprs())
	return err
}

// execParallel implements `parallel`: pops a Block of Blocks, runs each on
// its own goroutine, joins, and concatenates their outputs in source
// order (spec §4.7).
func (ev *Evaluator) execParallel() error {
	outer, err := ev.Pop("parallel")
	if err != nil {
		return err
	}
	if outer.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(outer))
	}
	blocks, err := ev.innerBlocks(outer)
	if err != nil {
		return err
	}
	results := ev.runConcurrently(blocks, len(blocks))
	var all []value.Value
	for _, r := range results {
		all = append(all, r...)
	}
	ev.Push(value.List(all))
	return nil
}

// innerBlocks evaluates a Block-of-Blocks literal, collecting each nested
// Block value it contains.
func (ev *Evaluator) innerBlocks(outer value.Value) ([]value.Value, error) {
	before := ev.All()
	ev.Replace(nil)
	defer ev.Replace(before)
	if _, err := ev.RunBlock(outer.Exprs()); err != nil {
		return nil, err
	}
	all := ev.All()
	out := make([]value.Value, len(all))
	for i, v := range all {
		out[i] = v
		if v.Tag != value.TagBlock {
			return nil, errtype.TypeMismatch("Block", value.TypeOf(v))
		}
	}
	return out, nil
}

// runConcurrently runs each block on its own snapshot-isolated evaluator,
// bounded to at most width concurrent at a time, preserving input order in
// the result (spec §5: "result List preserves input order").
func (ev *Evaluator) runConcurrently(blocks []value.Value, width int) [][]value.Value {
	if width < 1 {
		width = 1
	}
	results := make([][]value.Value, len(blocks))
	sem := make(chan struct{}, width)
	var wg sync.WaitGroup
	for i, b := range blocks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, b value.Value) {
			defer wg.Done()
			defer func() { <-sem }()
			child := ev.snapshotChild()
			child.Replace(nil)
			child.RunBlock(b.Exprs())
			results[i] = child.All()
		}(i, b)
	}
	wg.Wait()
	return results
}

// execFork implements `fork`: pops N then N Blocks, backgrounding each as
// its own job.
func (ev *Evaluator) execFork() error {
	n, err := ev.popCount("fork")
	if err != nil {
		return err
	}
	blocks, err := ev.popNBlocks("fork", n)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		argv, err := ev.argvOfBlock(b)
		if err != nil {
			return err
		}
		if _, err := ev.Process.Background(argv, nil, ev.Cwd()); err != nil {
			return errtype.Exec(err.Error())
		}
	}
	return nil
}

func (ev *Evaluator) popCount(op string) (int, error) {
	v, err := ev.Pop(op)
	if err != nil {
		return 0, err
	}
	if v.Tag != value.TagNumber {
		return 0, errtype.TypeMismatch("Number", value.TypeOf(v))
	}
	return int(v.Num()), nil
}

func (ev *Evaluator) popNBlocks(op string, n int) ([]value.Value, error) {
	vs, err := ev.PopN(op, n)
	if err != nil {
		return nil, err
	}
	out := make([]value.Value, n)
	for i, v := range vs {
		if v.Tag != value.TagBlock {
			return nil, errtype.TypeMismatch("Block", value.TypeOf(v))
		}
		out[n-1-i] = v
	}
	return out, nil
}

// execParallelN implements `[[blocks]] N parallel-n`.
func (ev *Evaluator) execParallelN() error {
	n, err := ev.popCount("parallel-n")
	if err != nil {
		return err
	}
	outer, err := ev.Pop("parallel-n")
	if err != nil {
		return err
	}
	if outer.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(outer))
	}
	blocks, err := ev.innerBlocks(outer)
	if err != nil {
		return err
	}
	results := ev.runConcurrently(blocks, n)
	out := make([]value.Value, len(results))
	for i, r := range results {
		if len(r) > 0 {
			out[i] = r[len(r)-1]
		} else {
			out[i] = value.Nil()
		}
	}
	ev.Push(value.List(out))
	return nil
}

// execParallelMap implements `list [block] N parallel-map`.
func (ev *Evaluator) execParallelMap() error {
	n, err := ev.popCount("parallel-map")
	if err != nil {
		return err
	}
	block, err := ev.Pop("parallel-map")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	list, err := ev.Pop("parallel-map")
	if err != nil {
		return err
	}
	if list.Tag != value.TagList {
		return errtype.TypeMismatch("List", value.TypeOf(list))
	}
	items := list.List()
	results := make([]value.Value, len(items))
	sem := make(chan struct{}, maxInt(n, 1))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item value.Value) {
			defer wg.Done()
			defer func() { <-sem }()
			child := ev.snapshotChild()
			child.Replace([]value.Value{item})
			child.RunBlock(block.Exprs())
			all := child.All()
			if len(all) > 0 {
				results[i] = all[len(all)-1]
			} else {
				results[i] = value.Nil()
			}
		}(i, item)
	}
	wg.Wait()
	ev.Push(value.List(results))
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// execRace implements `[futures-as-blocks] race`... for block-based race
// (as opposed to future-race, which races already-spawned Futures): spawns
// all blocks, first to finish wins, the rest run to completion but are
// discarded (spec §4.7/§5).
func (ev *Evaluator) execRace() error {
	outer, err := ev.Pop("race")
	if err != nil {
		return err
	}
	if outer.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(outer))
	}
	blocks, err := ev.innerBlocks(outer)
	if err != nil {
		return err
	}
	type result struct {
		v   value.Value
		err error
	}
	ch := make(chan result, len(blocks))
	for _, b := range blocks {
		go func(b value.Value) {
			child := ev.snapshotChild()
			child.Replace(nil)
			_, err := child.RunBlock(b.Exprs())
			all := child.All()
			v := value.Nil()
			if len(all) > 0 {
				v = all[len(all)-1]
			}
			ch <- result{v, err}
		}(b)
	}
	for range blocks {
		r := <-ch
		if r.err == nil {
			ev.Push(r.v)
			return nil
		}
	}
	return errtype.Exec("race: every block failed")
}

// execSubst implements `subst` (spec §4.7): runs a Block, writes its
// captured stdout to a scratch file, pushes the path.
func (ev *Evaluator) execSubst() error {
	block, err := ev.Pop("subst")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	out, err := ev.captureBlockOutput(block)
	if err != nil {
		return err
	}
	path, err := ev.Process.Subst(out)
	if err != nil {
		return errtype.Io(err)
	}
	ev.Push(value.Literal(path))
	return nil
}

// execFifo implements `fifo` (spec §4.7): creates a named pipe and spawns
// a writer goroutine that runs the block and writes its output once a
// reader opens the fifo.
func (ev *Evaluator) execFifo() error {
	block, err := ev.Pop("fifo")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	path, err := ev.Process.Fifo()
	if err != nil {
		return errtype.Io(err)
	}
	go func() {
		out, err := ev.captureBlockOutput(block)
		if err != nil {
			return
		}
		f, err := os.OpenFile(path, os.O_WRONLY, 0o600)
		if err != nil {
			return
		}
		defer f.Close()
		f.WriteString(out)
	}()
	ev.Push(value.Literal(path))
	return nil
}

func (ev *Evaluator) captureBlockOutput(block value.Value) (string, error) {
	child := ev.snapshotChild()
	child.Replace(nil)
	if _, err := child.RunBlock(block.Exprs()); err != nil {
		return "", err
	}
	all := child.All()
	var sb strings.Builder
	for _, v := range all {
		sb.WriteString(v.AsArg())
	}
	return sb.String(), nil
}

// execTimeout implements `seconds [cmd] timeout` (spec §4.7).
func (ev *Evaluator) execTimeout() error {
	block, err := ev.Pop("timeout")
	if err != nil {
		return err
	}
	secs, err := ev.Pop("timeout")
	if err != nil {
		return err
	}
	if secs.Tag != value.TagNumber {
		return errtype.TypeMismatch("Number", value.TypeOf(secs))
	}
	argv, err := ev.argvOfBlock(block)
	if err != nil {
		return err
	}
	res, err := ev.Process.Timeout(time.Duration(secs.Num()*float64(time.Second)), argv, nil, ev.Cwd())
	ev.SetExitCode(res.ExitCode)
	if res.ExitCode == 124 {
		ev.Push(value.Nil())
		return nil
	}
	if err != nil {
		return errtype.Exec(err.Error())
	}
	ev.pushOutput(res.Stdout)
	return nil
}

// execPipestatus pushes the most recent pipeline's per-stage exit codes.
func (ev *Evaluator) execPipestatus() error {
	codes := ev.Process.Pipestatus
	items := make([]value.Value, len(codes))
	for i, c := range codes {
		items[i] = value.Number(float64(c))
	}
	ev.Push(value.List(items))
	return nil
}

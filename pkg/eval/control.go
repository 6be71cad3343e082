// Control flow (spec C8): if/elseif/else chains, times, while/until,
// break, and ScopedBlock's temporary environment. Grounded on the
// teacher's plain imperative control-flow style (no generic "control
// builder" abstraction anywhere in app.go/gui.go) — each form gets its
// own small function.
package eval

import (
	"os"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/parser"
	"github.com/hsab-shell/hsab/pkg/value"
)

func isBreak(err error) bool {
	ee, ok := err.(*errtype.EvalError)
	return ok && ee.Kind == errtype.KindBreakLoop
}

// execIf implements `if` (spec §4.8): pops, in stack order from top, the
// condition, a then-Block, and an optional else-Block (popped only when
// the next value is itself a Block). Starts a new chain, recorded in
// ifChainTaken so a following elseif/else can see whether a branch fired.
func (ev *Evaluator) execIf() error {
	cond, err := ev.Pop("if")
	if err != nil {
		return err
	}
	thenBlock, err := ev.Pop("if")
	if err != nil {
		return err
	}
	if thenBlock.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(thenBlock))
	}
	var elseBlock *value.Value
	if top, ok := ev.Peek(0); ok && top.Tag == value.TagBlock {
		v, _ := ev.Pop("if")
		elseBlock = &v
	}

	taken := cond.Truthy()
	chain := taken
	ev.ifChainTaken = &chain

	if taken {
		_, err := ev.RunBlock(thenBlock.Exprs())
		return err
	}
	if elseBlock != nil {
		_, err := ev.RunBlock(elseBlock.Exprs())
		return err
	}
	return nil
}

// execElseif continues an in-progress if-chain: pops its own condition and
// then-Block, running the branch only when no earlier link in the chain
// has already fired.
func (ev *Evaluator) execElseif() error {
	cond, err := ev.Pop("elseif")
	if err != nil {
		return err
	}
	thenBlock, err := ev.Pop("elseif")
	if err != nil {
		return err
	}
	if thenBlock.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(thenBlock))
	}
	if ev.ifChainTaken == nil {
		return errtype.Exec("elseif without a preceding if")
	}
	if *ev.ifChainTaken {
		return nil
	}
	if cond.Truthy() {
		*ev.ifChainTaken = true
		_, err := ev.RunBlock(thenBlock.Exprs())
		return err
	}
	return nil
}

// execElse closes an if-chain: pops a single Block, running it only if no
// earlier if/elseif in the chain fired.
func (ev *Evaluator) execElse() error {
	block, err := ev.Pop("else")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	if ev.ifChainTaken == nil {
		return errtype.Exec("else without a preceding if")
	}
	taken := *ev.ifChainTaken
	*ev.ifChainTaken = true
	if taken {
		return nil
	}
	_, err = ev.RunBlock(block.Exprs())
	return err
}

// execTimes implements `N [block] times` (spec §4.8): each iteration runs
// under its own Marker frame so one iteration's residue can't be consumed
// by the next. Break exits the loop without propagating as an error.
func (ev *Evaluator) execTimes() error {
	block, err := ev.Pop("times")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	n, err := ev.Pop("times")
	if err != nil {
		return err
	}
	if n.Tag != value.TagNumber {
		return errtype.TypeMismatch("Number", value.TypeOf(n))
	}
	for i := 0; i < int(n.Num()); i++ {
		ev.Push(value.Marker())
		if _, err := ev.RunBlock(block.Exprs()); err != nil {
			if isBreak(err) {
				return nil
			}
			return err
		}
	}
	return nil
}

// execWhileUntil implements `[cond] [body] while`/`until` (spec §4.8): the
// condition block runs under a discarded Marker frame — only its exit
// code matters — and the loop continues while (while) or until (until)
// that exit code is zero.
func (ev *Evaluator) execWhileUntil(until bool) error {
	op := "while"
	if until {
		op = "until"
	}
	body, err := ev.Pop(op)
	if err != nil {
		return err
	}
	cond, err := ev.Pop(op)
	if err != nil {
		return err
	}
	if body.Tag != value.TagBlock || cond.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(body))
	}
	for {
		before := ev.All()
		ev.Push(value.Marker())
		_, err := ev.RunBlock(cond.Exprs())
		condExit := ev.ExitCode()
		ev.Replace(before)
		if err != nil {
			return err
		}
		zero := condExit == 0
		keepGoing := zero
		if until {
			keepGoing = !zero
		}
		if !keepGoing {
			return nil
		}
		if _, err := ev.RunBlock(body.Exprs()); err != nil {
			if isBreak(err) {
				return nil
			}
			return err
		}
	}
}

// execScopedBlock implements ScopedBlock (spec §4.8): evaluates each
// assignment's value expression, sets the env var, and restores every
// touched var (unsetting ones that didn't previously exist) on any exit
// path.
func (ev *Evaluator) execScopedBlock(node parser.ScopedBlock) error {
	type saved struct {
		name  string
		had   bool
		prior string
	}
	var restores []saved
	defer func() {
		for i := len(restores) - 1; i >= 0; i-- {
			s := restores[i]
			if s.had {
				os.Setenv(s.name, s.prior)
			} else {
				os.Unsetenv(s.name)
			}
		}
	}()

	for _, a := range node.Assignments {
		before := ev.All()
		ev.Replace(nil)
		if err := ev.evalOne(a.Value); err != nil {
			ev.Replace(before)
			return err
		}
		v, ok := ev.Peek(0)
		ev.Replace(before)
		if !ok {
			v = value.Literal("")
		}
		prior, had := os.LookupEnv(a.Name)
		restores = append(restores, saved{name: a.Name, had: had, prior: prior})
		os.Setenv(a.Name, v.AsArg())
	}

	return ev.Run(node.Body)
}

// Concurrency keyword dispatch (spec C9): async/await and the Future
// operations, bridging into pkg/concurrency.Manager. These live in
// pkg/eval rather than pkg/builtins because they need ev.Futures and a
// snapshot-isolated child evaluator, neither of which builtins.Host
// exposes (spec §9: "spawned worker inherits a snapshot of cwd,
// definitions, and local values").
package eval

import (
	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

// execAsync implements `[block] async` (spec §4.9).
func (ev *Evaluator) execAsync() error {
	block, err := ev.Pop("async")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	exprs := block.Exprs()
	fv := ev.Futures.Spawn(func() (value.Value, error) {
		child := ev.snapshotChild()
		child.Replace(nil)
		if _, err := child.RunBlock(exprs); err != nil {
			return value.Nil(), err
		}
		all := child.All()
		if len(all) == 0 {
			return value.Nil(), nil
		}
		return all[len(all)-1], nil
	})
	ev.Push(fv)
	return nil
}

// execDelayAsync implements `seconds [block] delay-async`: like async,
// but the worker sleeps before running the block.
func (ev *Evaluator) execDelayAsync() error {
	block, err := ev.Pop("delay-async")
	if err != nil {
		return err
	}
	secs, err := ev.Pop("delay-async")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	if secs.Tag != value.TagNumber {
		return errtype.TypeMismatch("Number", value.TypeOf(secs))
	}
	exprs := block.Exprs()
	d := durationFromSeconds(secs.Num())
	fv := ev.Futures.Spawn(func() (value.Value, error) {
		sleep(d)
		child := ev.snapshotChild()
		child.Replace(nil)
		if _, err := child.RunBlock(exprs); err != nil {
			return value.Nil(), err
		}
		all := child.All()
		if len(all) == 0 {
			return value.Nil(), nil
		}
		return all[len(all)-1], nil
	})
	ev.Push(fv)
	return nil
}

// execDelay implements plain `seconds delay`: blocks the calling thread.
func (ev *Evaluator) execDelay() error {
	secs, err := ev.Pop("delay")
	if err != nil {
		return err
	}
	if secs.Tag != value.TagNumber {
		return errtype.TypeMismatch("Number", value.TypeOf(secs))
	}
	sleep(durationFromSeconds(secs.Num()))
	return nil
}

func (ev *Evaluator) popFuture(op string) (value.FutureValue, error) {
	v, err := ev.Pop(op)
	if err != nil {
		return value.FutureValue{}, err
	}
	if v.Tag != value.TagFuture {
		return value.FutureValue{}, errtype.TypeMismatch("Future", value.TypeOf(v))
	}
	return *v.Future(), nil
}

func (ev *Evaluator) popFutureList(op string) ([]value.FutureValue, error) {
	v, err := ev.Pop(op)
	if err != nil {
		return nil, err
	}
	if v.Tag != value.TagList {
		return nil, errtype.TypeMismatch("List", value.TypeOf(v))
	}
	out := make([]value.FutureValue, 0, len(v.List()))
	for _, item := range v.List() {
		if item.Tag != value.TagFuture {
			return nil, errtype.TypeMismatch("Future", value.TypeOf(item))
		}
		out = append(out, *item.Future())
	}
	return out, nil
}

func (ev *Evaluator) execAwait() error {
	fv, err := ev.popFuture("await")
	if err != nil {
		return err
	}
	v, err := ev.Futures.Await(fv)
	if err != nil {
		return errtype.Exec(err.Error())
	}
	ev.Push(v)
	return nil
}

func (ev *Evaluator) execFutureStatus() error {
	v, err := ev.Pop("future-status")
	if err != nil {
		return err
	}
	if v.Tag != value.TagFuture {
		return errtype.TypeMismatch("Future", value.TypeOf(v))
	}
	ev.Push(v)
	status, _, _ := v.Future().Snapshot()
	ev.Push(value.Literal(status))
	return nil
}

func (ev *Evaluator) execFutureResult() error {
	v, err := ev.Pop("future-result")
	if err != nil {
		return err
	}
	if v.Tag != value.TagFuture {
		return errtype.TypeMismatch("Future", value.TypeOf(v))
	}
	status, result, failMsg := v.Future().Snapshot()
	switch status {
	case "completed":
		ev.Push(value.Map(map[string]value.Value{"ok": result}, []string{"ok"}))
	case "failed":
		ev.Push(value.Map(map[string]value.Value{"err": value.Literal(failMsg)}, []string{"err"}))
	case "cancelled":
		ev.Push(value.Map(map[string]value.Value{"err": value.Literal("cancelled")}, []string{"err"}))
	default:
		ev.Push(value.Map(map[string]value.Value{"err": value.Literal("pending")}, []string{"err"}))
	}
	return nil
}

func (ev *Evaluator) execFutureCancel() error {
	fv, err := ev.popFuture("future-cancel")
	if err != nil {
		return err
	}
	ok := fv.State.Cancel()
	ev.Push(value.Bool(ok))
	return nil
}

func (ev *Evaluator) execAwaitAll() error {
	futures, err := ev.popFutureList("await-all")
	if err != nil {
		return err
	}
	results := ev.Futures.AwaitAll(futures)
	ev.Push(value.List(results))
	return nil
}

// execFutureAwaitN implements `f1 f2 ... fN N future-await-n`: pops N,
// then N futures (in push order), pushing all N results back in original
// push order (spec §4.9).
func (ev *Evaluator) execFutureAwaitN() error {
	n, err := ev.popCount("future-await-n")
	if err != nil {
		return err
	}
	vs, err := ev.PopN("future-await-n", n)
	if err != nil {
		return err
	}
	results := make([]value.Value, n)
	for i, v := range vs {
		if v.Tag != value.TagFuture {
			return errtype.TypeMismatch("Future", value.TypeOf(v))
		}
		res, err := ev.Futures.Await(*v.Future())
		if err != nil {
			res = value.ErrorVal(value.ErrorValue{Kind: "ExecError", Message: err.Error()})
		}
		results[i] = res
	}
	for _, r := range results {
		ev.Push(r)
	}
	return nil
}

func (ev *Evaluator) execFutureRace() error {
	futures, err := ev.popFutureList("future-race")
	if err != nil {
		return err
	}
	v, err := ev.Futures.Race(futures)
	if err != nil {
		return errtype.Exec(err.Error())
	}
	ev.Push(v)
	return nil
}

// execFutureMap implements `future [block] future-map`: the spawned
// mapper worker runs the block against the source future's eventual
// result, with the result pushed as the sole stack item the block sees.
func (ev *Evaluator) execFutureMap() error {
	block, err := ev.Pop("future-map")
	if err != nil {
		return err
	}
	if block.Tag != value.TagBlock {
		return errtype.TypeMismatch("Block", value.TypeOf(block))
	}
	fv, err := ev.popFuture("future-map")
	if err != nil {
		return err
	}
	exprs := block.Exprs()
	mapped := ev.Futures.Map(fv, func(v value.Value) (value.Value, error) {
		child := ev.snapshotChild()
		child.Replace([]value.Value{v})
		if _, err := child.RunBlock(exprs); err != nil {
			return value.Nil(), err
		}
		all := child.All()
		if len(all) == 0 {
			return value.Nil(), nil
		}
		return all[len(all)-1], nil
	})
	ev.Push(mapped)
	return nil
}

// snapshotChild and the Future/worker keywords (spec C9, and the
// block-parallelism helpers process_dispatch.go needs): each concurrent
// worker gets its own Evaluator sharing the parent's definitions/aliases/
// cwd but never its live stack, matching spec §9's "spawned worker
// inherits a snapshot of cwd, definitions, and local values" note.
package eval

import (
	"time"

	"github.com/hsab-shell/hsab/pkg/stack"
)

// snapshotChild returns a worker Evaluator that shares the parent's
// definitions, aliases, registry, resolver, process engine, and futures
// manager by reference (read-mostly, and already safe for concurrent
// builtin dispatch since the process/concurrency packages own their own
// locks), but gets a private Stack so concurrent blocks never race on
// stack mutation.
func (ev *Evaluator) snapshotChild() *Evaluator {
	child := &Evaluator{
		Stack:       stack.New(),
		Log:         ev.Log,
		Registry:    ev.Registry,
		Resolver:    ev.Resolver,
		Process:     ev.Process,
		Futures:     ev.Futures,
		Modules:     ev.Modules,
		definitions: ev.definitions,
		aliases:     ev.aliases,
		traps:       ev.traps,
		maxRec:      ev.maxRec,
		cwd:         ev.cwd,
		Stdout:      ev.Stdout,
		Stderr:      ev.Stderr,
		Stdin:       ev.Stdin,
		PluginCommands: ev.PluginCommands,
		PluginCall:     ev.PluginCall,
	}
	return child
}

// durationFromSeconds and sleep are tiny wrappers kept in one place so
// every delay/timeout keyword shares the same conversion.

func durationFromSeconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func sleep(d time.Duration) { time.Sleep(d) }

// Package concurrency implements hsab's futures and retry combinator
// (spec C9). Grounded on the teacher's pkg/tasks/tasks.go
// (goroutine-plus-notify-channel task model), generalized from a single
// cancellable background task to many independently-handled Futures whose
// shared state is a value.FutureState rather than a stop channel — the
// monotone state machine spec.md calls for instead of a cooperative-stop
// signal, since a Future's producer cannot be forcibly interrupted
// (spec §5 "Cancellation").
package concurrency

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hsab-shell/hsab/pkg/value"
)

const pollInterval = 10 * time.Millisecond

// Handle is the evaluator-held join handle for one Future.
type Handle struct {
	ID    string
	State *value.FutureState
}

// Manager owns every live Future's join handle until it is reaped, the
// same ownership the teacher gives TaskManager over its single task.
type Manager struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

func NewManager() *Manager {
	return &Manager{handles: map[string]*Handle{}}
}

// Spawn runs fn on a new goroutine and returns immediately with a Future
// Value wrapping its join handle (spec `async`).
func (m *Manager) Spawn(fn func() (value.Value, error)) value.Value {
	h := &Handle{ID: uuid.NewString(), State: &value.FutureState{}}
	m.mu.Lock()
	m.handles[h.ID] = h
	m.mu.Unlock()

	go func() {
		v, err := fn()
		if err != nil {
			h.State.Fail(err.Error())
			return
		}
		h.State.Complete(v)
	}()

	return value.Future(value.FutureValue{ID: h.ID, State: h.State})
}

func (m *Manager) reap(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handles, id)
}

// Await polls a Future's state to a terminal value, reaping its handle
// exactly once (spec §8's testable property), and returns its result or an
// error describing failure/cancellation.
func (m *Manager) Await(fv value.FutureValue) (value.Value, error) {
	for {
		status, result, failMsg := fv.State.Snapshot()
		switch status {
		case "completed":
			m.reap(fv.ID)
			return result, nil
		case "failed":
			m.reap(fv.ID)
			return value.Nil(), fmt.Errorf("future failed: %s", failMsg)
		case "cancelled":
			m.reap(fv.ID)
			return value.Nil(), fmt.Errorf("future was cancelled")
		default:
			time.Sleep(pollInterval)
		}
	}
}

// Status returns the future's current status without reaping it (spec
// `future-status`; non-consuming).
func Status(fv value.FutureValue) string {
	status, _, _ := fv.State.Snapshot()
	return status
}

// Result returns a non-throwing {ok:v} or {err:msg} Map (spec
// `future-result`).
func Result(fv value.FutureValue) value.Value {
	status, result, failMsg := fv.State.Snapshot()
	switch status {
	case "completed":
		return value.Map(map[string]value.Value{"ok": result}, []string{"ok"})
	case "failed":
		return value.Map(map[string]value.Value{"err": value.Literal(failMsg)}, []string{"err"})
	case "cancelled":
		return value.Map(map[string]value.Value{"err": value.Literal("cancelled")}, []string{"err"})
	default:
		return value.Map(map[string]value.Value{"err": value.Literal("pending")}, []string{"err"})
	}
}

// Cancel marks a Pending future Cancelled; already-terminal futures are
// untouched (spec `future-cancel`).
func Cancel(fv value.FutureValue) bool {
	return fv.State.Cancel()
}

// AwaitAll waits for every future, embedding failures as Error Values
// rather than aborting the whole join (spec `await-all`).
func (m *Manager) AwaitAll(futures []value.FutureValue) []value.Value {
	out := make([]value.Value, len(futures))
	for i, fv := range futures {
		v, err := m.Await(fv)
		if err != nil {
			out[i] = value.ErrorVal(value.ErrorValue{Kind: "ExecError", Message: err.Error()})
			continue
		}
		out[i] = v
	}
	return out
}

// Race awaits the first future to complete successfully, cancelling the
// remaining still-pending futures (spec `future-race`). Futures that have
// already failed are skipped in favor of one still in flight.
func (m *Manager) Race(futures []value.FutureValue) (value.Value, error) {
	for {
		for _, fv := range futures {
			status, result, _ := fv.State.Snapshot()
			if status == "completed" {
				for _, other := range futures {
					if other.ID != fv.ID {
						other.State.Cancel()
					}
				}
				m.reap(fv.ID)
				return result, nil
			}
		}
		allTerminal := true
		for _, fv := range futures {
			status, _, _ := fv.State.Snapshot()
			if status == "pending" {
				allTerminal = false
			}
		}
		if allTerminal {
			return value.Nil(), fmt.Errorf("all futures failed or were cancelled")
		}
		time.Sleep(pollInterval)
	}
}

// Map returns a new Future whose value is fn applied to fv's result once
// it resolves (spec `future-map`).
func (m *Manager) Map(fv value.FutureValue, fn func(value.Value) (value.Value, error)) value.Value {
	return m.Spawn(func() (value.Value, error) {
		v, err := m.Await(fv)
		if err != nil {
			return value.Nil(), err
		}
		return fn(v)
	})
}

// Retry runs fn up to attempts times, sleeping delay between failures,
// succeeding as soon as fn reports exit code 0 (spec `retry`/`retry-delay`).
// The final attempt's error, if any, is returned.
func Retry(attempts int, delay time.Duration, fn func() (exitCode int, err error)) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		code, err := fn()
		if code == 0 && err == nil {
			return nil
		}
		lastErr = err
		if lastErr == nil {
			lastErr = fmt.Errorf("exit code %d", code)
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return lastErr
}

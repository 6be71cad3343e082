package concurrency

import (
	"fmt"
	"testing"
	"time"

	"github.com/hsab-shell/hsab/pkg/value"
	"github.com/stretchr/testify/assert"
)

func TestSpawnAndAwait(t *testing.T) {
	m := NewManager()
	fv := m.Spawn(func() (value.Value, error) { return value.Number(42), nil })
	v, err := m.Await(*fv.Future())
	assert.NoError(t, err)
	assert.Equal(t, value.Number(42), v)
}

func TestAwaitFailedFuture(t *testing.T) {
	m := NewManager()
	fv := m.Spawn(func() (value.Value, error) { return value.Nil(), fmt.Errorf("boom") })
	_, err := m.Await(*fv.Future())
	assert.Error(t, err)
}

func TestCancelPendingFuture(t *testing.T) {
	m := NewManager()
	fv := m.Spawn(func() (value.Value, error) {
		time.Sleep(50 * time.Millisecond)
		return value.Number(1), nil
	})
	f := fv.Future()
	assert.True(t, Cancel(*f))
	assert.Equal(t, "cancelled", Status(*f))
}

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(3, time.Millisecond, func() (int, error) {
		attempts++
		if attempts < 2 {
			return 1, fmt.Errorf("not yet")
		}
		return 0, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryExhausted(t *testing.T) {
	err := Retry(2, time.Millisecond, func() (int, error) { return 1, fmt.Errorf("nope") })
	assert.Error(t, err)
}

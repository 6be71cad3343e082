package eval

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsab-shell/hsab/pkg/value"
)

func newTestEvaluator() *Evaluator {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(logrus.NewEntry(log))
}

func TestGreedyPluginArgsStopsAtBlock(t *testing.T) {
	ev := newTestEvaluator()
	ev.Push(value.Literal("keep-me"))
	ev.Push(value.Block(nil))
	ev.Push(value.Literal("b"))
	ev.Push(value.Number(1))

	args, raw := greedyPluginArgs(ev)

	assert.Equal(t, []string{"1", "b"}, args)
	assert.Len(t, raw, 2)
	assert.Equal(t, 2, ev.Depth())
}

func TestDispatchPluginWithoutHostRaisesExecError(t *testing.T) {
	ev := newTestEvaluator()
	err := ev.dispatchPlugin("greet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plugin host attached")
}

func TestDispatchPluginCallsHostAndMirrorsStack(t *testing.T) {
	ev := newTestEvaluator()
	ev.Push(value.Literal("world"))

	var gotCmd string
	var gotArgs []string
	ev.PluginCall = func(cmd string, args []string, stack []interface{}) (int32, []interface{}, error) {
		gotCmd = cmd
		gotArgs = args
		return 0, append(stack, "greeted"), nil
	}

	err := ev.dispatchPlugin("greet")
	require.NoError(t, err)
	assert.Equal(t, "greet", gotCmd)
	assert.Equal(t, []string{"world"}, gotArgs)
	assert.Equal(t, 0, ev.ExitCode())

	top, ok := ev.Peek(0)
	require.True(t, ok)
	assert.Equal(t, "greeted", top.Str())
}

func TestDispatchPluginRestoresStackOnError(t *testing.T) {
	ev := newTestEvaluator()
	ev.Push(value.Literal("world"))

	ev.PluginCall = func(cmd string, args []string, stack []interface{}) (int32, []interface{}, error) {
		return 0, nil, assert.AnError
	}

	err := ev.dispatchPlugin("greet")
	require.Error(t, err)
	assert.Equal(t, 1, ev.Depth())
	top, ok := ev.Peek(0)
	require.True(t, ok)
	assert.Equal(t, "world", top.Str())
}

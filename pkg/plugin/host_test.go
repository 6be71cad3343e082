package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutHotReloadOnMissingDir(t *testing.T) {
	dir := t.TempDir() + "/does-not-exist"

	h, err := NewWithoutHotReload(dir, nil)
	require.NoError(t, err)
	defer h.Close()

	assert.False(t, h.HasCommand("anything"))
	assert.Empty(t, h.ListPlugins())
	assert.Empty(t, h.ListCommands())
}

func TestNewWithoutHotReloadOnEmptyDir(t *testing.T) {
	dir := t.TempDir()

	h, err := NewWithoutHotReload(dir, nil)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, dir, h.PluginDir())
	_, found := h.GetPluginInfo("nope")
	assert.False(t, found)
}

func TestHostCallUnknownCommand(t *testing.T) {
	dir := t.TempDir()
	h, err := NewWithoutHotReload(dir, nil)
	require.NoError(t, err)
	defer h.Close()

	_, _, err = h.Call("missing-command", nil, nil)
	require.Error(t, err)
	pluginErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindCommandNotFound, pluginErr.Kind)
}

func TestDefaultPluginDirEndsInHsabPlugins(t *testing.T) {
	dir := DefaultPluginDir()
	assert.Contains(t, dir, ".hsab")
	assert.Contains(t, dir, "plugins")
}

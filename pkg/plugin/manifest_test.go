package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifestRequiresCoreFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.toml")

	require.NoError(t, os.WriteFile(path, []byte(`
[plugin]
name = "greeter"
`), 0o644))

	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestLoadManifestDefaultsWASIInherits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.toml")

	require.NoError(t, os.WriteFile(path, []byte(`
[plugin]
name = "greeter"
version = "1.0.0"
wasm = "greeter.wasm"

[commands]
greet = "hsab_call"
`), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "greeter", m.Plugin.Name)
	assert.Equal(t, "hsab_call", m.Commands["greet"])
	assert.True(t, m.WASI.InheritEnv)
	assert.True(t, m.WASI.InheritStdout)
}

func TestLoadManifestDependenciesAndPreopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.toml")

	require.NoError(t, os.WriteFile(path, []byte(`
[plugin]
name = "fetcher"
version = "0.2.0"
wasm = "fetcher.wasm"

[dependencies]
net = "^1.0.0"

[[wasi.preopens]]
host = "/tmp/fetcher"
guest = "/data"
`), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "^1.0.0", m.Dependencies["net"])
	require.Len(t, m.WASI.Preopens, 1)
	assert.Equal(t, "/tmp/fetcher", m.WASI.Preopens[0].Host)
	assert.Equal(t, "/data", m.WASI.Preopens[0].Guest)
}

func TestManifestFromWasmFileSynthesizesCommand(t *testing.T) {
	m := ManifestFromWasmFile("/plugins/say_hello.wasm")

	assert.Equal(t, "say_hello", m.Plugin.Name)
	assert.Equal(t, "say_hello.wasm", m.Plugin.Wasm)
	assert.Equal(t, "hsab_call", m.Commands["say-hello"])
}

func TestLoadUserConfigMergesOverManifestDefaults(t *testing.T) {
	dir := t.TempDir()

	m := emptyManifest()
	m.Config["retries"] = 3.0
	m.Config["timeout"] = 10.0

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
retries = 5
`), 0o644))

	require.NoError(t, m.LoadUserConfig(dir))
	assert.Equal(t, int64(5), m.Config["retries"])
	assert.Equal(t, 10.0, m.Config["timeout"])
}

func TestLoadUserConfigToleratesMissingFile(t *testing.T) {
	dir := t.TempDir()
	m := emptyManifest()
	assert.NoError(t, m.LoadUserConfig(dir))
}

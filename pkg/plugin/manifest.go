// Plugin manifest parsing (spec §4.11 "Manifest contract"). Grounded on
// the original plugin.toml shape: a bare `.wasm` file synthesizes a
// default manifest; a directory's plugin.toml is decoded with
// BurntSushi/toml, already a promoted-to-direct dependency the teacher
// only carried indirectly through its podman stack.
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Meta is a plugin's [plugin] table.
type Meta struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
	Author      string `toml:"author"`
	Wasm        string `toml:"wasm"`
}

// Preopen is one entry of [wasi] preopens: a host directory mapped into
// the guest's filesystem view.
type Preopen struct {
	Host  string `toml:"host"`
	Guest string `toml:"guest"`
}

// WASIConfig is a plugin's [wasi] table; every inherit_* flag defaults true.
type WASIConfig struct {
	InheritEnv    bool      `toml:"inherit_env"`
	InheritArgs   bool      `toml:"inherit_args"`
	InheritStdin  bool      `toml:"inherit_stdin"`
	InheritStdout bool      `toml:"inherit_stdout"`
	InheritStderr bool      `toml:"inherit_stderr"`
	Preopens      []Preopen `toml:"preopens"`
}

func defaultWASI() WASIConfig {
	return WASIConfig{InheritEnv: true, InheritArgs: true, InheritStdin: true, InheritStdout: true, InheritStderr: true}
}

// Manifest is the full decoded plugin.toml (or its synthesized default for
// a bare .wasm).
type Manifest struct {
	Plugin       Meta                   `toml:"plugin"`
	Commands     map[string]string      `toml:"commands"`
	Dependencies map[string]string      `toml:"dependencies"`
	Config       map[string]interface{} `toml:"config"`
	WASI         WASIConfig             `toml:"wasi"`
}

func emptyManifest() Manifest {
	return Manifest{
		Commands:     map[string]string{},
		Dependencies: map[string]string{},
		Config:       map[string]interface{}{},
		WASI:         defaultWASI(),
	}
}

// LoadManifest decodes a plugin.toml file.
func LoadManifest(path string) (Manifest, error) {
	m := emptyManifest()
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Manifest{}, err
	}
	if m.Plugin.Name == "" || m.Plugin.Version == "" || m.Plugin.Wasm == "" {
		return Manifest{}, fmt.Errorf("plugin manifest %s: [plugin] requires name, version, and wasm", path)
	}
	return m, nil
}

// ManifestFromWasmFile synthesizes a default manifest for a standalone
// .wasm plugin (no plugin.toml): name from the filename stem, command
// name with underscores turned to dashes, handler "hsab_call".
func ManifestFromWasmFile(wasmPath string) Manifest {
	base := filepath.Base(wasmPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	cmd := strings.ReplaceAll(name, "_", "-")

	m := emptyManifest()
	m.Plugin = Meta{Name: name, Version: "0.0.0", Wasm: base}
	m.Commands[cmd] = "hsab_call"
	return m
}

// LoadUserConfig merges plugin_dir/config.toml into m.Config, user values
// winning over the manifest's own [config] defaults. A missing
// config.toml is not an error.
func (m *Manifest) LoadUserConfig(pluginDir string) error {
	path := filepath.Join(pluginDir, "config.toml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	var user map[string]interface{}
	if _, err := toml.DecodeFile(path, &user); err != nil {
		return err
	}
	for k, v := range user {
		m.Config[k] = v
	}
	return nil
}

// Plugin directory scanning, load ordering, and the command table (spec
// §4.11 steps 1-5, §9 "Dependency resolution" / "Hot reload"). Grounded on
// registry.rs's PluginRegistry: scan, resolve, load-in-order, command
// lookup with shadow warnings.
package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Info is the externally-visible summary of one loaded plugin (spec
// §4.11 "list_plugins"/"get_plugin_info").
type Info struct {
	Name        string
	Version     string
	Description string
	Author      string
	Dir         string
	Commands    []string
}

// Registry owns every loaded plugin instance and the cmd -> plugin
// routing table built from their [commands] tables.
type Registry struct {
	dir       string
	instances map[string]*instance // plugin name -> instance
	commands  map[string]string    // command name -> plugin name
	mtimes    map[string]int64     // plugin dir -> last-seen mtime, for checkForChanges
	warnf     func(string, ...interface{})
}

func newRegistry(dir string, warnf func(string, ...interface{})) *Registry {
	if warnf == nil {
		warnf = func(string, ...interface{}) {}
	}
	return &Registry{
		dir:       dir,
		instances: map[string]*instance{},
		commands:  map[string]string{},
		mtimes:    map[string]int64{},
		warnf:     warnf,
	}
}

// scan walks the plugin root, building one namedManifest per plugin found
// (spec §4.11 step 1): a bare *.wasm file, or a subdirectory carrying
// plugin.toml + its wasm + optional config.toml.
func scan(root string) (map[string]namedManifest, map[string][]byte, error) {
	manifests := map[string]namedManifest{}
	wasmBytes := map[string][]byte{}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return manifests, wasmBytes, nil
		}
		return nil, nil, err
	}

	for _, entry := range entries {
		full := filepath.Join(root, entry.Name())
		if entry.IsDir() {
			manifestPath := filepath.Join(full, "plugin.toml")
			if _, err := os.Stat(manifestPath); err != nil {
				continue
			}
			m, err := LoadManifest(manifestPath)
			if err != nil {
				return nil, nil, err
			}
			if err := m.LoadUserConfig(full); err != nil {
				return nil, nil, err
			}
			b, err := os.ReadFile(filepath.Join(full, m.Plugin.Wasm))
			if err != nil {
				return nil, nil, err
			}
			manifests[m.Plugin.Name] = namedManifest{dir: full, manifest: m}
			wasmBytes[m.Plugin.Name] = b
			continue
		}

		if !strings.HasSuffix(entry.Name(), ".wasm") {
			continue
		}
		m := ManifestFromWasmFile(full)
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, nil, err
		}
		manifests[m.Plugin.Name] = namedManifest{dir: root, manifest: m}
		wasmBytes[m.Plugin.Name] = b
	}
	return manifests, wasmBytes, nil
}

// loadAll scans dir, resolves the dependency order, and loads every
// plugin in that order (spec §4.11 steps 1-5).
func (r *Registry) loadAll(ctx context.Context) error {
	manifests, wasmBytes, err := scan(r.dir)
	if err != nil {
		return err
	}
	order, err := resolveLoadOrder(manifests)
	if err != nil {
		return err
	}
	for _, name := range order {
		nm := manifests[name]
		if err := r.loadOne(ctx, nm, wasmBytes[name]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadOne(ctx context.Context, nm namedManifest, wasmBytes []byte) error {
	inst, err := loadInstance(ctx, nm.dir, nm.manifest, wasmBytes)
	if err != nil {
		return err
	}
	r.instances[nm.manifest.Plugin.Name] = inst
	r.mtimes[nm.dir] = dirMtime(nm.dir)

	for cmd := range nm.manifest.Commands {
		if owner, exists := r.commands[cmd]; exists && owner != nm.manifest.Plugin.Name {
			r.warnf("plugin %q command %q shadows command already registered by %q", nm.manifest.Plugin.Name, cmd, owner)
		}
		r.commands[cmd] = nm.manifest.Plugin.Name
	}
	return nil
}

// unload removes a plugin's commands and closes its runtime (spec §4.11
// "Hot reload" step 1).
func (r *Registry) unload(ctx context.Context, name string) {
	inst, ok := r.instances[name]
	if !ok {
		return
	}
	inst.close(ctx)
	delete(r.instances, name)
	for cmd, owner := range r.commands {
		if owner == name {
			delete(r.commands, cmd)
		}
	}
}

// reload unloads then reloads a single plugin by its directory, rerunning
// its init hook (spec §4.11 "Hot reload" step 2).
func (r *Registry) reload(ctx context.Context, dir string) error {
	var target *namedManifest
	for name, inst := range r.instances {
		if inst.dir == dir {
			nm := namedManifest{dir: inst.dir, manifest: inst.manifest}
			target = &nm
			r.unload(ctx, name)
			break
		}
	}
	if target == nil {
		manifestPath := filepath.Join(dir, "plugin.toml")
		m, err := LoadManifest(manifestPath)
		if err != nil {
			return err
		}
		target = &namedManifest{dir: dir, manifest: m}
	}

	if err := target.manifest.LoadUserConfig(target.dir); err != nil {
		return err
	}
	wasmPath := filepath.Join(target.dir, target.manifest.Plugin.Wasm)
	b, err := os.ReadFile(wasmPath)
	if err != nil {
		return &Error{Kind: KindHotReload, Message: err.Error()}
	}
	return r.loadOne(ctx, *target, b)
}

// hasCommand reports whether name routes to a loaded plugin.
func (r *Registry) hasCommand(name string) bool {
	_, ok := r.commands[name]
	return ok
}

// call dispatches cmd through its owning plugin, mirroring the evaluator
// stack in and back out around the guest invocation (spec §4.11 "Dispatch
// protocol").
func (r *Registry) call(ctx context.Context, cmd string, args []string, evalStack []interface{}) (int32, []interface{}, error) {
	pluginName, ok := r.commands[cmd]
	if !ok {
		return 0, nil, &Error{Kind: KindCommandNotFound, Message: fmt.Sprintf("no plugin registers %q", cmd)}
	}
	inst, ok := r.instances[pluginName]
	if !ok {
		return 0, nil, &Error{Kind: KindNotFound, Message: fmt.Sprintf("plugin %q not loaded", pluginName)}
	}
	handler := inst.manifest.Commands[cmd]

	inst.env.mu.Lock()
	inst.env.stack = nil
	for _, g := range evalStack {
		inst.env.stack = append(inst.env.stack, fromJSONGeneric(g))
	}
	inst.env.mu.Unlock()

	code, err := inst.call(ctx, handler, cmd, args)
	if err != nil {
		return 0, nil, err
	}

	inst.env.mu.Lock()
	out := make([]interface{}, len(inst.env.stack))
	for i, v := range inst.env.stack {
		out[i] = toJSONGeneric(v)
	}
	inst.env.mu.Unlock()

	return code, out, nil
}

func (r *Registry) listPlugins() []Info {
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		infos = append(infos, r.info(name))
	}
	return infos
}

func (r *Registry) info(name string) Info {
	inst := r.instances[name]
	cmds := make([]string, 0, len(inst.manifest.Commands))
	for cmd, owner := range r.commands {
		if owner == name {
			cmds = append(cmds, cmd)
		}
	}
	sort.Strings(cmds)
	return Info{
		Name: inst.manifest.Plugin.Name, Version: inst.manifest.Plugin.Version,
		Description: inst.manifest.Plugin.Description, Author: inst.manifest.Plugin.Author,
		Dir: inst.dir, Commands: cmds,
	}
}

func (r *Registry) listCommands() []string {
	cmds := make([]string, 0, len(r.commands))
	for cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Strings(cmds)
	return cmds
}

// checkForChanges re-stats every loaded plugin's directory and returns the
// set of plugin directories whose mtime moved since the last check — the
// mtime-rescan fallback spec §9 calls for alongside the filesystem watcher.
// Plugins added to the root after loading are not detected here.
func (r *Registry) checkForChanges() []string {
	var changed []string
	for _, inst := range r.instances {
		cur := dirMtime(inst.dir)
		if cur != r.mtimes[inst.dir] {
			r.mtimes[inst.dir] = cur
			changed = append(changed, inst.dir)
		}
	}
	sort.Strings(changed)
	return changed
}

func dirMtime(dir string) int64 {
	var latest int64
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if t := info.ModTime().UnixNano(); t > latest {
			latest = t
		}
	}
	return latest
}

func (r *Registry) closeAll(ctx context.Context) {
	for name := range r.instances {
		r.unload(ctx, name)
	}
}

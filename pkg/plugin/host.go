// Top-level plugin coordinator (spec §4.11): the single entry point the
// evaluator dispatches through. Grounded on host.rs's PluginHost: New,
// LoadPluginsDir, Call, and the hot-reload toggle.
package plugin

import (
	"context"
	"os"
	"path/filepath"
)

// Host is the evaluator-facing plugin subsystem: a Registry plus an
// optional hot-reload watcher running in the background.
type Host struct {
	dir      string
	reg      *Registry
	reloader *hotReloader
	cancel   context.CancelFunc
	warnf    func(string, ...interface{})
}

// DefaultPluginDir mirrors host.rs's default_plugin_dir: $HOME/.hsab/plugins,
// falling back to ./.hsab/plugins when $HOME can't be resolved.
func DefaultPluginDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".hsab", "plugins")
	}
	return filepath.Join(".hsab", "plugins")
}

// New builds a Host and loads every plugin under dir, starting a
// hot-reload watcher in the background. warnf receives non-fatal
// diagnostics (command shadowing, reload failures); pass nil to discard
// them.
func New(dir string, warnf func(string, ...interface{})) (*Host, error) {
	return newHost(dir, warnf, true)
}

// NewWithoutHotReload is the same as New but skips starting the
// filesystem watcher, for callers (tests, one-shot script evaluation)
// that don't want a background goroutine outliving the call.
func NewWithoutHotReload(dir string, warnf func(string, ...interface{})) (*Host, error) {
	return newHost(dir, warnf, false)
}

func newHost(dir string, warnf func(string, ...interface{}), hotReload bool) (*Host, error) {
	reg := newRegistry(dir, warnf)
	if err := reg.loadAll(context.Background()); err != nil {
		return nil, err
	}

	h := &Host{dir: dir, reg: reg, warnf: warnf}
	if warnf == nil {
		h.warnf = func(string, ...interface{}) {}
	}

	if hotReload {
		ctx, cancel := context.WithCancel(context.Background())
		reloader, err := newHotReloader(dir, reg, func(err error) { h.warnf("plugin hot reload: %v", err) })
		if err != nil {
			h.warnf("plugin hot reload disabled: %v", err)
			cancel()
		} else {
			h.reloader = reloader
			h.cancel = cancel
			go reloader.run(ctx)
		}
	}
	return h, nil
}

// PluginDir returns the root directory this host was loaded from.
func (h *Host) PluginDir() string { return h.dir }

// HasCommand reports whether cmd routes to a loaded plugin.
func (h *Host) HasCommand(cmd string) bool { return h.reg.hasCommand(cmd) }

// Call dispatches cmd through its owning plugin (spec §4.11 "Dispatch
// protocol"). evalStack is the evaluator's current stack, JSON-generic
// encoded bottom-to-top; the returned slice is the plugin's stack after
// the call, in the same encoding, to be mirrored back into the evaluator.
func (h *Host) Call(cmd string, args []string, evalStack []interface{}) (int32, []interface{}, error) {
	return h.reg.call(context.Background(), cmd, args, evalStack)
}

// LoadPlugin loads (or reloads) a single plugin directory on demand, e.g.
// in response to a user command rather than a filesystem event.
func (h *Host) LoadPlugin(dir string) error {
	return h.reg.reload(context.Background(), dir)
}

// UnloadPlugin removes a loaded plugin and its commands.
func (h *Host) UnloadPlugin(name string) {
	h.reg.unload(context.Background(), name)
}

// ReloadPlugin is an alias for LoadPlugin kept for symmetry with the
// unload/reload naming used elsewhere in the plugin lifecycle.
func (h *Host) ReloadPlugin(dir string) error {
	return h.LoadPlugin(dir)
}

// GetPluginInfo returns the summary for one loaded plugin by name.
func (h *Host) GetPluginInfo(name string) (Info, bool) {
	if _, ok := h.reg.instances[name]; !ok {
		return Info{}, false
	}
	return h.reg.info(name), true
}

// ListPlugins returns every loaded plugin's summary, sorted by name.
func (h *Host) ListPlugins() []Info { return h.reg.listPlugins() }

// ListCommands returns every registered command name, sorted.
func (h *Host) ListCommands() []string { return h.reg.listCommands() }

// CheckHotReload forces an immediate mtime rescan, for callers (tests, a
// `plugin-reload` builtin) that want to bypass the debounce window.
func (h *Host) CheckHotReload() []string {
	changed := h.reg.checkForChanges()
	for _, dir := range changed {
		if err := h.reg.reload(context.Background(), dir); err != nil {
			h.warnf("plugin hot reload: %v", err)
		}
	}
	return changed
}

// Close stops the hot-reload watcher and tears down every loaded plugin's
// wazero runtime.
func (h *Host) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.reloader != nil {
		h.reloader.stop()
	}
	h.reg.closeAll(context.Background())
}

// Hot reload watcher (spec §4.11 "Hot reload", §9): fsnotify on the
// plugin root, debounced through boz/go-throttle the same way the
// lazydocker teacher debounces its own refresh loop, backstopped by
// Registry.checkForChanges' mtime rescan for events the watcher misses
// (editors that replace-via-rename, NFS mounts, etc).
package plugin

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/boz/go-throttle"
	"github.com/fsnotify/fsnotify"
)

const hotReloadDebounce = 2 * time.Second

// hotReloader owns the filesystem watcher and the set of plugin
// directories queued for reload, draining them on the throttled tick.
type hotReloader struct {
	watcher  *fsnotify.Watcher
	throttle throttle.ThrottleDriver
	pending  map[string]bool
	onError  func(error)
}

// newHotReloader watches root non-recursively (plugin directories are one
// level deep, matching the scan layout) plus every existing plugin
// subdirectory, so edits to a plugin's own plugin.toml/config.toml/wasm
// fire events too. A watcher-creation failure is logged by the caller and
// never fatal (spec §4.11: "errors logged but never fatal").
func newHotReloader(root string, reg *Registry, onError func(error)) (*hotReloader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, err
	}
	for _, inst := range reg.instances {
		_ = w.Add(inst.dir) // best-effort; bare-wasm plugins share root already watched
	}

	hr := &hotReloader{watcher: w, pending: map[string]bool{}, onError: onError}
	hr.throttle = throttle.ThrottleFunc(hotReloadDebounce, true, func() {
		hr.drain(reg)
	})
	return hr, nil
}

// relevant reports whether a changed path should trigger a reload: the
// wasm binary, the manifest, or the user config overlay (spec §4.11
// "relevant events").
func relevant(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".wasm") || base == "plugin.toml" || base == "config.toml"
}

// run drains fsnotify events until ctx is cancelled, queuing the owning
// plugin directory for reload and triggering the debounced drain.
func (hr *hotReloader) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			hr.watcher.Close()
			return
		case ev, ok := <-hr.watcher.Events:
			if !ok {
				return
			}
			if !relevant(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			hr.pending[filepath.Dir(ev.Name)] = true
			hr.throttle.Trigger()
		case err, ok := <-hr.watcher.Errors:
			if !ok {
				return
			}
			if hr.onError != nil {
				hr.onError(err)
			}
		}
	}
}

func (hr *hotReloader) drain(reg *Registry) {
	dirs := hr.pending
	hr.pending = map[string]bool{}
	for dir := range dirs {
		if err := reg.reload(context.Background(), dir); err != nil {
			if hr.onError != nil {
				hr.onError(&Error{Kind: KindHotReload, Message: err.Error()})
			}
		}
	}
}

func (hr *hotReloader) stop() {
	hr.throttle.Stop()
}

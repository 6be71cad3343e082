// Package module implements hsab's `.import` loader (spec C10): path
// resolution, cycle-safe re-entry, and the private/namespaced definition
// rename pass after a module loads. Grounded on the teacher's i18n loader
// shape (pkg/i18n/i18n.go's "load a source, then fold its effects into a
// running registry" pattern) and its use of github.com/spkg/bom
// (pkg/gui/view_helpers.go) to strip a leading BOM before further
// processing — hsab applies the same cleaning to `.hsab` source files.
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spkg/bom"
)

// SearchPath resolves a module path the way §4.10 specifies: absolute
// paths are used as-is; otherwise cwd, cwd/lib, $HOME/.hsab/lib, then each
// directory in HSAB_PATH are tried in order.
func SearchPath(path, cwd, home string) []string {
	if filepath.IsAbs(path) {
		return []string{path}
	}
	dirs := []string{cwd, filepath.Join(cwd, "lib")}
	if home != "" {
		dirs = append(dirs, filepath.Join(home, ".hsab", "lib"))
	}
	if extra := os.Getenv("HSAB_PATH"); extra != "" {
		for _, d := range strings.Split(extra, ":") {
			if d != "" {
				dirs = append(dirs, d)
			}
		}
	}
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = filepath.Join(d, path)
	}
	return out
}

// Resolve finds the first candidate from SearchPath that exists on disk,
// returning its canonical absolute path.
func Resolve(path, cwd, home string) (string, error) {
	for _, candidate := range SearchPath(path, cwd, home) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return candidate, nil
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("module not found: %s", path)
}

// ReadSource reads a module file, stripping a leading UTF-8 BOM if present
// (spkg/bom), as stray BOMs are common in files authored/saved on Windows.
func ReadSource(canonicalPath string) (string, error) {
	data, err := os.ReadFile(canonicalPath)
	if err != nil {
		return "", err
	}
	return string(bom.Clean(data)), nil
}

// Namespace is the alias if given, else the module's filename stem (spec
// §4.10).
func Namespace(canonicalPath, alias string) string {
	if alias != "" {
		return alias
	}
	base := filepath.Base(canonicalPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Loader tracks which canonical module paths have already been loaded
// this session, making re-entry a no-op (spec's cycle safety).
type Loader struct {
	loaded map[string]bool
}

func NewLoader() *Loader {
	return &Loader{loaded: map[string]bool{}}
}

// AlreadyLoaded reports whether canonicalPath has been loaded before.
func (l *Loader) AlreadyLoaded(canonicalPath string) bool {
	return l.loaded[canonicalPath]
}

// MarkLoaded records canonicalPath as loaded (append-only for the session,
// per spec §5).
func (l *Loader) MarkLoaded(canonicalPath string) {
	l.loaded[canonicalPath] = true
}

// Loaded returns every canonical path loaded so far.
func (l *Loader) Loaded() []string {
	out := make([]string, 0, len(l.loaded))
	for p := range l.loaded {
		out = append(out, p)
	}
	return out
}

// RenamePlan computes, from a pre-load and post-load snapshot of definition
// names, which newly-added-or-changed names should be dropped (private,
// leading `_`) versus renamed to `namespace::name` (spec §4.10).
type RenamePlan struct {
	Drop   []string
	Rename map[string]string // old name -> namespace::name
}

func ComputeRenamePlan(namespace string, before, after map[string]bool) RenamePlan {
	plan := RenamePlan{Rename: map[string]string{}}
	for name := range after {
		if before[name] {
			continue
		}
		if strings.HasPrefix(name, "_") {
			plan.Drop = append(plan.Drop, name)
			continue
		}
		plan.Rename[name] = namespace + "::" + name
	}
	return plan
}

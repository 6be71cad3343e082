// Package resolver classifies a bare word into one of hsab's dispatch
// kinds (spec C4): definition, alias, builtin, plugin, or external
// executable, falling back to a plain literal push. Grounded on the
// teacher's pkg/commands/os.go PATH-lookup idiom (NewOSCommand's
// exec.Command/os.Getenv wiring), extended with a cache so repeated
// lookups of the same word don't re-walk PATH on every evaluation (spec's
// "(PATH search, cached)" note).
package resolver

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Kind is the result of classifying a word.
type Kind int

const (
	KindLiteral Kind = iota
	KindDefinition
	KindAlias
	KindBuiltin
	KindPlugin
	KindExecutable
)

func (k Kind) String() string {
	switch k {
	case KindDefinition:
		return "Definition"
	case KindAlias:
		return "Alias"
	case KindBuiltin:
		return "Builtin"
	case KindPlugin:
		return "Plugin"
	case KindExecutable:
		return "Executable"
	default:
		return "Literal"
	}
}

// Lookups is the set of name-membership tests the resolver consults, in
// priority order (spec §4.2): definition, alias, builtin, plugin. Each is
// supplied by pkg/eval so this package stays free of a dependency on the
// definition/builtin registries themselves.
type Lookups struct {
	HasDefinition func(name string) bool
	HasAlias      func(name string) bool
	HasBuiltin    func(name string) bool
	HasPlugin     func(name string) bool
}

// Resolver classifies words and caches PATH executable lookups.
type Resolver struct {
	lookups Lookups

	mu       sync.Mutex
	pathSeen string
	execPath map[string]string // name -> resolved path, cleared when PATH changes
}

func New(lookups Lookups) *Resolver {
	return &Resolver{lookups: lookups, execPath: map[string]string{}}
}

// Classify returns which dispatch kind a bare word resolves to, in spec
// §4.2's priority order. It never consults HasAlias/HasBuiltin/HasPlugin
// once an earlier, higher-priority kind matches.
func (r *Resolver) Classify(name string) Kind {
	switch {
	case r.lookups.HasDefinition != nil && r.lookups.HasDefinition(name):
		return KindDefinition
	case r.lookups.HasAlias != nil && r.lookups.HasAlias(name):
		return KindAlias
	case r.lookups.HasBuiltin != nil && r.lookups.HasBuiltin(name):
		return KindBuiltin
	case r.lookups.HasPlugin != nil && r.lookups.HasPlugin(name):
		return KindPlugin
	case r.IsExecutable(name):
		return KindExecutable
	default:
		return KindLiteral
	}
}

// IsExecutable reports whether name resolves to something runnable: an
// absolute/relative path that exists and is executable, or a bare name
// found on PATH.
func (r *Resolver) IsExecutable(name string) bool {
	_, ok := r.FindExecutable(name)
	return ok
}

// FindExecutable resolves name to a full path, the way `which` does. PATH
// lookups are cached until the PATH environment variable itself changes
// (SPEC_FULL's caching note); direct/relative paths are never cached since
// their existence can change underneath a long-running shell.
func (r *Resolver) FindExecutable(name string) (string, bool) {
	if strings.ContainsRune(name, filepath.Separator) || strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") {
		if info, err := os.Stat(name); err == nil && !info.IsDir() && isExecutableMode(info.Mode()) {
			abs, err := filepath.Abs(name)
			if err != nil {
				return name, true
			}
			return abs, true
		}
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	currentPath := os.Getenv("PATH")
	if currentPath != r.pathSeen {
		r.pathSeen = currentPath
		r.execPath = map[string]string{}
	}

	if p, ok := r.execPath[name]; ok {
		return p, p != ""
	}

	path, err := exec.LookPath(name)
	if err != nil {
		r.execPath[name] = ""
		return "", false
	}
	r.execPath[name] = path
	return path, true
}

// InvalidateExecutableCache drops all cached PATH lookups. Nothing in the
// evaluator calls it; FindExecutable already starts a fresh cache whenever
// the PATH string changes.
func (r *Resolver) InvalidateExecutableCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execPath = map[string]string{}
}

func isExecutableMode(mode os.FileMode) bool {
	return mode&0o111 != 0
}

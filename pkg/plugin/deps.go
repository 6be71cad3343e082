// Dependency graph resolution (spec §4.11 step 2-3, §9 "Dependency
// resolution"): build the dep → plugin edges, check semver compatibility,
// then Kahn's algorithm with alphabetical tie-breaking for a deterministic
// load order. Version matching uses blang/semver/v4, already a teacher
// indirect dependency (through the podman stack) promoted to direct use.
package plugin

import (
	"sort"
	"strings"

	"github.com/blang/semver/v4"
)

// namedManifest pairs a manifest with the directory it was loaded from,
// used only within this package for dependency resolution and loading.
type namedManifest struct {
	dir      string
	manifest Manifest
}

// resolveLoadOrder returns a permutation of manifests' keys such that for
// every edge dep -> plugin, dep precedes plugin (spec §9).
func resolveLoadOrder(manifests map[string]namedManifest) ([]string, error) {
	graph := map[string][]string{}
	indegree := map[string]int{}
	for name := range manifests {
		graph[name] = nil
		indegree[name] = 0
	}

	for name, nm := range manifests {
		for depName, req := range nm.manifest.Dependencies {
			dep, ok := manifests[depName]
			if !ok {
				return nil, newErr(KindMissingDependency, "plugin %q requires %q which is not installed", name, depName)
			}

			constraint, err := semver.ParseRange(req)
			if strings.HasPrefix(req, "^") {
				var base semver.Version
				base, err = semver.Parse(strings.TrimPrefix(req, "^"))
				constraint = func(v semver.Version) bool {
					return v.GTE(base) && v.Major == base.Major && (base.Major > 0 || v.Minor == base.Minor)
				}
			}
			if err != nil {
				return nil, newErr(KindManifest, "invalid version requirement %q in %s: %v", req, name, err)
			}
			ver, err := semver.Parse(dep.manifest.Plugin.Version)
			if err != nil {
				return nil, newErr(KindManifest, "invalid version %q in %s: %v", dep.manifest.Plugin.Version, depName, err)
			}
			if !constraint(ver) {
				return nil, &Error{Kind: KindVersionMismatch, Plugin: name, Required: req, Found: dep.manifest.Plugin.Version}
			}

			graph[depName] = append(graph[depName], name)
			indegree[name]++
		}
	}

	var queue []string
	for name, deg := range indegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		name := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		order = append(order, name)

		neighbors := append([]string(nil), graph[name]...)
		sort.Strings(neighbors)
		for _, neighbor := range neighbors {
			indegree[neighbor]--
			if indegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
		sort.Strings(queue)
	}

	if len(order) != len(manifests) {
		return nil, newErr(KindCircularDependency, "plugin dependency graph has a cycle")
	}
	return order, nil
}

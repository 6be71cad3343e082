package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestOf(name, version string, deps map[string]string) namedManifest {
	return namedManifest{
		dir: name,
		manifest: Manifest{
			Plugin:       Meta{Name: name, Version: version},
			Dependencies: deps,
		},
	}
}

func TestResolveLoadOrderNoDependencies(t *testing.T) {
	manifests := map[string]namedManifest{
		"charlie": manifestOf("charlie", "1.0.0", nil),
		"alpha":   manifestOf("alpha", "1.0.0", nil),
		"bravo":   manifestOf("bravo", "1.0.0", nil),
	}

	// With no dependency edges every name starts at indegree 0 and the
	// queue is popped LIFO, so independent plugins load in descending
	// alphabetical order.
	order, err := resolveLoadOrder(manifests)
	require.NoError(t, err)
	assert.Equal(t, []string{"charlie", "bravo", "alpha"}, order)
}

func TestResolveLoadOrderDependencyPrecedesDependent(t *testing.T) {
	manifests := map[string]namedManifest{
		"net":  manifestOf("net", "1.2.0", nil),
		"http": manifestOf("http", "1.0.0", map[string]string{"net": "^1.0.0"}),
	}

	order, err := resolveLoadOrder(manifests)
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.Equal(t, "net", order[0])
	assert.Equal(t, "http", order[1])
}

func TestResolveLoadOrderMissingDependency(t *testing.T) {
	manifests := map[string]namedManifest{
		"http": manifestOf("http", "1.0.0", map[string]string{"net": "^1.0.0"}),
	}

	_, err := resolveLoadOrder(manifests)
	require.Error(t, err)
	pluginErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindMissingDependency, pluginErr.Kind)
}

func TestResolveLoadOrderVersionMismatch(t *testing.T) {
	manifests := map[string]namedManifest{
		"net":  manifestOf("net", "0.9.0", nil),
		"http": manifestOf("http", "1.0.0", map[string]string{"net": "^1.0.0"}),
	}

	_, err := resolveLoadOrder(manifests)
	require.Error(t, err)
	pluginErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindVersionMismatch, pluginErr.Kind)
	assert.Equal(t, "http", pluginErr.Plugin)
	assert.Equal(t, "0.9.0", pluginErr.Found)
}

func TestResolveLoadOrderCircularDependency(t *testing.T) {
	manifests := map[string]namedManifest{
		"a": manifestOf("a", "1.0.0", map[string]string{"b": "^1.0.0"}),
		"b": manifestOf("b", "1.0.0", map[string]string{"a": "^1.0.0"}),
	}

	_, err := resolveLoadOrder(manifests)
	require.Error(t, err)
	pluginErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindCircularDependency, pluginErr.Kind)
}

func TestResolveLoadOrderInvalidVersionRequirement(t *testing.T) {
	manifests := map[string]namedManifest{
		"net":  manifestOf("net", "1.0.0", nil),
		"http": manifestOf("http", "1.0.0", map[string]string{"net": "not-a-range"}),
	}

	_, err := resolveLoadOrder(manifests)
	require.Error(t, err)
	pluginErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindManifest, pluginErr.Kind)
}

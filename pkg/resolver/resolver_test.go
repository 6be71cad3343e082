package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPriorityOrder(t *testing.T) {
	r := New(Lookups{
		HasDefinition: func(n string) bool { return n == "square" },
		HasAlias:      func(n string) bool { return n == "ll" },
		HasBuiltin:    func(n string) bool { return n == "dup" },
		HasPlugin:     func(n string) bool { return n == "greet" },
	})

	assert.Equal(t, KindDefinition, r.Classify("square"))
	assert.Equal(t, KindAlias, r.Classify("ll"))
	assert.Equal(t, KindBuiltin, r.Classify("dup"))
	assert.Equal(t, KindPlugin, r.Classify("greet"))
}

func TestClassifyFallsBackToExecutableThenLiteral(t *testing.T) {
	r := New(Lookups{})
	assert.Equal(t, KindExecutable, r.Classify("ls"))
	assert.Equal(t, KindLiteral, r.Classify("not-a-real-word-xyz-123"))
}

func TestFindExecutableCachesUntilPathChanges(t *testing.T) {
	r := New(Lookups{})

	path1, ok := r.FindExecutable("ls")
	assert.True(t, ok)
	assert.NotEmpty(t, path1)

	path2, ok := r.FindExecutable("ls")
	assert.True(t, ok)
	assert.Equal(t, path1, path2)

	t.Setenv("PATH", "")
	_, ok = r.FindExecutable("ls")
	assert.False(t, ok)
}

func TestDefinitionBeatsExecutableOfSameName(t *testing.T) {
	r := New(Lookups{HasDefinition: func(n string) bool { return n == "ls" }})
	assert.Equal(t, KindDefinition, r.Classify("ls"))
}

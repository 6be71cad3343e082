package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorVersionMismatchMessage(t *testing.T) {
	err := &Error{Kind: KindVersionMismatch, Plugin: "http", Required: "^1.0.0", Found: "0.9.0"}
	assert.Equal(t, `plugin "http" requires "^1.0.0", found "0.9.0"`, err.Error())
}

func TestErrorDefaultMessage(t *testing.T) {
	err := newErr(KindCommandNotFound, "no plugin registers %q", "greet")
	assert.Equal(t, `CommandNotFound: no plugin registers "greet"`, err.Error())
}

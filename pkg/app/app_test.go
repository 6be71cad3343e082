package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsab-shell/hsab/pkg/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	t.Setenv("HSAB_CONFIG_DIR", t.TempDir())

	cfg, err := config.NewAppConfig("hsab", "test-version", "test-commit", "test-date", "test-build-source", false, t.TempDir())
	require.NoError(t, err)
	cfg.UserConfig.Plugin.HotReload = false
	cfg.UserConfig.Plugin.Dir = t.TempDir()

	theApp, err := NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { theApp.Close() })
	return theApp
}

func TestNewAppInitializesFields(t *testing.T) {
	theApp := newTestApp(t)

	assert.NotNil(t, theApp.Config)
	assert.NotNil(t, theApp.Log)
	assert.NotNil(t, theApp.Tr)
	assert.NotNil(t, theApp.Plugins)
	assert.NotNil(t, theApp.Eval)
}

func TestAppKnownError(t *testing.T) {
	theApp := newTestApp(t)

	tests := []struct {
		name        string
		errMessage  string
		expectKnown bool
	}{
		{name: "permission denied", errMessage: "permission denied", expectKnown: true},
		{name: "executable not found", errMessage: "exec: \"frobnicate\": executable file not found in $PATH", expectKnown: true},
		{name: "unknown error", errMessage: "some unrelated failure", expectKnown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, known := theApp.KnownError(&mockError{message: tt.errMessage})
			assert.Equal(t, tt.expectKnown, known)
			if tt.expectKnown {
				assert.Contains(t, text, theApp.Tr.ErrorPrefix)
			} else {
				assert.Empty(t, text)
			}
		})
	}
}

func TestRunCommandPushesResultAndExitsZero(t *testing.T) {
	theApp := newTestApp(t)

	code := theApp.RunCommand("1 2 plus")
	assert.Equal(t, 0, code)

	top, ok := theApp.Eval.Peek(0)
	require.True(t, ok)
	assert.Equal(t, "3", top.AsArg())
}

func TestRunCommandParseErrorReturnsOne(t *testing.T) {
	theApp := newTestApp(t)

	code := theApp.RunCommand("[unterminated")
	assert.Equal(t, 1, code)
}

func TestRunScriptStopsAtFirstErroringLine(t *testing.T) {
	theApp := newTestApp(t)

	// line 2 underflows (stack only has the line-1 result on it), so line 3
	// never runs.
	code := theApp.RunScript("1 2 plus\nplus\n3 4 plus")
	assert.Equal(t, 1, code)
}

func TestAppendModulePathAppendsToExistingPath(t *testing.T) {
	t.Setenv("HSAB_PATH", "/one")
	appendModulePath("/two")
	assert.Equal(t, "/one:/two", os.Getenv("HSAB_PATH"))
}

func TestAppendModulePathSetsWhenUnset(t *testing.T) {
	t.Setenv("HSAB_PATH", "")
	appendModulePath("/solo")
	assert.Equal(t, "/solo", os.Getenv("HSAB_PATH"))
}

func TestAppendModulePathIgnoresEmptyDir(t *testing.T) {
	t.Setenv("HSAB_PATH", "/existing")
	appendModulePath("")
	assert.Equal(t, "/existing", os.Getenv("HSAB_PATH"))
}

type mockError struct{ message string }

func (e *mockError) Error() string { return e.message }

// Package app wires the ambient stack (config, logger, translations) to
// the evaluator and plugin host, then drives a script or REPL. Grounded
// on the teacher's pkg/app/app.go: the same "thin struct holding a
// logger/config/command-layer/translation-set, with a NewApp bootstrap
// and a Run entry point" shape, generalized from a GUI event loop to a
// stack-machine drive loop.
package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hsab-shell/hsab/pkg/config"
	"github.com/hsab-shell/hsab/pkg/eval"
	"github.com/hsab-shell/hsab/pkg/i18n"
	"github.com/hsab-shell/hsab/pkg/log"
	"github.com/hsab-shell/hsab/pkg/parser"
	"github.com/hsab-shell/hsab/pkg/plugin"
)

// App struct
type App struct {
	closers []io.Closer

	Config  *config.AppConfig
	Log     *logrus.Entry
	Tr      *i18n.TranslationSet
	Plugins *plugin.Host
	Eval    *eval.Evaluator

	// Login mirrors the `-l`/`--login` flag: when true, RunREPL sources
	// ~/.hsab_profile after the stdlib and rc file.
	Login bool
}

// NewApp bootstraps a new application: config, logger, translations,
// plugin host, and an evaluator wired to the plugin host's dispatch.
func NewApp(cfg *config.AppConfig) (*App, error) {
	app := &App{
		closers: []io.Closer{},
		Config:  cfg,
	}

	app.Log = log.NewLogger(cfg)
	app.Tr = i18n.NewTranslationSet(app.Log, cfg.UserConfig.Language)

	for _, dir := range cfg.UserConfig.ModulePath {
		appendModulePath(dir)
	}

	pluginDir := cfg.UserConfig.Plugin.Dir
	if pluginDir == "" {
		pluginDir = plugin.DefaultPluginDir()
	}
	warnf := func(format string, args ...interface{}) { app.Log.Warnf(format, args...) }

	var pluginHost *plugin.Host
	var err error
	if cfg.UserConfig.Plugin.HotReload {
		pluginHost, err = plugin.New(pluginDir, warnf)
	} else {
		pluginHost, err = plugin.NewWithoutHotReload(pluginDir, warnf)
	}
	if err != nil {
		return app, err
	}
	app.Plugins = pluginHost

	app.Eval = eval.New(app.Log)
	app.Eval.Trace = cfg.Debug
	app.Eval.Debug = false
	app.Eval.PluginCommands = pluginHost.HasCommand
	app.Eval.PluginCall = pluginHost.Call

	if os.Getenv("HSAB_MAX_RECURSION") == "" {
		app.Eval.SetMaxRecursion(cfg.UserConfig.MaxRecursion)
	}
	if os.Getenv("HSAB_PREVIEW_LEN") == "" {
		app.Eval.SetPreviewLen(cfg.UserConfig.PreviewLength)
	}

	return app, nil
}

// appendModulePath adds dir to HSAB_PATH so pkg/module's SearchPath picks
// it up, the same merge-config-into-environment contract the teacher uses
// for its compose-file/workdir plumbing.
func appendModulePath(dir string) {
	if dir == "" {
		return
	}
	existing := os.Getenv("HSAB_PATH")
	if existing == "" {
		os.Setenv("HSAB_PATH", dir)
		return
	}
	os.Setenv("HSAB_PATH", existing+":"+dir)
}

// RunScript parses and evaluates the given source line-by-line (spec §7
// "Error at line N: " reporting), returning the evaluator's exit code.
func (app *App) RunScript(source string) int {
	for i, line := range splitScriptLines(source) {
		exprs, err := parser.Parse(line)
		if err != nil {
			app.reportError(i+1, err)
			return 1
		}
		if err := app.Eval.Run(exprs); err != nil {
			app.reportError(i+1, err)
			return 1
		}
	}
	return app.Eval.ExitCode()
}

// RunCommand evaluates a single command string (the `-c` flag), reporting
// an error with no line number the way a one-line `-c` invocation has none
// to report.
func (app *App) RunCommand(command string) int {
	exprs, err := parser.Parse(command)
	if err != nil {
		app.reportLineless(err)
		return 1
	}
	if err := app.Eval.Run(exprs); err != nil {
		app.reportLineless(err)
		return 1
	}
	return app.Eval.ExitCode()
}

// RunREPL sources the stdlib, the rc file, and (if Login) the profile,
// then reads and evaluates lines from stdin until EOF, printing the
// top-of-stack preview after each line.
func (app *App) RunREPL() int {
	if app.Config.UserConfig.ShowBanner || os.Getenv("HSAB_BANNER") != "" {
		fmt.Fprintln(app.Eval.Stdout, app.Tr.Banner)
	}

	app.sourceStartupFile(stdlibPath())
	app.sourceStartupFile(rcPath())
	if app.Login {
		app.sourceStartupFile(profilePath())
	}

	scanner := bufio.NewScanner(os.Stdin)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		exprs, err := parser.Parse(line)
		if err != nil {
			app.reportError(lineNo, err)
			continue
		}
		if err := app.Eval.Run(exprs); err != nil {
			app.reportError(lineNo, err)
			continue
		}
		if top, ok := app.Eval.Peek(0); ok {
			fmt.Fprintln(app.Eval.Stdout, top.AsArg())
		}
	}
	return app.Eval.ExitCode()
}

// sourceStartupFile loads path if it exists, reporting (but not aborting
// on) any error the way a missing/broken rc file shouldn't stop the REPL
// from starting.
func (app *App) sourceStartupFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		return
	}
	exprs, err := parser.Parse(string(content))
	if err != nil {
		app.reportLineless(err)
		return
	}
	if err := app.Eval.Run(exprs); err != nil {
		app.reportLineless(err)
	}
}

func splitScriptLines(source string) []string {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	return strings.Split(source, "\n")
}

func (app *App) reportError(line int, err error) {
	fmt.Fprintf(app.Eval.Stderr, app.Tr.ErrorAtLinePrefix+"%s\n", line, err.Error())
	app.Log.Error(err)
}

func (app *App) reportLineless(err error) {
	fmt.Fprintf(app.Eval.Stderr, "%s%s\n", app.Tr.ErrorPrefix, err.Error())
	app.Log.Error(err)
}

func stdlibPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hsab", "lib", "stdlib.hsabrc")
}

func rcPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hsabrc")
}

func profilePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hsab_profile")
}

// Close closes any resources, including the plugin host's hot-reload
// watcher and every loaded plugin's WASM runtime.
func (app *App) Close() error {
	if app.Plugins != nil {
		app.Plugins.Close()
	}
	var errs []error
	for _, closer := range app.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

type errorMapping struct {
	originalError string
	newError      string
}

// KnownError takes an error and tells us whether it's an error we know
// about where we can print a nicely formatted version of it rather than
// panicking with a stack trace.
func (app *App) KnownError(err error) (string, bool) {
	errorMessage := err.Error()

	mappings := []errorMapping{
		{
			originalError: "permission denied",
			newError:      app.Tr.ErrorPrefix + "permission denied launching the command",
		},
		{
			originalError: "executable file not found",
			newError:      app.Tr.ErrorPrefix + "command not found",
		},
	}

	for _, mapping := range mappings {
		if strings.Contains(errorMessage, mapping.originalError) {
			return mapping.newError, true
		}
	}

	return "", false
}

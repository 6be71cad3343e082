package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"github.com/go-errors/errors"
	"github.com/integrii/flaggy"
	"github.com/jesseduffield/yaml"
	"github.com/samber/lo"

	"github.com/hsab-shell/hsab/pkg/app"
	"github.com/hsab-shell/hsab/pkg/config"
	"github.com/hsab-shell/hsab/pkg/utils"
)

// defaultStdlib seeds ~/.hsab/lib/stdlib.hsabrc with a handful of small,
// commonly-reached-for words built from already-registered builtins
// (spec §6 persisted state layout).
const defaultStdlib = `
[dup mul] :square
[dup dup mul mul] :cube
[2 mul] :double
[2 div] :halve
[1 plus] :inc
[1 minus] :dec
`

const DEFAULT_VERSION = "unversioned"

var (
	commit      string
	version     = DEFAULT_VERSION
	date        string
	buildSource = "unknown"

	configFlag    = false
	debuggingFlag = false
	traceFlag     = false
	loginFlag     = false
	command       = ""
	scriptArg     = ""
)

func main() {
	updateBuildInfo()

	info := fmt.Sprintf(
		"%s\nDate: %s\nBuildSource: %s\nCommit: %s\nOS: %s\nArch: %s",
		version,
		date,
		buildSource,
		commit,
		runtime.GOOS,
		runtime.GOARCH,
	)

	flaggy.SetName("hsab")
	flaggy.SetDescription("a stack-based postfix shell")
	flaggy.DefaultParser.AdditionalHelpPrepend = "https://github.com/hsab-shell/hsab"

	flaggy.Bool(&configFlag, "", "config", "Print the current default config")
	flaggy.Bool(&debuggingFlag, "d", "debug", "a boolean")
	flaggy.Bool(&traceFlag, "", "trace", "Print each expression and stack state")
	flaggy.Bool(&loginFlag, "l", "login", "Run login profile on REPL startup")
	flaggy.String(&command, "c", "command", "Execute a single command string")

	initSubcommand := flaggy.NewSubcommand("init")
	initSubcommand.Description = "Install the standard library to ~/.hsab/lib/stdlib.hsabrc"
	flaggy.AttachSubcommand(initSubcommand, 1)

	flaggy.AddPositionalValue(&scriptArg, "script", 1, false, "Execute a script file")
	flaggy.SetVersion(info)

	flaggy.Parse()

	if configFlag {
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		err := encoder.Encode(config.GetDefaultConfig())
		if err != nil {
			log.Fatal(err.Error())
		}
		fmt.Printf("%v\n", buf.String())
		os.Exit(0)
	}

	if initSubcommand.Used {
		if err := installStdlib(); err != nil {
			log.Fatal(err.Error())
		}
		os.Exit(0)
	}

	projectDir, err := os.Getwd()
	if err != nil {
		log.Fatal(err.Error())
	}

	appConfig, err := config.NewAppConfig("hsab", version, commit, date, buildSource, debuggingFlag, projectDir)
	if err != nil {
		log.Fatal(err.Error())
	}

	theApp, err := app.NewApp(appConfig)
	if err == nil {
		theApp.Login = loginFlag
		theApp.Eval.Trace = theApp.Eval.Trace || traceFlag

		switch {
		case command != "":
			theApp.Eval.SetExitCode(theApp.RunCommand(command))
		case scriptArg != "":
			var content []byte
			content, err = os.ReadFile(scriptArg)
			if err == nil {
				theApp.Eval.SetExitCode(theApp.RunScript(string(content)))
			}
		default:
			theApp.Eval.SetExitCode(theApp.RunREPL())
		}
	}

	exitCode := 0
	if theApp != nil {
		if theApp.Eval != nil {
			exitCode = theApp.Eval.ExitCode()
		}
		closeErr := theApp.Close()
		if err == nil {
			err = closeErr
		}
	}

	if err != nil {
		if errMessage, known := theApp.KnownError(err); known {
			log.Println(errMessage)
			os.Exit(1)
		}

		newErr := errors.Wrap(err, 0)
		stackTrace := newErr.ErrorStack()
		theApp.Log.Error(stackTrace)

		log.Fatalf("%s\n\n%s", theApp.Tr.ErrorOccurred, stackTrace)
	}

	os.Exit(exitCode)
}

// installStdlib copies the embedded standard library source to
// ~/.hsab/lib/stdlib.hsabrc (spec §6 `hsab init`).
func installStdlib() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	libDir := filepath.Join(home, ".hsab", "lib")
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(libDir, "stdlib.hsabrc")
	if _, err := os.Stat(dest); err == nil {
		fmt.Printf("%s already exists, leaving it in place\n", dest)
		return nil
	}
	return os.WriteFile(dest, []byte(defaultStdlib), 0o644)
}

func updateBuildInfo() {
	if version == DEFAULT_VERSION {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			revision, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.revision"
			})
			if ok {
				commit = revision.Value
				// if hsab was built from source we'll show the version as the
				// abbreviated commit hash
				version = utils.SafeTruncate(revision.Value, 7)
			}

			// if version hasn't been set we assume that neither has the date
			time, ok := lo.Find(buildInfo.Settings, func(setting debug.BuildSetting) bool {
				return setting.Key == "vcs.time"
			})
			if ok {
				date = time.Value
			}
		}
	}
}

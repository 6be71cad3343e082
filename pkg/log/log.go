// Package log builds the JSON-formatted logrus.Entry every other package
// takes as a constructor argument (spec AMBIENT STACK "Logging"), grounded
// directly on the teacher's pkg/log/log.go: development mode logs to a
// file under the config directory, production mode discards all log
// output.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/hsab-shell/hsab/pkg/config"
)

// NewLogger returns a new logger
func NewLogger(cfg *config.AppConfig) *logrus.Entry {
	var l *logrus.Logger
	if cfg.Debug || os.Getenv("HSAB_DEBUG") == "1" {
		l = newDevelopmentLogger(cfg)
	} else {
		l = newProductionLogger()
	}

	l.Formatter = &logrus.JSONFormatter{}

	return l.WithFields(logrus.Fields{
		"debug":     cfg.Debug,
		"version":   cfg.Version,
		"commit":    cfg.Commit,
		"buildDate": cfg.BuildDate,
	})
}

func getLogLevel() logrus.Level {
	strLevel := os.Getenv("LOG_LEVEL")
	level, err := logrus.ParseLevel(strLevel)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger(cfg *config.AppConfig) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(getLogLevel())
	file, err := os.OpenFile(filepath.Join(cfg.ConfigDir, "development.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Println("unable to log to file")
		os.Exit(1)
	}
	l.SetOutput(file)
	return l
}

func newProductionLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// Package log provides structured logging backed by logrus with filesystem-based persistence.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/melodeck/melodeck/filesystem"
	"github.com/melodeck/melodeck/key"
	"github.com/melodeck/melodeck/where"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// logger discards everything until Setup enables file output.
var logger = newDiscard()

func newDiscard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Setup initializes the logging subsystem, including file handles, formatting, and severity levels based on global configuration.
// If logging is disabled, all subsequent log emissions are silently discarded.
func Setup() error {
	if !viper.GetBool(key.LogsWrite) {
		logger = newDiscard()
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))
	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	return SetOutput(f)
}

// SetOutput routes log emissions to w using the configured format and level.
func SetOutput(w io.Writer) error {
	l := logrus.New()
	l.SetOutput(w)

	if viper.GetBool(key.LogsJson) {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	logger = l
	return nil
}

// With returns an entry carrying the given structured fields.
func With(fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

func Error(args ...any)                 { logger.Error(args...) }
func Errorf(format string, args ...any) { logger.Errorf(format, args...) }
func Warn(args ...any)                  { logger.Warn(args...) }
func Warnf(format string, args ...any)  { logger.Warnf(format, args...) }
func Info(args ...any)                  { logger.Info(args...) }
func Infof(format string, args ...any)  { logger.Infof(format, args...) }
func Debug(args ...any)                 { logger.Debug(args...) }
func Debugf(format string, args ...any) { logger.Debugf(format, args...) }

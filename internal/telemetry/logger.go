// Package telemetry provides the structured logger used across daonet,
// built on logrus behind a small interface, with one concrete default
// implementation.
package telemetry

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is a structured logging payload, e.g. {"Logger Name": "FRAME
// COUNT", "Round Number": 3}, mirroring the ad hoc JSON dicts built by
// original_source/game/client.py before every logger.info call.
type Fields map[string]interface{}

// Logger is the abstraction every other package logs against:
// Info/Warn/Error/Debug in both plain and formatted form, plus Fatal,
// with WithFields added for structured-event logging.
type Logger interface {
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields Fields) Logger
}

// logrusLogger is the default Logger, analogous to
// definition.DefaultLogger but backed by logrus so every line is a
// structured JSON record instead of calldepth-prefixed plain text.
type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger writing JSON lines to w (typically a file under
// ./logs).
func New(w io.Writer) Logger {
	base := logrus.New()
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetOutput(w)
	base.SetLevel(logrus.DebugLevel)
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

// NewFile opens (creating parent directories as needed) the log file at
// path and returns a Logger writing to it, matching the
// ./logs/{HOST|PLAYER}_{name}_{HH-MM-SS}_DAO-NET.json naming convention.
func NewFile(path string) (Logger, error) {
	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open log file: %w", err)
	}
	return New(f), nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func (l *logrusLogger) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *logrusLogger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }
func (l *logrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *logrusLogger) WithFields(fields Fields) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

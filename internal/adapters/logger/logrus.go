// Package logger implements ports.Logger on logrus.
package logger

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger adapts logrus to the ports.Logger interface.
type Logger struct {
	log *logrus.Logger
}

// New creates a logrus-backed logger. Level strings follow logrus
// ("debug", "info", "warning", "error"); unknown strings default to info.
// When jsonOutput is set, entries are emitted as JSON for log shippers.
func New(level string, jsonOutput bool) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if jsonOutput {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	return &Logger{log: l}
}

func (l *Logger) entry(fields ...map[string]interface{}) *logrus.Entry {
	if len(fields) > 0 && fields[0] != nil {
		return l.log.WithFields(logrus.Fields(fields[0]))
	}
	return logrus.NewEntry(l.log)
}

// Debug logs a message at Debug level.
func (l *Logger) Debug(_ context.Context, msg string, fields ...map[string]interface{}) {
	l.entry(fields...).Debug(msg)
}

// Info logs a message at Info level.
func (l *Logger) Info(_ context.Context, msg string, fields ...map[string]interface{}) {
	l.entry(fields...).Info(msg)
}

// Warn logs a message at Warning level.
func (l *Logger) Warn(_ context.Context, msg string, fields ...map[string]interface{}) {
	l.entry(fields...).Warn(msg)
}

// Error logs an error message at Error level.
func (l *Logger) Error(_ context.Context, err error, msg string, fields ...map[string]interface{}) {
	entry := l.entry(fields...)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

// Package log carries the logger threaded through the RADIUS client. There
// is no package-level logger; every client gets one at construction.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured key/value pairs attached to log lines.
type Fields map[string]interface{}

// Logger defines the logging interface used throughout the RADIUS client.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	// WithFields returns a logger that adds fields to every line.
	WithFields(fields Fields) Logger
}

// DefaultLogger provides a default logger implementation using logrus.
type DefaultLogger struct {
	logger *logrus.Logger
	entry  *logrus.Entry
}

// NewDefaultLogger creates a new default logger with standard configuration.
func NewDefaultLogger() *DefaultLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.InfoLevel)

	return &DefaultLogger{
		logger: logger,
		entry:  logrus.NewEntry(logger),
	}
}

// NewLoggerWithLevel creates a new logger with specified log level.
func NewLoggerWithLevel(level string) *DefaultLogger {
	logger := NewDefaultLogger()
	logger.SetLevel(level)
	return logger
}

// NewLoggerWithOutput creates a logger writing plain text to w.
func NewLoggerWithOutput(w io.Writer, level string) *DefaultLogger {
	logger := NewLoggerWithLevel(level)
	logger.logger.SetOutput(w)
	logger.logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
	})
	return logger
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() *DefaultLogger {
	logger := NewDefaultLogger()
	logger.logger.SetOutput(io.Discard)
	logger.logger.SetLevel(logrus.PanicLevel)
	return logger
}

func (l *DefaultLogger) Debug(args ...interface{}) {
	l.entry.Debug(args...)
}

func (l *DefaultLogger) Debugf(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *DefaultLogger) Info(args ...interface{}) {
	l.entry.Info(args...)
}

func (l *DefaultLogger) Infof(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *DefaultLogger) Warn(args ...interface{}) {
	l.entry.Warn(args...)
}

func (l *DefaultLogger) Warnf(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *DefaultLogger) Error(args ...interface{}) {
	l.entry.Error(args...)
}

func (l *DefaultLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// WithFields returns a child logger sharing the same output and level.
func (l *DefaultLogger) WithFields(fields Fields) Logger {
	return &DefaultLogger{
		logger: l.logger,
		entry:  l.entry.WithFields(logrus.Fields(fields)),
	}
}

// SetLevel sets the log level for the logger. Unknown levels are ignored.
func (l *DefaultLogger) SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	l.logger.SetLevel(lvl)
}

// GetLogrus returns the underlying logrus logger for advanced configuration.
func (l *DefaultLogger) GetLogrus() *logrus.Logger {
	return l.logger
}

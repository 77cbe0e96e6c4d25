package log

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()
	require.NotNil(t, logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLogrus().GetLevel())
}

func TestNewLoggerWithLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected logrus.Level
	}{
		{"debug level", "debug", logrus.DebugLevel},
		{"info level", "info", logrus.InfoLevel},
		{"warn level", "warn", logrus.WarnLevel},
		{"error level", "error", logrus.ErrorLevel},
		{"invalid level", "invalid", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLoggerWithLevel(tt.level)
			require.NotNil(t, logger)
			assert.Equal(t, tt.expected, logger.GetLogrus().GetLevel())
		})
	}
}

func TestDefaultLoggerInterface(t *testing.T) {
	var _ Logger = NewDefaultLogger()

	logger := NewDiscardLogger()
	assert.NotPanics(t, func() {
		logger.Debug("test debug")
		logger.Debugf("test debug %s", "formatted")
		logger.Info("test info")
		logger.Infof("test info %s", "formatted")
		logger.Warn("test warn")
		logger.Warnf("test warn %s", "formatted")
		logger.Error("test error")
		logger.Errorf("test error %s", "formatted")
	})
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(&buf, "debug")

	child := logger.WithFields(Fields{"server": "127.0.0.1:1812", "id": 7})
	child.Debugf("sending %s", "Access-Request")

	out := buf.String()
	assert.Contains(t, out, "sending Access-Request")
	assert.Contains(t, out, "server=\"127.0.0.1:1812\"")
	assert.Contains(t, out, "id=7")

	buf.Reset()
	logger.Info("plain")
	assert.NotContains(t, buf.String(), "server=")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(&buf, "info")

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.SetLevel("debug")
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	logger.SetLevel("invalid")
	assert.Equal(t, logrus.DebugLevel, logger.GetLogrus().GetLevel())
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	assert.NotPanics(t, func() {
		logger.WithFields(Fields{"k": "v"}).Error("dropped")
	})
}

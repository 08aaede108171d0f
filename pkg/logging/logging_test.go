package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_PrefixAndLevels(t *testing.T) {
	var lines []string
	record := func(level string) LogFunc {
		return func(format string, args ...interface{}) {
			lines = append(lines, level+" "+fmt.Sprintf(format, args...))
		}
	}

	logger := NewLogger("module: watchdog , ", LogFuncs{
		Debugf: record("debug"),
		Infof:  record("info"),
		Warnf:  record("warn"),
		Errorf: record("error"),
	})

	logger.Infof("path: %s", "/bin/app")
	logger.Errorf("failed")
	logger.LogLevelf(LogLevelWarn, "warned %d", 1)

	assert.Equal(t, []string{
		"info module: watchdog , path: /bin/app",
		"error module: watchdog , failed",
		"warn module: watchdog , warned 1",
	}, lines)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Debugf("x")
		logger.Infof("x")
		logger.Warnf("x")
		logger.Errorf("x")
	})
}

func TestZapLogger_RoutesLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLoggerFrom(zap.New(core))

	prefixed := WithPrefix(logger, "cycle 1: ")
	prefixed.Warnf("suspended process %s", "app")
	logger.Debugf("debug line")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "cycle 1: suspended process app", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestNewZapLogger_InvalidLevel(t *testing.T) {
	_, err := NewZapLogger(ZapConfig{Level: "loud"})
	assert.Error(t, err)

	assert.True(t, ValidLevel("debug"))
	assert.False(t, ValidLevel("loud"))
}

func TestNewZapLogger_Defaults(t *testing.T) {
	logger, err := NewZapLogger(DefaultZapConfig())
	require.NoError(t, err)
	logger.Infof("hello %s", "world")
}

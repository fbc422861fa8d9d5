// Package logger_test contains tests for the logger package
package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/triggerworker/internal/platform/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected slog.Level
		ok       bool
	}{
		{name: "debug", input: "debug", expected: slog.LevelDebug, ok: true},
		{name: "info", input: "info", expected: slog.LevelInfo, ok: true},
		{name: "warn", input: "warn", expected: slog.LevelWarn, ok: true},
		{name: "error", input: "error", expected: slog.LevelError, ok: true},
		{name: "upper case", input: "DEBUG", expected: slog.LevelDebug, ok: true},
		{name: "padded", input: "  warn ", expected: slog.LevelWarn, ok: true},
		{name: "invalid", input: "verbose", expected: slog.LevelInfo, ok: false},
		{name: "empty", input: "", expected: slog.LevelInfo, ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			level, ok := logger.ParseLevel(tc.input)
			assert.Equal(t, tc.expected, level)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

// Setup replaces the default logger, so these tests do not run in parallel
func TestSetup(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	t.Run("respects level", func(t *testing.T) {
		buf := &logger.TestLogBuffer{}
		l, err := logger.Setup(logger.LoggerConfig{Level: "warn", Output: buf})
		require.NoError(t, err)
		require.NotNil(t, l)

		l.Info("hidden message")
		l.Warn("visible message", "key", "value")

		assert.NotContains(t, buf.String(), "hidden message")
		logger.AssertLogContains(t, buf, "visible message")
		logger.AssertLogField(t, buf, "key", "value")
		logger.AssertLogField(t, buf, "level", "WARN")
	})

	t.Run("sets default logger", func(t *testing.T) {
		buf := &logger.TestLogBuffer{}
		_, err := logger.Setup(logger.LoggerConfig{Level: "debug", Output: buf})
		require.NoError(t, err)

		slog.Debug("via default", "component", "test")
		logger.AssertLogField(t, buf, "msg", "via default")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		buf := &logger.TestLogBuffer{}
		l, err := logger.Setup(logger.LoggerConfig{Level: "loud", Output: buf})
		require.NoError(t, err)

		l.Debug("debug message")
		l.Info("info message")

		assert.NotContains(t, buf.String(), "debug message")
		logger.AssertLogContains(t, buf, "info message")
	})
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	l, buf := logger.GetTestLogger(t)
	ctx := logger.WithLogger(context.Background(), l)

	logger.FromContext(ctx).Info("from context")
	logger.AssertLogContains(t, buf, "from context")

	assert.Equal(t, slog.Default(), logger.FromContext(context.Background()))
	assert.Equal(t, slog.Default(), logger.FromContext(nil)) //nolint:staticcheck // nil context is handled

	fallback, _ := logger.GetTestLogger(t)
	assert.Equal(t, l, logger.FromContextOrDefault(ctx, fallback))
	assert.Equal(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
}

package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etslang/kestrel/internal/logging"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		caption  string
		level    string
		expected log.Level
	}{
		{"debug level", "debug", log.DebugLevel},
		{"info level", "info", log.InfoLevel},
		{"warn level", "warn", log.WarnLevel},
		{"warning level", "warning", log.WarnLevel},
		{"error level", "error", log.ErrorLevel},
		{"invalid defaults to info", "invalid", log.InfoLevel},
		{"empty defaults to info", "", log.InfoLevel},
		{"case insensitive DEBUG", "DEBUG", log.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			t.Parallel()

			logger := logging.New(tt.level)
			require.NotNil(t, logger)
			assert.Equal(t, tt.expected, logger.GetLevel())
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	var b bytes.Buffer
	logger := logging.NewWithWriter(&b, "warn")
	logger.Info("hidden")
	logger.Warn("shown", logging.FieldPath, "a.ets")
	assert.NotContains(t, b.String(), "hidden")
	assert.Contains(t, b.String(), "shown")
	assert.Contains(t, b.String(), "path=a.ets")
}

func TestSetDefault(t *testing.T) {
	// Not parallel because it modifies global state.
	original := logging.Default()
	defer logging.SetDefault(original)

	logger := logging.New("error")
	logging.SetDefault(logger)
	assert.Same(t, logger, logging.Default())

	logging.SetLevel("debug")
	assert.Equal(t, log.DebugLevel, logging.Default().GetLevel())
}

func TestContext(t *testing.T) {
	t.Parallel()

	logger := logging.New("debug")
	ctx := logging.WithLogger(context.Background(), logger)
	assert.Same(t, logger, logging.FromContext(ctx))
	assert.Same(t, logging.Default(), logging.FromContext(context.Background()))
}

func TestNewInteractive(t *testing.T) {
	t.Parallel()

	logger := logging.NewInteractive()
	require.NotNil(t, logger)
	assert.Equal(t, log.InfoLevel, logger.GetLevel())
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/savings-fund-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name     string
		level    string
		expected slog.Level
	}{
		{"Debug", "debug", slog.LevelDebug},
		{"Info", "info", slog.LevelInfo},
		{"Warn", "warn", slog.LevelWarn},
		{"Warning", "WARNING", slog.LevelWarn},
		{"Error", "error", slog.LevelError},
		{"Unknown", "verbose", slog.LevelInfo},
		{"Empty", "", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.level))
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &config.Config{
		Application: config.ApplicationConfig{Name: "savings-fund-ledger", Env: "test"},
		Logging:     config.LoggingConfig{Level: "warn"},
	}

	var buf bytes.Buffer
	logger := newLogger(&buf, cfg)
	require.NotNil(t, logger)

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	buf.Reset()
	logger.Warn("payment reservation failed", "payment_id", "p-1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "savings-fund-ledger", record["app"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "p-1", record["payment_id"])
}

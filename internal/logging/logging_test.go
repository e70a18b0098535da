package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(input))
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, FormatJSON)

	log.Info("hidden")
	log.Warn("shown", "key", "[carteira]")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "[carteira]", entry["key"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "yaml")

	log.Debug("fetch started", "retry", 3)
	assert.Contains(t, buf.String(), "msg=\"fetch started\"")
	assert.Contains(t, buf.String(), "retry=3")
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() { Nop().Error("dropped") })
	assert.Len(t, ValidLevels(), 4)
}

package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	setupLogging(&buf, "json", false)
	slog.Debug("hidden")
	slog.Info("game loaded", "count", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "game loaded", entry["msg"])
	assert.Equal(t, float64(7), entry["count"])

	buf.Reset()
	setupLogging(&buf, "text", true)
	slog.Debug("transition applied", "seq", 3)
	assert.Contains(t, buf.String(), "transition applied")
	assert.Contains(t, buf.String(), "seq=3")
	assert.NotContains(t, buf.String(), "\x1b[", "no colour off a terminal")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))
}

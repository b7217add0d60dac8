package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"off":     LevelSilent,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "JSON", slog.LevelWarn)
	log.Info("hidden")
	log.Warn("codelist not found", "code", "C1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "codelist not found", rec["msg"])
	assert.Equal(t, "C1", rec["code"])
}

func TestNewHuman(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	log := New(&buf, FormatHuman, slog.LevelDebug)
	log.Debug("table read", "table", "t_object")
	log.Error("boom")

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "table read")
	assert.Contains(t, out, "table=t_object")
	assert.Contains(t, out, "ERROR")
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}

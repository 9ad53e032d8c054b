package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/iapod/internal/errors"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	_, err := New(Options{Format: "xml", Output: &bytes.Buffer{}})
	require.Error(t, err)
}

func TestNew_AutoUsesJSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Output: &buf})
	require.NoError(t, err)

	logger.Info("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "hello", rec["msg"])
	require.Equal(t, "v", rec["k"])
}

func TestErr_IncludesCauseChain(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Output: &buf})
	require.NoError(t, err)

	cause := errors.NewTransport("https://archive.test/x", fmt.Errorf("dial: refused"))
	logger.Error("save failed", Err(errors.NewPersistence("episodes/x.md", cause)))

	var rec struct {
		Error struct {
			Message  string   `json:"message"`
			CausedBy []string `json:"caused_by"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Contains(t, rec.Error.Message, "PERSISTENCE")
	require.Equal(t, []string{
		"TRANSPORT: request failed: https://archive.test/x",
		"dial: refused",
	}, rec.Error.CausedBy)
}

func TestErr_Nil(t *testing.T) {
	require.True(t, Err(nil).Equal(slog.Attr{}))
}

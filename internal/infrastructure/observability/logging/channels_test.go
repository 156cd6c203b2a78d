package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestChannelsTagEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, slog.LevelInfo)

	logger.Cache().Info("evicted")
	logger.GetChannel("unknown").Info("fallback")
	logger.WithOperation(ChannelRender, "template").Info("rendered")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "cache", lines[0]["channel"])
	assert.Equal(t, "system", lines[1]["channel"])
	assert.Equal(t, "render", lines[2]["channel"])
	assert.Equal(t, "template", lines[2]["operation"])
}

func TestCriticalLevelLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, slog.LevelInfo)

	logger.Critical(context.Background(), ChannelContent, "store unavailable")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "CRITICAL", lines[0]["level"])
	assert.Equal(t, "content", lines[0]["channel"])
}

func TestSetChannelLevelOverridesDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, slog.LevelInfo)

	logger.Database().Debug("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, logger.SetChannelLevel(ChannelDatabase, slog.LevelDebug))
	buf.Reset()
	logger.Database().Debug("shown")
	logger.Cache().Debug("still hidden")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])

	levels := logger.GetChannelLevels()
	assert.Equal(t, "DEBUG", levels["database"])
	assert.Equal(t, "INFO", levels["cache"])

	assert.Error(t, logger.SetChannelLevel("unknown", slog.LevelDebug))
}

func TestLogErrorCarriesOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, slog.LevelInfo)

	logger.LogError(ChannelHTTP, "invalidate", errors.New("boom"), map[string]any{"backend": "memory"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "http", lines[0]["channel"])
	assert.Equal(t, "invalidate", lines[0]["operation"])
	assert.Contains(t, lines[0]["error"], "boom")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" Debug "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelCritical, ParseLevel("critical"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

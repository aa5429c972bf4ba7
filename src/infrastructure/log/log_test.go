package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_WritesJSONWithCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(&buf, "info")

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	logger.Info(ctx, "order created")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "order created", entries[0]["Message"])
	assert.Equal(t, "info", entries[0]["Level"])
	assert.Equal(t, "corr-1", entries[0]["CorrelationId"])
	assert.Equal(t, "corr-1", logger.CorrelationID(ctx))
}

func TestLogger_ExceptionIsStringified(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(&buf, "info")

	logger.Exception(context.Background(), "insert failed", errors.New("connection refused"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0]["Exception"])
	assert.Equal(t, "error", entries[0]["Level"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput(&buf, "warn")

	logger.Info(context.Background(), "dropped")
	logger.WarnWithExtra(context.Background(), "kept", map[string]any{"orderId": "abc"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["Message"])
	assert.Equal(t, "abc", entries[0]["orderId"])
}

func TestLogger_FatalExits(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithOutput(&buf, "info").(*logger)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal(context.Background(), "cannot start", errors.New("boom"))

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "cannot start")
}

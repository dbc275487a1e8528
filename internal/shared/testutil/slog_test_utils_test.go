package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	logger, handler := NewTestLogger(t)

	logger.With("component", "assembler").Warn("trade date skipped", "date", "2020-02-03", "n", 1)
	logger.WithGroup("feed").Info("window fetched", "rows", 12)
	logger.Error("write failed")

	require.Equal(t, 3, handler.Count())

	skipped := handler.GetRecordsByMessage("skipped")
	require.Len(t, skipped, 1)
	assert.Equal(t, slog.LevelWarn, skipped[0].Level)
	assert.Equal(t, "assembler", skipped[0].Attrs["component"])
	assert.Equal(t, int64(1), skipped[0].Attrs["n"])

	AssertLogContains(t, handler, slog.LevelInfo, "window fetched")
	AssertLogAttr(t, handler, "feed.rows", int64(12))
	assert.True(t, handler.ContainsAttr("date", "2020-02-03"))
	assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)

	handler.Clear()
	assert.Zero(t, handler.Count())
	AssertNoErrors(t, handler)
}

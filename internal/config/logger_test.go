package config

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("json output at debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "debug", Format: "json"}, &buf)
		logger.Debug("batch processed", "batch", 2, "videos", 50)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "batch processed", entry["msg"])
		assert.Equal(t, float64(50), entry["videos"])
	})

	t.Run("text output filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "warn", Format: "text"}, &buf)
		logger.Info("dropped")
		logger.Warn("kept", "video_id", "abc")

		assert.NotContains(t, buf.String(), "dropped")
		assert.Contains(t, buf.String(), "video_id=abc")
	})
}

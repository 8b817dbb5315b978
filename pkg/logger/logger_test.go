package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("local logs debug", func(t *testing.T) {
		log := New("local", File{})
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("production logs info and above", func(t *testing.T) {
		log := New("production", File{})
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("writes to rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracker.log")
		log := New("production", File{Path: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
		log.Info("link resolved", zap.Int64("link_id", 7))
		_ = log.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"link resolved"`)
		assert.Contains(t, string(data), `"link_id":7`)
	})
}

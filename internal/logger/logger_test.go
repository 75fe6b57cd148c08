package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mansoorceksport/imgpaste/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew_WritesRollingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "imgpaste.log")

	log := New(config.LogConfig{Level: "info", Path: path})
	log.Info("upload finished")
	log.Debug("hidden")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"upload finished"`)
	assert.NotContains(t, string(data), "hidden")
}

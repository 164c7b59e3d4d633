package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel(DebugLevel))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(WarnLevel))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(ErrorLevel))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestInitLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bosko.log")
	InitLogger(Config{Level: InfoLevel, OutputPath: path, MaxSize: 1})

	Debug("hidden")
	Info("track published", String("track_id", "t1"), Int64("user_id", 7))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"track published"`)
	assert.Contains(t, string(data), `"track_id":"t1"`)
	assert.NotContains(t, string(data), "hidden")
	assert.NotNil(t, L())
}

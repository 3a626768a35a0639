package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sentinel.log")
	flush, err := Init(Config{Level: "debug", FilePath: path})
	require.NoError(t, err)

	zap.L().Info("scan finished", zap.Int("alerts", 2))
	flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"scan finished"`)
	assert.Contains(t, string(data), `"alerts":2`)
}

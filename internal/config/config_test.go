package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Scan.Workers)
	assert.True(t, cfg.Scan.Notify)
	assert.Equal(t, "data/watch.json", cfg.Store.WatchFile)
	assert.Equal(t, 730, cfg.DataSource.LookbackDays)
	assert.Equal(t, 60, cfg.Cache.HistoryTTLMinutes)
	assert.Equal(t, 240, cfg.Cache.DirectoryTTLMinutes)
	assert.Equal(t, "0 */15 * * * *", cfg.Schedule.ReconnectCron)
	assert.Equal(t, "deepseek-chat", cfg.Advisor.Model)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
telegram:
  bot_token: "file-token"
  chat_id: "42"
scan:
  workers: 4
  notify: false
cache:
  redis_addr: "localhost:6379"
log:
  level: debug
  file_path: logs/app.log
  max_size: 10
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("SCAN_WORKERS", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, 12, cfg.Scan.Workers)
	assert.False(t, cfg.Scan.Notify)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "logs/app.log", cfg.Log.FilePath)
	assert.Equal(t, 10, cfg.Log.MaxSize)
	assert.True(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Telegram.BotToken = "only-token"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Scan.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Schedule.ScanCron = "not a cron"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DataSource.LookbackDays = 30
	assert.Error(t, cfg.Validate())
}

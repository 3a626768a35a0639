package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"StockSentinel/internal/logger"
)

// Config holds all application configuration. The watch list, holdings and
// thresholds live in the watch file managed by the store package.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		QuoteURL       string  `yaml:"quote_url"`
		KLineURL       string  `yaml:"kline_url"`
		ListURL        string  `yaml:"list_url"`
		NewsURL        string  `yaml:"news_url"`
		QuoteRPS       float64 `yaml:"quote_rps"`
		HistoryRPS     float64 `yaml:"history_rps"`
		HistoryTimeout int     `yaml:"history_timeout_seconds"`
		LookbackDays   int     `yaml:"lookback_days"`
	} `yaml:"data_source"`
	Cache struct {
		HistoryTTLMinutes   int    `yaml:"history_ttl_minutes"`
		DirectoryTTLMinutes int    `yaml:"directory_ttl_minutes"`
		RedisAddr           string `yaml:"redis_addr"`
		RedisPassword       string `yaml:"redis_password"`
		RedisDB             int    `yaml:"redis_db"`
	} `yaml:"cache"`
	Schedule struct {
		ScanCron      string `yaml:"scan_cron"`
		ReconnectCron string `yaml:"reconnect_cron"`
		NewsCron      string `yaml:"news_cron"`
	} `yaml:"schedule"`
	Scan struct {
		Workers int `yaml:"workers"`
		// Notify sends scan alerts to Telegram; quiet scans are not reported.
		Notify bool `yaml:"notify"`
	} `yaml:"scan"`
	Store struct {
		WatchFile string `yaml:"watch_file"`
	} `yaml:"store"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Advisor struct {
		Model string `yaml:"model"`
	} `yaml:"advisor"`
	Log   logger.Config `yaml:"log"`
	Proxy string        `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Scan.Notify = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("CRON_SCAN"); v != "" {
		cfg.Schedule.ScanCron = v
	}
	if v := os.Getenv("SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scan.Workers = n
		}
	}
	if v := os.Getenv("WATCH_FILE"); v != "" {
		cfg.Store.WatchFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Defaults
	if cfg.DataSource.QuoteRPS == 0 {
		cfg.DataSource.QuoteRPS = 5
	}
	if cfg.DataSource.HistoryRPS == 0 {
		cfg.DataSource.HistoryRPS = 4
	}
	if cfg.DataSource.HistoryTimeout == 0 {
		cfg.DataSource.HistoryTimeout = 5
	}
	if cfg.DataSource.LookbackDays == 0 {
		cfg.DataSource.LookbackDays = 730
	}
	if cfg.Cache.HistoryTTLMinutes == 0 {
		cfg.Cache.HistoryTTLMinutes = 60
	}
	if cfg.Cache.DirectoryTTLMinutes == 0 {
		cfg.Cache.DirectoryTTLMinutes = 240
	}
	if cfg.Schedule.ScanCron == "" {
		cfg.Schedule.ScanCron = "0 */5 9-14 * * 1-5"
	}
	if cfg.Schedule.ReconnectCron == "" {
		cfg.Schedule.ReconnectCron = "0 */15 * * * *"
	}
	if cfg.Schedule.NewsCron == "" {
		cfg.Schedule.NewsCron = "0 0 8,12,18 * * *"
	}
	if cfg.Scan.Workers == 0 {
		cfg.Scan.Workers = 8
	}
	if cfg.Store.WatchFile == "" {
		cfg.Store.WatchFile = "data/watch.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/stock_sentinel.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Advisor.Model == "" {
		cfg.Advisor.Model = "deepseek-chat"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// TelegramEnabled reports whether bot credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks field consistency.
func (c *Config) Validate() error {
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Scan.Workers < 1 || c.Scan.Workers > 64 {
		return fmt.Errorf("scan.workers must be between 1 and 64")
	}
	if c.DataSource.LookbackDays < 60 {
		return fmt.Errorf("data_source.lookback_days must cover the 60-day moving average")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for name, spec := range map[string]string{
		"schedule.scan_cron":      c.Schedule.ScanCron,
		"schedule.reconnect_cron": c.Schedule.ReconnectCron,
		"schedule.news_cron":      c.Schedule.NewsCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

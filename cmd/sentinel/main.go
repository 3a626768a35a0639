package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"StockSentinel/internal/advisor"
	"StockSentinel/internal/cache"
	"StockSentinel/internal/collector"
	"StockSentinel/internal/config"
	"StockSentinel/internal/dashboard"
	"StockSentinel/internal/engine"
	"StockSentinel/internal/logger"
	"StockSentinel/internal/monitor"
	"StockSentinel/internal/news"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/scanner"
	"StockSentinel/internal/scheduler"
	"StockSentinel/internal/server"
	"StockSentinel/internal/store"
	"StockSentinel/internal/symbol"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	flush, err := logger.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()
	zap.L().Info("StockSentinel starting", zap.String("config", cfgPath))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional redis layer under the in-process caches
	var cacheOpts []cache.Option
	if cfg.Cache.RedisAddr != "" {
		rr, err := cache.NewRedisRemote(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			zap.L().Warn("redis unavailable, using memory cache only", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		} else {
			defer rr.Close()
			cacheOpts = append(cacheOpts, cache.WithRemote(rr))
		}
	}

	// Data sources
	quotes := collector.NewSinaQuoteReader(cfg.DataSource.QuoteURL, cfg.Proxy, cfg.DataSource.QuoteRPS)
	em := collector.NewEastmoneyClient(cfg.DataSource.KLineURL, cfg.DataSource.ListURL, cfg.Proxy,
		time.Duration(cfg.DataSource.HistoryTimeout)*time.Second, cfg.DataSource.HistoryRPS)
	history := collector.NewHistoryProvider(em, time.Duration(cfg.Cache.HistoryTTLMinutes)*time.Minute, cacheOpts...)
	dir := symbol.NewDirectory(em, cacheOpts...)
	dir.TTL = time.Duration(cfg.Cache.DirectoryTTLMinutes) * time.Minute
	zap.L().Info("data sources ready", zap.String("quotes", quotes.Name()), zap.String("history", em.Name()))

	// Scan pipeline
	metrics := monitor.NewPrometheusMetrics()
	eng := engine.New(history, engine.WithLookback(cfg.DataSource.LookbackDays))
	sc := scanner.New(quotes, eng,
		scanner.WithWorkers(cfg.Scan.Workers),
		scanner.WithNames(dir),
		scanner.WithObserver(metrics),
	)

	// Watch file
	st, err := store.Open(cfg.Store.WatchFile)
	if err != nil {
		zap.L().Fatal("open watch file", zap.Error(err))
	}
	go func() {
		if err := st.Watch(ctx); err != nil {
			zap.L().Error("watch file watcher stopped", zap.Error(err))
		}
	}()

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			zap.L().Warn("init sqlite recorder failed, using noop", zap.Error(err))
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Init Telegram notifier
	var note notifier.Notifier = notifier.NoopNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		note = tn
	} else {
		zap.L().Info("telegram not configured, alerts are logged only")
	}

	board := dashboard.New(quotes, dir)

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, scheduler.Deps{
		Scanner:      sc,
		Store:        st,
		Recorder:     rec,
		Notifier:     note,
		Board:        board,
		News:         news.NewClient(cfg.DataSource.NewsURL, cfg.Proxy),
		Advisor:      advisor.New(quotes, dir, cfg.Advisor.Model, collector.NewHTTPClient(cfg.Proxy, 2*time.Minute)),
		Sizes:        metrics,
		Reconnectors: []collector.Reconnector{em},
		NotifyAlerts: cfg.Scan.Notify,
	})
	if err := sched.RegisterAll(cfg.Schedule.ScanCron, cfg.Schedule.ReconnectCron, cfg.Schedule.NewsCron); err != nil {
		zap.L().Fatal("register cron tasks", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		zap.L().Info("telegram polling started")
	}

	// HTTP API
	srv := &server.Server{Store: st, Scans: sched, Board: board, Directory: dir, Recorder: rec}
	go func() {
		if err := srv.Start(cfg.Server.Addr); err != nil {
			zap.L().Error("http server", zap.Error(err))
			cancel()
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		zap.L().Info("RUN_ON_START enabled, scanning now")
		go sched.ScanNow(ctx, cfg.Scan.Notify)
	}

	zap.L().Info("StockSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		zap.L().Info("shutdown signal received, stopping...")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("http shutdown", zap.Error(err))
	}
	cancel()
	zap.L().Info("StockSentinel stopped")
}

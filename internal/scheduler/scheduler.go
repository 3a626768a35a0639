package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StockSentinel/internal/advisor"
	"StockSentinel/internal/calculator"
	"StockSentinel/internal/collector"
	"StockSentinel/internal/dashboard"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/store"
)

// Scanner runs one pass over a document.
type Scanner interface {
	RunScan(ctx context.Context, doc *store.Document) *model.ScanResult
}

// Documents is the part of the store the jobs use.
type Documents interface {
	Snapshot() *store.Document
	SetSystemNews(text string) error
}

// Headlines supplies market news lines.
type Headlines interface {
	Headlines(ctx context.Context) []string
}

// Asker answers advisor questions.
type Asker interface {
	Ask(ctx context.Context, doc *store.Document, question string) (string, error)
}

// ListSizer receives watch and holding list sizes after each scan.
type ListSizer interface {
	SetListSizes(watch, holdings int)
}

type retrySender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Deps are the collaborators of the scheduler. Board, News, Advisor and
// Sizes may be nil; the matching commands then report the feature as off.
type Deps struct {
	Scanner      Scanner
	Store        Documents
	Recorder     recorder.Recorder
	Notifier     notifier.Notifier
	Board        *dashboard.Board
	News         Headlines
	Advisor      Asker
	Sizes        ListSizer
	Reconnectors []collector.Reconnector
	// NotifyAlerts pushes alerts of scheduled scans to the notifier.
	NotifyAlerts bool
}

// Scheduler manages all cron tasks and answers bot commands.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context
	deps Deps

	scanMu sync.Mutex // one scan at a time

	mu   sync.RWMutex
	last *model.ScanResult
}

// NewScheduler creates a new Scheduler. ctx bounds every job.
func NewScheduler(ctx context.Context, deps Deps) *Scheduler {
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifier.NoopNotifier{}
	}
	return &Scheduler{
		// Exchange hours, whatever the host timezone.
		Cron: cron.New(cron.WithSeconds(), cron.WithLocation(calculator.NewTwoSessionCalendar().Location)),
		Ctx:  ctx,
		deps: deps,
	}
}

// RegisterAll registers the scan, reconnect and news jobs. An empty spec
// disables that job.
func (s *Scheduler) RegisterAll(scanCron, reconnectCron, newsCron string) error {
	jobs := []struct {
		name, spec string
		fn         func()
	}{
		{"scan", scanCron, func() { s.ScanNow(s.Ctx, s.deps.NotifyAlerts) }},
		{"reconnect", reconnectCron, s.reconnectTask},
		{"news", newsCron, s.newsTask},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if _, err := s.Cron.AddFunc(j.spec, j.fn); err != nil {
			return fmt.Errorf("register %s task: %w", j.name, err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	zap.L().Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	zap.L().Info("scheduler stopped")
}

// LastScan returns the most recent scan result, nil before the first scan.
func (s *Scheduler) LastScan() *model.ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// ScanNow runs a scan over the current document, records it and, when
// notify is set, pushes its alerts.
func (s *Scheduler) ScanNow(ctx context.Context, notify bool) *model.ScanResult {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	doc := s.deps.Store.Snapshot()
	res := s.deps.Scanner.RunScan(ctx, doc)

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	if s.deps.Sizes != nil {
		s.deps.Sizes.SetListSizes(len(doc.WatchList), len(doc.HoldingList))
	}
	if err := s.deps.Recorder.RecordScan(ctx, res); err != nil {
		zap.L().Error("record scan", zap.String("scan_id", res.ID), zap.Error(err))
	}
	if notify {
		if text := notifier.FormatAlerts(res); text != "" {
			s.trySend(ctx, text)
		}
	}
	return res
}

func (s *Scheduler) reconnectTask() {
	for _, r := range s.deps.Reconnectors {
		if err := r.Reconnect(s.Ctx); err != nil {
			zap.L().Warn("reconnect failed", zap.Error(err))
		}
	}
}

// RefreshNews pulls headlines into the document's system news.
func (s *Scheduler) RefreshNews(ctx context.Context) ([]string, error) {
	if s.deps.News == nil {
		return nil, errors.New("news feed not configured")
	}
	lines := s.deps.News.Headlines(ctx)
	if err := s.deps.Store.SetSystemNews(strings.Join(lines, "\n")); err != nil {
		return lines, fmt.Errorf("save news: %w", err)
	}
	return lines, nil
}

func (s *Scheduler) newsTask() {
	lines, err := s.RefreshNews(s.Ctx)
	if err != nil {
		zap.L().Error("news task", zap.Error(err))
		return
	}
	zap.L().Info("news refreshed", zap.Int("lines", len(lines)))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(command), " ")
	// Strip the bot suffix of group commands such as /scan@my_bot.
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/scan", "扫描":
		return notifier.FormatScanResult(s.ScanNow(ctx, false))
	case "/market", "大盘":
		if s.deps.Board == nil {
			return "看板未启用"
		}
		return notifier.FormatMarket(s.deps.Board.Market(ctx))
	case "/sectors", "板块":
		if s.deps.Board == nil {
			return "看板未启用"
		}
		return notifier.FormatSectors(s.deps.Board.SectorBoard(ctx))
	case "/holdings", "持仓":
		if s.deps.Board == nil {
			return "看板未启用"
		}
		return notifier.FormatHoldings(s.deps.Board.Holdings(ctx, s.deps.Store.Snapshot()))
	case "/watch", "自选":
		if s.deps.Board == nil {
			return "看板未启用"
		}
		return notifier.FormatWatchTable(s.deps.Board.WatchTable(ctx, s.deps.Store.Snapshot(), s.LastScan()))
	case "/news", "快讯":
		lines, err := s.RefreshNews(ctx)
		if err != nil && lines == nil {
			return "快讯未启用"
		}
		return notifier.FormatNews(lines)
	case "/ask", "问":
		if s.deps.Advisor == nil {
			return "顾问未启用"
		}
		if arg == "" {
			return "用法: /ask &lt;问题&gt;"
		}
		actx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		answer, err := s.deps.Advisor.Ask(actx, s.deps.Store.Snapshot(), arg)
		if errors.Is(err, advisor.ErrNoAPIKey) {
			return err.Error()
		}
		if err != nil {
			zap.L().Error("advisor", zap.Error(err))
			return "❌ 顾问请求失败"
		}
		return notifier.FormatAdvice(arg, answer)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	var err error
	if r, ok := s.deps.Notifier.(retrySender); ok {
		err = r.SendWithRetry(ctx, text, 3)
	} else {
		err = s.deps.Notifier.Send(ctx, text)
	}
	if err != nil {
		zap.L().Error("send notification", zap.Error(err))
	}
}

package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/model"
)

func TestLoadDocumentCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "watch.json")
	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, doc.BaseURL)
	assert.Equal(t, model.StrategyBand, doc.WatchList["600519.SS"].Strategy)
	assert.Equal(t, model.DefaultThresholds(), doc.Thresholds)
	assert.FileExists(t, path)
}

func TestParseDocumentBackfills(t *testing.T) {
	raw := `{
		"api_key": "sk-1",
		"watch_list": {"000001.SZ": {"strategy": "⚡ 短线"}, "00700.HK": {"strategy": "⚓ 大盘"}},
		"holding_list": {"600036.SS": {"cost": 30, "support": 28}},
		"thresholds": {"short": 4.5}
	}`
	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "sk-1", doc.APIKey)
	assert.Equal(t, DefaultBaseURL, doc.BaseURL)
	assert.Len(t, doc.WatchList, 2)
	assert.Equal(t, model.StrategyShort, doc.WatchList["000001.SZ"].Strategy)
	assert.Equal(t, model.StrategyMarket, doc.WatchList["00700.HK"].Strategy)
	assert.Equal(t, model.HoldingEntry{Cost: 30, ProfitTarget: 20, LossLimit: -10, Support: 28}, doc.HoldingList["600036.SS"])
	assert.Equal(t, model.Thresholds{Short: 4.5, Band: -5, Market: -8}, doc.Thresholds)
}

func TestParseDocumentSkipsInvalidTickers(t *testing.T) {
	raw := `{
		"watch_list": {"600519": {"strategy": "🌊 波段"}, "600519.SS": {"strategy": "🌊 波段"}, "": {}},
		"holding_list": {"sh600036": {"cost": 30}, "600036.SS": {"cost": 30}}
	}`
	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, []model.Ticker{"600519.SS"}, keys(doc.WatchList))
	assert.Equal(t, []model.Ticker{"600036.SS"}, keys(doc.HoldingList))
}

func keys[V any](m map[model.Ticker]V) []model.Ticker {
	out := make([]model.Ticker, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	return out
}

func TestLoadDocumentCorruptFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDocument(), doc)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestSaveDocumentKeepsUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.json")
	doc := DefaultDocument()
	doc.SystemNews = "【09:30】沪指高开"
	require.NoError(t, SaveDocument(path, doc))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "【09:30】沪指高开")
	assert.Contains(t, string(data), "\n    \"api_key\"")
}

func TestStoreMutationsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.AddWatch("300750.SZ", model.StrategyShort))
	require.NoError(t, s.AddHolding("600036.SS"))
	require.NoError(t, s.UpdateHolding("600036.SS", model.HoldingEntry{Cost: 35, ProfitTarget: 15, LossLimit: -8, Support: 32}))
	require.NoError(t, s.SetThresholds(model.Thresholds{Short: 2, Band: -4, Market: -6}))
	require.NoError(t, s.SetAdvisor("sk-2", ""))
	require.NoError(t, s.SetSystemNews("news"))
	require.NoError(t, s.RemoveWatch("600519.SS"))

	assert.ErrorIs(t, s.AddWatch("bogus", model.StrategyBand), ErrInvalidTicker)
	assert.ErrorIs(t, s.RemoveHolding("000002.SZ"), ErrNotFound)

	reopened, err := Open(path)
	require.NoError(t, err)
	snap := reopened.Snapshot()
	assert.Equal(t, map[model.Ticker]model.WatchEntry{"300750.SZ": {Strategy: model.StrategyShort}}, snap.WatchList)
	assert.Equal(t, 35.0, snap.HoldingList["600036.SS"].Cost)
	assert.Equal(t, model.Thresholds{Short: 2, Band: -4, Market: -6}, snap.Thresholds)
	assert.Equal(t, "sk-2", snap.APIKey)
	assert.Equal(t, DefaultBaseURL, snap.BaseURL)
	assert.Equal(t, "news", snap.SystemNews)
}

func TestAddHoldingKeepsExistingPlan(t *testing.T) {
	s := NewMemory(nil)
	plan := model.HoldingEntry{Cost: 10, ProfitTarget: 5, LossLimit: -5, Support: 9}
	require.NoError(t, s.UpdateHolding("600036.SS", plan))
	require.NoError(t, s.AddHolding("600036.SS"))
	assert.Equal(t, plan, s.Snapshot().HoldingList["600036.SS"])
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := NewMemory(nil)
	snap := s.Snapshot()
	snap.WatchList["000001.SZ"] = model.WatchEntry{Strategy: model.StrategyShort}
	snap.Thresholds.Short = 99

	fresh := s.Snapshot()
	assert.NotContains(t, fresh.WatchList, model.Ticker("000001.SZ"))
	assert.Equal(t, 3.0, fresh.Thresholds.Short)
}

func TestConcurrentWriters(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "watch.json"))
	require.NoError(t, err)

	tickers := []model.Ticker{"600000.SS", "600036.SS", "000001.SZ", "300750.SZ", "00700.HK", "601318.SS"}
	var wg sync.WaitGroup
	for _, tk := range tickers {
		wg.Add(1)
		go func(tk model.Ticker) {
			defer wg.Done()
			assert.NoError(t, s.AddWatch(tk, model.StrategyBand))
			_ = s.Snapshot()
		}(tk)
	}
	wg.Wait()
	assert.Len(t, s.Snapshot().WatchList, len(tickers)+1)
}

func TestBulkImport(t *testing.T) {
	s := NewMemory(nil)
	lookup := map[string]model.Ticker{
		"600036.SS": "600036.SS", "600036": "600036.SS",
		"000001.SZ": "000001.SZ", "000001": "000001.SZ",
		"00700.HK": "00700.HK", "00700": "00700.HK",
	}
	n, err := s.BulkImport("sh600036, SZ000001\nhk00700  999999 00700.HK", model.StrategyShort, lookup)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	wl := s.Snapshot().WatchList
	assert.Equal(t, model.StrategyShort, wl["600036.SS"].Strategy)
	assert.Equal(t, model.StrategyShort, wl["000001.SZ"].Strategy)
	assert.Equal(t, model.StrategyShort, wl["00700.HK"].Strategy)

	n, err = s.BulkImport("  ", model.StrategyBand, lookup)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOnChangeAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.json")
	s, err := Open(path)
	require.NoError(t, err)

	var got []int
	s.OnChange(func(d *Document) { got = append(got, len(d.WatchList)) })
	require.NoError(t, s.AddWatch("000001.SZ", model.StrategyBand))

	// Own writes are not reloaded.
	require.NoError(t, s.Reload())
	assert.Equal(t, []int{2}, got)

	require.NoError(t, os.WriteFile(path, []byte(`{"watch_list": {}}`), 0o644))
	require.NoError(t, s.Reload())
	assert.Equal(t, []int{2, 0}, got)
	assert.Empty(t, s.Snapshot().WatchList)
}

func TestWatchPicksUpExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.json")
	s, err := Open(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte(`{"watch_list": {"000001.SZ": {"strategy": "short"}}}`), 0o644))
	assert.Eventually(t, func() bool {
		_, ok := s.Snapshot().WatchList["000001.SZ"]
		return ok
	}, 5*time.Second, 50*time.Millisecond)
}

func TestDocumentTickers(t *testing.T) {
	doc := DefaultDocument()
	doc.HoldingList["000001.SZ"] = model.DefaultHolding()
	doc.HoldingList["600519.SS"] = model.DefaultHolding()
	assert.Equal(t, []model.Ticker{"000001.SZ", "600519.SS"}, doc.Tickers())
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/dashboard"
	"StockSentinel/internal/model"
	"StockSentinel/internal/store"
	"StockSentinel/internal/symbol"
)

type fakeScans struct {
	last  *model.ScanResult
	calls int
}

func (f *fakeScans) ScanNow(context.Context, bool) *model.ScanResult {
	f.calls++
	f.last = &model.ScanResult{ID: "manual"}
	return f.last
}

func (f *fakeScans) LastScan() *model.ScanResult { return f.last }

type fakeDirectory []symbol.Listing

func (f fakeDirectory) Search(_ context.Context, q string, limit int) []symbol.Listing {
	var out []symbol.Listing
	for _, l := range f {
		if strings.Contains(l.Name, q) || strings.Contains(string(l.Ticker), q) {
			out = append(out, l)
		}
	}
	return out
}

func (f fakeDirectory) Lookup(context.Context) map[string]model.Ticker {
	m := map[string]model.Ticker{}
	for _, l := range f {
		m[string(l.Ticker)] = l.Ticker
		m[l.Ticker.Code()] = l.Ticker
	}
	return m
}

func setupTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	quotes := &collector.MockFetcher{Quotes: map[model.Ticker]model.Quote{
		"600519.SS": {Price: 1500, ChangePct: -1},
		"600036.SS": {Price: 85},
		"000001.SS": {Price: 3100},
	}}
	s := &Server{
		Store: store.NewMemory(nil),
		Scans: &fakeScans{},
		Board: dashboard.New(quotes, nil),
		Directory: fakeDirectory{
			{Ticker: "600036.SS", Name: "招商银行"},
			{Ticker: "000858.SZ", Name: "五粮液"},
		},
	}
	return s, s.Router()
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestScanEndpoints(t *testing.T) {
	s, r := setupTestServer(t)

	w := do(r, http.MethodGet, "/api/scan/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/scan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.Scans.(*fakeScans).calls)

	w = do(r, http.MethodGet, "/api/scan/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res model.ScanResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "manual", res.ID)
}

func TestHistoryWithoutRecorder(t *testing.T) {
	_, r := setupTestServer(t)
	w := do(r, http.MethodGet, "/api/scans", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scans":[]}`, w.Body.String())
}

func TestWatchlistCRUD(t *testing.T) {
	s, r := setupTestServer(t)

	w := do(r, http.MethodPut, "/api/watchlist/000858.sz", map[string]string{"strategy": "⚡ 短线"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StrategyShort, s.Store.Snapshot().WatchList["000858.SZ"].Strategy)

	w = do(r, http.MethodPut, "/api/watchlist/bogus", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/watchlist", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		WatchList []dashboard.WatchRow `json:"watch_list"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.WatchList, 2)
	assert.Equal(t, model.Ticker("000858.SZ"), body.WatchList[0].Ticker)

	w = do(r, http.MethodDelete, "/api/watchlist/000858.SZ", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(r, http.MethodDelete, "/api/watchlist/000858.SZ", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportWatch(t *testing.T) {
	s, r := setupTestServer(t)
	w := do(r, http.MethodPost, "/api/watchlist/import", map[string]string{"codes": "sh600036, 000858 999999", "strategy": "market"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"imported":2}`, w.Body.String())
	assert.Equal(t, model.StrategyMarket, s.Store.Snapshot().WatchList["600036.SS"].Strategy)

	w = do(r, http.MethodPost, "/api/watchlist/import", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHoldingsCRUD(t *testing.T) {
	s, r := setupTestServer(t)

	w := do(r, http.MethodPut, "/api/holdings/600036.SS", map[string]float64{"cost": 100, "support": 90})
	require.Equal(t, http.StatusOK, w.Code)
	h := s.Store.Snapshot().HoldingList["600036.SS"]
	assert.Equal(t, model.HoldingEntry{Cost: 100, ProfitTarget: 20, LossLimit: -10, Support: 90}, h)

	w = do(r, http.MethodPut, "/api/holdings/600036.SS", map[string]float64{"loss_limit": -5})
	require.Equal(t, http.StatusOK, w.Code)
	h = s.Store.Snapshot().HoldingList["600036.SS"]
	assert.Equal(t, -5.0, h.LossLimit)
	assert.Equal(t, 100.0, h.Cost)

	w = do(r, http.MethodGet, "/api/holdings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Holdings []dashboard.HoldingRow `json:"holdings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Holdings, 1)
	assert.Equal(t, "🚨 破位卖出", string(body.Holdings[0].Status))

	w = do(r, http.MethodDelete, "/api/holdings/600036.SS", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestThresholds(t *testing.T) {
	s, r := setupTestServer(t)

	w := do(r, http.MethodGet, "/api/thresholds", nil)
	assert.JSONEq(t, `{"short":3,"band":-5,"market":-8}`, w.Body.String())

	w = do(r, http.MethodPut, "/api/thresholds", map[string]float64{"short": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.Thresholds{Short: 4, Band: -5, Market: -8}, s.Store.Snapshot().Thresholds)

	w = do(r, http.MethodPut, "/api/thresholds", map[string]float64{"band": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoardEndpoints(t *testing.T) {
	_, r := setupTestServer(t)

	w := do(r, http.MethodGet, "/api/market", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "上证指数")

	w = do(r, http.MethodGet, "/api/sectors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "512800.SS")

	w = do(r, http.MethodGet, "/api/symbols?q=银行", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "600036.SS")
}

func TestMetricsAndHealth(t *testing.T) {
	_, r := setupTestServer(t)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", nil).Code)
	w := do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/model"
	"StockSentinel/internal/store"
)

type names map[model.Ticker]string

func (n names) Name(_ context.Context, t model.Ticker) string {
	if s, ok := n[t]; ok {
		return s
	}
	return string(t)
}

func testDoc() *store.Document {
	doc := store.DefaultDocument()
	doc.HoldingList["600036.SS"] = model.HoldingEntry{Cost: 100, ProfitTarget: 20, LossLimit: -10, Support: 90}
	doc.HoldingList["000001.SZ"] = model.DefaultHolding()
	return doc
}

func testQuotes() *collector.MockFetcher {
	return &collector.MockFetcher{Quotes: map[model.Ticker]model.Quote{
		"600036.SS": {Price: 85},
		"000001.SZ": {Price: 10.5},
	}}
}

func TestBuildContext(t *testing.T) {
	a := New(testQuotes(), names{"600036.SS": "招商银行"}, "", nil)
	doc := testDoc()

	got := a.BuildContext(context.Background(), doc)
	want := "【用户持仓风控数据】\n" +
		"- 000001.SZ: 现价10.5, 成本0.0, 盈亏0.00%, 支撑位0.0\n" +
		"- 招商银行: 现价85.0, 成本100.0, 盈亏-15.00%, 支撑位90.0\n" +
		"\n【市场情报】\n无"
	assert.Equal(t, want, got)

	doc.SystemNews = "【09:30】开盘"
	assert.Contains(t, a.BuildContext(context.Background(), doc), "【市场情报】\n【09:30】开盘")
}

func TestAskWithoutKey(t *testing.T) {
	a := New(testQuotes(), nil, "", nil)
	_, err := a.Ask(context.Background(), testDoc(), "卖不卖")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Equal(t, "请先填写 API Key", err.Error())
}

func TestAsk(t *testing.T) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"建议减仓"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	doc := testDoc()
	doc.APIKey = "sk-test"
	doc.BaseURL = srv.URL

	answer, err := New(testQuotes(), nil, "", nil).Ask(context.Background(), doc, "卖不卖")
	require.NoError(t, err)
	assert.Equal(t, "建议减仓", answer)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, DefaultModel, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "你是一个量化风控助手。依据：\n【用户持仓风控数据】")
	assert.Equal(t, "卖不卖", req.Messages[1].Content)
}

func TestAskServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	doc := testDoc()
	doc.APIKey = "sk-test"
	doc.BaseURL = srv.URL
	_, err := New(testQuotes(), nil, "", nil).Ask(context.Background(), doc, "q")
	assert.Error(t, err)
}

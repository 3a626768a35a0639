// Package advisor answers free-form questions about the holdings through an
// OpenAI-compatible chat endpoint.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/model"
	"StockSentinel/internal/store"
)

// DefaultModel is the chat model requested when none is configured.
const DefaultModel = "deepseek-chat"

// ErrNoAPIKey is returned when the watch document carries no API key. Its
// text is shown to the user as is.
var ErrNoAPIKey = errors.New("请先填写 API Key")

// NameResolver maps tickers to display names.
type NameResolver interface {
	Name(ctx context.Context, t model.Ticker) string
}

// Advisor builds a risk context from the holdings and asks the model.
type Advisor struct {
	quotes     collector.QuoteFetcher
	names      NameResolver
	model      string
	httpClient *http.Client
}

// New creates an Advisor. names and httpClient may be nil.
func New(quotes collector.QuoteFetcher, names NameResolver, chatModel string, httpClient *http.Client) *Advisor {
	if chatModel == "" {
		chatModel = DefaultModel
	}
	return &Advisor{quotes: quotes, names: names, model: chatModel, httpClient: httpClient}
}

// BuildContext renders the holdings and the system news as prompt context.
func (a *Advisor) BuildContext(ctx context.Context, doc *store.Document) string {
	tickers := make([]model.Ticker, 0, len(doc.HoldingList))
	for t := range doc.HoldingList {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i] < tickers[j] })
	quotes := a.quotes.FetchBatch(ctx, tickers)

	var b strings.Builder
	b.WriteString("【用户持仓风控数据】\n")
	for _, t := range tickers {
		h := doc.HoldingList[t]
		p := quotes[t].Price
		pct, _ := h.ProfitPct(p)
		name := string(t)
		if a.names != nil {
			name = a.names.Name(ctx, t)
		}
		fmt.Fprintf(&b, "- %s: 现价%s, 成本%s, 盈亏%.2f%%, 支撑位%s\n",
			name, num(p), num(h.Cost), pct, num(h.Support))
	}
	news := doc.SystemNews
	if news == "" {
		news = "无"
	}
	b.WriteString("\n【市场情报】\n")
	b.WriteString(news)
	return b.String()
}

// SystemPrompt wraps the context in the assistant instructions.
func SystemPrompt(context string) string {
	return "你是一个量化风控助手。依据：\n" + context
}

// Ask sends question with the current holdings context and returns the reply.
func (a *Advisor) Ask(ctx context.Context, doc *store.Document, question string) (string, error) {
	if doc.APIKey == "" {
		return "", ErrNoAPIKey
	}
	cfg := openai.DefaultConfig(doc.APIKey)
	cfg.BaseURL = doc.BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = store.DefaultBaseURL
	}
	if a.httpClient != nil {
		cfg.HTTPClient = a.httpClient
	}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(a.BuildContext(ctx, doc))},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// num prints whole numbers with a trailing ".0" the way the watch file
// shows them.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

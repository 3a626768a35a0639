package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/time/rate"

	"StockSentinel/internal/model"
	"StockSentinel/internal/symbol"
)

const (
	DefaultSinaURL      = "http://hq.sinajs.cn/list="
	sinaReferer         = "https://finance.sina.com.cn"
	sinaLinePrefix      = "hq_str_"
	hkMinFields         = 13
	ashareMinFields     = 9
	DefaultQuoteTimeout = 2 * time.Second
	DefaultBatchTimeout = 3 * time.Second
)

// SinaQuoteReader reads realtime quotes from the Sina hq text feed.
type SinaQuoteReader struct {
	BaseURL       string
	SingleTimeout time.Duration
	BatchTimeout  time.Duration

	get *getter
}

// NewSinaQuoteReader creates a reader. A non-positive rps disables pacing.
func NewSinaQuoteReader(baseURL, proxyURL string, rps float64) *SinaQuoteReader {
	if baseURL == "" {
		baseURL = DefaultSinaURL
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &SinaQuoteReader{
		BaseURL:       baseURL,
		SingleTimeout: DefaultQuoteTimeout,
		BatchTimeout:  DefaultBatchTimeout,
		get: &getter{
			client:   NewHTTPClient(proxyURL, 0),
			limiter:  limiter,
			attempts: 1,
			headers:  map[string]string{"Referer": sinaReferer},
		},
	}
}

func (r *SinaQuoteReader) Name() string { return "sina" }

// FetchOne returns the quote for t, or the zero Quote when the feed fails.
func (r *SinaQuoteReader) FetchOne(ctx context.Context, t model.Ticker) model.Quote {
	q, err := r.Fetch(ctx, t)
	if err != nil {
		zap.L().Debug("quote unavailable", zap.String("ticker", t.String()), zap.Error(err))
		return model.Quote{Ticker: t}
	}
	return q
}

// Fetch is FetchOne with the failure reason kept.
func (r *SinaQuoteReader) Fetch(ctx context.Context, t model.Ticker) (model.Quote, error) {
	sym := symbol.Normalize(t, symbol.TargetSina)
	text, err := r.request(ctx, r.SingleTimeout, sym)
	if err != nil {
		return model.Quote{Ticker: t}, err
	}
	line := text
	if i := strings.Index(text, "\n"); i >= 0 {
		line = text[:i]
	}
	_, q, err := ParseQuoteLine(line)
	if err != nil {
		return model.Quote{Ticker: t}, err
	}
	q.Ticker = t
	return q, nil
}

// FetchBatch quotes all tickers in one request. Every requested ticker is
// present in the result, with the zero Quote when it could not be read.
// Symbols echoed by the feed that were not requested are keyed by their
// denormalized ticker.
func (r *SinaQuoteReader) FetchBatch(ctx context.Context, tickers []model.Ticker) map[model.Ticker]model.Quote {
	out := make(map[model.Ticker]model.Quote, len(tickers))
	if len(tickers) == 0 {
		return out
	}
	codeMap := make(map[string]model.Ticker, len(tickers))
	syms := make([]string, 0, len(tickers))
	for _, t := range tickers {
		out[t] = model.Quote{Ticker: t}
		sym := symbol.Normalize(t, symbol.TargetSina)
		if _, dup := codeMap[sym]; dup {
			continue
		}
		codeMap[sym] = t
		syms = append(syms, sym)
	}

	text, err := r.request(ctx, r.BatchTimeout, strings.Join(syms, ","))
	if err != nil {
		zap.L().Warn("batch quote failed", zap.Int("tickers", len(tickers)), zap.Error(err))
		return out
	}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if !strings.Contains(line, `="`) {
			continue
		}
		sym, q, err := ParseQuoteLine(line)
		t, ok := codeMap[sym]
		if !ok {
			t = symbol.Denormalize(sym)
		}
		if err != nil {
			zap.L().Debug("skipping quote line", zap.String("symbol", sym), zap.Error(err))
			q = model.Quote{}
		}
		q.Ticker = t
		out[t] = q
	}
	return out
}

func (r *SinaQuoteReader) request(ctx context.Context, timeout time.Duration, list string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	body, err := r.get.get(ctx, r.BaseURL+list)
	if err != nil {
		return "", err
	}
	return decodeGBK(body), nil
}

func decodeGBK(body []byte) string {
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

// ParseQuoteLine parses `var hq_str_<sym>="f0,f1,...";` into the feed symbol
// and a Quote without a Ticker. The layout is chosen by the symbol prefix.
func ParseQuoteLine(line string) (string, model.Quote, error) {
	head, rest, found := strings.Cut(line, `="`)
	sym := head
	if i := strings.LastIndex(head, sinaLinePrefix); i >= 0 {
		sym = head[i+len(sinaLinePrefix):]
	}
	sym = strings.TrimSpace(sym)
	if !found {
		return sym, model.Quote{}, fmt.Errorf("%w: no payload", ErrMalformedLine)
	}
	payload, _, _ := strings.Cut(rest, `"`)
	fields := strings.Split(payload, ",")

	var q model.Quote
	var err error
	if strings.HasPrefix(sym, "hk") {
		q, err = parseHK(fields)
	} else {
		q, err = parseAShare(fields)
	}
	return sym, q, err
}

func parseHK(f []string) (model.Quote, error) {
	if len(f) < hkMinFields {
		return model.Quote{}, fmt.Errorf("%w: %d fields", ErrMalformedLine, len(f))
	}
	nums, err := parseFields(f, 6, 3, 8, 12)
	if err != nil {
		return model.Quote{}, err
	}
	return model.Quote{Price: nums[0], PrevClose: nums[1], ChangePct: nums[2], Volume: nums[3]}, nil
}

func parseAShare(f []string) (model.Quote, error) {
	if len(f) < ashareMinFields {
		return model.Quote{}, fmt.Errorf("%w: %d fields", ErrMalformedLine, len(f))
	}
	nums, err := parseFields(f, 3, 2, 8)
	if err != nil {
		return model.Quote{}, err
	}
	q := model.Quote{Price: nums[0], PrevClose: nums[1], Volume: nums[2]}
	if q.PrevClose > 0 {
		q.ChangePct = (q.Price - q.PrevClose) / q.PrevClose * 100
	}
	return q, nil
}

func parseFields(f []string, idx ...int) ([]float64, error) {
	out := make([]float64, len(idx))
	for i, j := range idx {
		v, err := strconv.ParseFloat(strings.TrimSpace(f[j]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedLine, j, err)
		}
		out[i] = v
	}
	return out, nil
}

package collector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"StockSentinel/internal/model"
	"StockSentinel/internal/symbol"
)

const (
	DefaultKLineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	DefaultListURL  = "https://82.push2.eastmoney.com/api/qt/clist/get"

	eastmoneyReferer = "https://quote.eastmoney.com/"
	klineFields1     = "f1,f2,f3,f4,f5,f6"
	klineFields2     = "f51,f52,f53,f54,f55,f56"
	listFilter       = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23"
	listFields       = "f12,f13,f14"
	listPageSize     = 500
	listMaxPages     = 20
	// kline volume is reported in lots of 100 shares; quotes use shares.
	sharesPerLot = 100
)

// EastmoneyClient serves daily bars and the A-share directory.
type EastmoneyClient struct {
	KLineURL string
	ListURL  string

	get *getter
}

// NewEastmoneyClient creates a client. A non-positive rps disables pacing.
func NewEastmoneyClient(klineURL, listURL, proxyURL string, timeout time.Duration, rps float64) *EastmoneyClient {
	if klineURL == "" {
		klineURL = DefaultKLineURL
	}
	if listURL == "" {
		listURL = DefaultListURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &EastmoneyClient{
		KLineURL: klineURL,
		ListURL:  listURL,
		get: &getter{
			client:   NewHTTPClient(proxyURL, timeout),
			limiter:  limiter,
			attempts: 3,
			headers: map[string]string{
				"Referer":         eastmoneyReferer,
				"Accept":          "application/json, text/plain, */*",
				"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
			},
		},
	}
}

func (c *EastmoneyClient) Name() string { return "eastmoney" }

// secID converts a ticker to eastmoney's market-prefixed id: 1.600519, 0.000001.
func secID(t model.Ticker) (string, error) {
	hist := symbol.Normalize(t, symbol.TargetHistory)
	prefix, code, ok := strings.Cut(hist, ".")
	if !ok || code == "" {
		return "", fmt.Errorf("no history symbol for %s", t)
	}
	switch prefix {
	case "sh":
		return "1." + code, nil
	case "sz":
		return "0." + code, nil
	}
	return "", fmt.Errorf("no history symbol for %s", t)
}

// FetchDailyBars returns unadjusted daily bars ascending by date. An unknown
// ticker yields no bars and no error.
func (c *EastmoneyClient) FetchDailyBars(ctx context.Context, t model.Ticker, start, end time.Time) ([]model.OHLCV, error) {
	id, err := secID(t)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("secid", id)
	q.Set("fields1", klineFields1)
	q.Set("fields2", klineFields2)
	q.Set("klt", "101")
	q.Set("fqt", "0")
	q.Set("beg", start.Format("20060102"))
	q.Set("end", end.Format("20060102"))

	body, err := c.get.get(ctx, c.KLineURL+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("eastmoney klines %s: %w", t, err)
	}
	return parseKLines(body, t)
}

func parseKLines(body []byte, t model.Ticker) ([]model.OHLCV, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("eastmoney klines %s: invalid json", t)
	}
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() || !klines.IsArray() {
		return nil, nil
	}
	arr := klines.Array()
	out := make([]model.OHLCV, 0, len(arr))
	for _, v := range arr {
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 6 {
			continue
		}
		day, err := time.Parse("2006-01-02", parts[0])
		if err != nil {
			continue
		}
		nums := make([]float64, 5)
		bad := false
		for i := range nums {
			if nums[i], err = strconv.ParseFloat(parts[i+1], 64); err != nil {
				bad = true
				break
			}
		}
		if bad {
			zap.L().Debug("skipping kline row", zap.String("ticker", t.String()), zap.String("row", v.String()))
			continue
		}
		out = append(out, model.OHLCV{
			Time:   day,
			Open:   nums[0],
			Close:  nums[1],
			High:   nums[2],
			Low:    nums[3],
			Volume: nums[4] * sharesPerLot,
		})
	}
	return out, nil
}

// FetchListings pages through the A-share directory.
func (c *EastmoneyClient) FetchListings(ctx context.Context) ([]symbol.Listing, error) {
	var all []symbol.Listing
	for page := 1; page <= listMaxPages; page++ {
		q := url.Values{}
		q.Set("pn", strconv.Itoa(page))
		q.Set("pz", strconv.Itoa(listPageSize))
		q.Set("fs", listFilter)
		q.Set("fields", listFields)
		body, err := c.get.get(ctx, c.ListURL+"?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("eastmoney listings page %d: %w", page, err)
		}
		items, total := parseListings(body)
		all = append(all, items...)
		if len(items) < listPageSize || len(all) >= total {
			break
		}
	}
	return all, nil
}

func parseListings(body []byte) ([]symbol.Listing, int) {
	total := int(gjson.GetBytes(body, "data.total").Int())
	var items []symbol.Listing
	gjson.GetBytes(body, "data.diff").ForEach(func(_, v gjson.Result) bool {
		code := strings.TrimSpace(v.Get("f12").String())
		name := strings.TrimSpace(v.Get("f14").String())
		if code == "" {
			return true
		}
		ex := model.ExchangeShenzhen
		if v.Get("f13").Int() == 1 {
			ex = model.ExchangeShanghai
		}
		items = append(items, symbol.Listing{Ticker: model.Ticker(code + "." + string(ex)), Name: name})
		return true
	})
	return items, total
}

// Reconnect drops pooled connections so the next request opens a fresh session.
func (c *EastmoneyClient) Reconnect(_ context.Context) error {
	c.get.client.CloseIdleConnections()
	zap.L().Info("history source reconnected", zap.String("source", c.Name()))
	return nil
}

package symbol

import (
	"strings"

	"StockSentinel/internal/model"
)

// Benchmark indexes.
const (
	IndexComposite model.Ticker = "000001.SS" // 上证指数
	IndexSTAR50    model.Ticker = "000688.SS" // 科创50
	IndexComponent model.Ticker = "399001.SZ" // 深证成指
	IndexChiNext   model.Ticker = "399006.SZ" // 创业板指
	IndexHSTech    model.Ticker = "03032.HK"  // 恒生科技
)

// IndexNames maps benchmark tickers to display names.
var IndexNames = map[model.Ticker]string{
	IndexComposite: "上证指数",
	IndexSTAR50:    "科创50",
	IndexComponent: "深证成指",
	IndexChiNext:   "创业板指",
	IndexHSTech:    "恒生科技",
}

// MarketStrip lists the indexes shown as the headline market summary.
var MarketStrip = []model.Ticker{IndexComposite, IndexChiNext, IndexHSTech}

// ResolveIndex maps a ticker to its benchmark index by board convention.
func ResolveIndex(t model.Ticker) (model.Ticker, string) {
	code, ex, _ := t.Split()
	idx := IndexComposite
	switch ex {
	case model.ExchangeShanghai:
		if strings.HasPrefix(code, "688") {
			idx = IndexSTAR50
		}
	case model.ExchangeShenzhen:
		idx = IndexComponent
		if strings.HasPrefix(code, "30") {
			idx = IndexChiNext
		}
	case model.ExchangeHongKong:
		idx = IndexHSTech
	}
	return idx, IndexNames[idx]
}

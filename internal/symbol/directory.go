package symbol

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"StockSentinel/internal/cache"
	"StockSentinel/internal/model"
)

// DirectoryTTL bounds how long the listing directory is reused.
const DirectoryTTL = 4 * time.Hour

// Listing is one entry of the symbol directory.
type Listing struct {
	Ticker model.Ticker `json:"ticker"`
	Name   string       `json:"name"`
}

// ListingSource returns the A-share listing directory.
type ListingSource interface {
	FetchListings(ctx context.Context) ([]Listing, error)
}

// hkListings are not served by the A-share directory and are always present.
var hkListings = []Listing{
	{"03032.HK", "恒生科技指数"}, {"00700.HK", "腾讯控股"}, {"09988.HK", "阿里巴巴"},
	{"03690.HK", "美团-W"}, {"01810.HK", "小米集团-W"}, {"01024.HK", "快手-W"},
	{"09618.HK", "京东集团-SW"}, {"09888.HK", "百度集团-SW"}, {"09999.HK", "网易-S"},
	{"00981.HK", "中芯国际"}, {"02015.HK", "理想汽车-W"}, {"09868.HK", "小鹏汽车-W"},
	{"09866.HK", "蔚来-SW"}, {"09626.HK", "哔哩哔哩-W"}, {"00020.HK", "商汤-W"},
}

// Directory resolves display names. It degrades to the raw ticker when a
// ticker is not listed.
type Directory struct {
	// TTL bounds how long one fetched directory is served.
	TTL time.Duration

	source ListingSource
	cache  *cache.Cache[[]Listing]
	names  *cache.Cache[map[model.Ticker]string]
}

// NewDirectory creates a directory over source. A nil source yields the HK
// supplement and index names only.
func NewDirectory(source ListingSource, opts ...cache.Option) *Directory {
	return &Directory{
		TTL:    DirectoryTTL,
		source: source,
		cache:  cache.New[[]Listing](opts...),
		names:  cache.New[map[model.Ticker]string](opts...),
	}
}

// Listings returns HK listings first, then the A-share directory. A failing
// source is logged and contributes nothing.
func (d *Directory) Listings(ctx context.Context) []Listing {
	listings, err := d.fetch(ctx)
	if err != nil {
		zap.L().Warn("symbol directory unavailable", zap.Error(err))
	}
	return listings
}

func (d *Directory) fetch(ctx context.Context) ([]Listing, error) {
	out := make([]Listing, 0, len(hkListings))
	out = append(out, hkListings...)
	if d.source == nil {
		return out, nil
	}
	listings, err := d.cache.Get(ctx, "directory", d.TTL, d.source.FetchListings)
	if err != nil {
		return out, err
	}
	return append(out, listings...), nil
}

// Names returns a ticker → name map including benchmark indexes. The map is
// built once per directory fetch and shared; callers must not modify it.
func (d *Directory) Names(ctx context.Context) map[model.Ticker]string {
	names, err := d.names.Get(ctx, "names", d.TTL, func(ctx context.Context) (map[model.Ticker]string, error) {
		listings, err := d.fetch(ctx)
		if err != nil {
			return nil, err
		}
		return buildNames(listings), nil
	})
	if err != nil {
		// Not cached, so the next call retries the source.
		zap.L().Warn("symbol directory unavailable", zap.Error(err))
		return buildNames(hkListings)
	}
	return names
}

func buildNames(listings []Listing) map[model.Ticker]string {
	names := make(map[model.Ticker]string, len(IndexNames)+len(listings))
	for t, n := range IndexNames {
		names[t] = n
	}
	for _, l := range listings {
		names[l.Ticker] = l.Name
	}
	return names
}

// Name returns the display name of t, or t itself when unknown.
func (d *Directory) Name(ctx context.Context, t model.Ticker) string {
	if n, ok := d.Names(ctx)[t]; ok && n != "" {
		return n
	}
	return string(t)
}

// Search returns listings whose ticker, bare code or name contains query,
// capped at limit (0 means no cap).
func (d *Directory) Search(ctx context.Context, query string, limit int) []Listing {
	q := strings.TrimSpace(strings.ToUpper(query))
	if q == "" {
		return nil
	}
	var out []Listing
	for _, l := range d.Listings(ctx) {
		if strings.Contains(string(l.Ticker), q) || strings.Contains(strings.ToUpper(l.Name), q) {
			out = append(out, l)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Lookup maps both full tickers and bare codes to their canonical ticker.
func (d *Directory) Lookup(ctx context.Context) map[string]model.Ticker {
	listings := d.Listings(ctx)
	m := make(map[string]model.Ticker, len(listings)*2)
	// Sorted so a bare code shared by two exchanges resolves deterministically.
	sort.Slice(listings, func(i, j int) bool { return listings[i].Ticker < listings[j].Ticker })
	for _, l := range listings {
		m[string(l.Ticker)] = l.Ticker
		if code := l.Ticker.Code(); code != "" {
			if _, taken := m[code]; !taken {
				m[code] = l.Ticker
			}
		}
	}
	return m
}

package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"StockSentinel/internal/model"
)

// DefaultBaseURL is the advisor endpoint used when none is configured.
const DefaultBaseURL = "https://api.deepseek.com"

// Document is the persisted watch file.
type Document struct {
	APIKey      string                              `json:"api_key"`
	BaseURL     string                              `json:"base_url"`
	WatchList   map[model.Ticker]model.WatchEntry   `json:"watch_list"`
	HoldingList map[model.Ticker]model.HoldingEntry `json:"holding_list"`
	UserNews    string                              `json:"user_news"`
	SystemNews  string                              `json:"system_news"`
	Thresholds  model.Thresholds                    `json:"thresholds"`
}

// DefaultDocument is written when no watch file exists.
func DefaultDocument() *Document {
	return &Document{
		BaseURL:     DefaultBaseURL,
		WatchList:   map[model.Ticker]model.WatchEntry{"600519.SS": {Strategy: model.StrategyBand}},
		HoldingList: map[model.Ticker]model.HoldingEntry{},
		Thresholds:  model.DefaultThresholds(),
	}
}

// rawDocument marks which keys were present so defaults only fill gaps.
type rawDocument struct {
	APIKey      *string                     `json:"api_key"`
	BaseURL     *string                     `json:"base_url"`
	WatchList   map[model.Ticker]rawWatch   `json:"watch_list"`
	HoldingList map[model.Ticker]rawHolding `json:"holding_list"`
	UserNews    *string                     `json:"user_news"`
	SystemNews  *string                     `json:"system_news"`
	Thresholds  *rawThresholds              `json:"thresholds"`
}

type rawThresholds struct {
	Short  *float64 `json:"short"`
	Band   *float64 `json:"band"`
	Market *float64 `json:"market"`
}

type rawWatch struct {
	Strategy string `json:"strategy"`
}

type rawHolding struct {
	Cost         *float64 `json:"cost"`
	ProfitTarget *float64 `json:"profit_target"`
	LossLimit    *float64 `json:"loss_limit"`
	Support      *float64 `json:"support"`
}

// ParseDocument decodes a watch file, backfilling missing keys from
// DefaultDocument and mapping legacy strategy labels.
func ParseDocument(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	doc := DefaultDocument()
	setString(&doc.APIKey, raw.APIKey)
	setString(&doc.BaseURL, raw.BaseURL)
	setString(&doc.UserNews, raw.UserNews)
	setString(&doc.SystemNews, raw.SystemNews)

	if raw.WatchList != nil {
		doc.WatchList = make(map[model.Ticker]model.WatchEntry, len(raw.WatchList))
		for t, w := range raw.WatchList {
			if !t.Valid() {
				zap.L().Warn("skipping invalid watch ticker", zap.String("ticker", t.String()))
				continue
			}
			doc.WatchList[t] = model.WatchEntry{Strategy: model.ParseStrategy(w.Strategy)}
		}
	}
	if raw.HoldingList != nil {
		for t, h := range raw.HoldingList {
			if !t.Valid() {
				zap.L().Warn("skipping invalid holding ticker", zap.String("ticker", t.String()))
				continue
			}
			entry := model.DefaultHolding()
			setFloat(&entry.Cost, h.Cost)
			setFloat(&entry.ProfitTarget, h.ProfitTarget)
			setFloat(&entry.LossLimit, h.LossLimit)
			setFloat(&entry.Support, h.Support)
			doc.HoldingList[t] = entry
		}
	}
	if th := raw.Thresholds; th != nil {
		setFloat(&doc.Thresholds.Short, th.Short)
		setFloat(&doc.Thresholds.Band, th.Band)
		setFloat(&doc.Thresholds.Market, th.Market)
	}
	return doc, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// LoadDocument reads the watch file. A missing file is created with the
// defaults; unreadable JSON falls back to the defaults without touching disk.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			doc := DefaultDocument()
			if err := SaveDocument(path, doc); err != nil {
				return nil, err
			}
			return doc, nil
		}
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		zap.L().Warn("watch file unreadable, using defaults", zap.String("path", path), zap.Error(err))
		return DefaultDocument(), nil
	}
	return doc, nil
}

// EncodeDocument renders the document as indented UTF-8 JSON.
func EncodeDocument(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveDocument writes the document through a temp file and rename.
func SaveDocument(path string, doc *Document) error {
	data, err := EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode watch file: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create watch dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write watch file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace watch file: %w", err)
	}
	return nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	c.WatchList = make(map[model.Ticker]model.WatchEntry, len(d.WatchList))
	for k, v := range d.WatchList {
		c.WatchList[k] = v
	}
	c.HoldingList = make(map[model.Ticker]model.HoldingEntry, len(d.HoldingList))
	for k, v := range d.HoldingList {
		c.HoldingList[k] = v
	}
	return &c
}

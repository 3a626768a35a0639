// Package store keeps the watch file: watch list, holdings, thresholds and
// advisor settings. Readers take snapshots; writers are serialized and each
// mutation is persisted before it returns.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"StockSentinel/internal/model"
)

// ErrInvalidTicker is returned when a mutation names a malformed ticker.
var ErrInvalidTicker = errors.New("invalid ticker")

// ErrNotFound is returned when a mutation targets an absent entry.
var ErrNotFound = errors.New("entry not found")

// Store guards the watch document.
type Store struct {
	mu        sync.RWMutex
	doc       *Document
	path      string
	lastSaved []byte
	listeners []func(*Document)
}

// Open loads the document at path, creating it with defaults when absent.
func Open(path string) (*Store, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("load watch file: %w", err)
	}
	return &Store{doc: doc, path: path}, nil
}

// NewMemory returns a store that never touches disk.
func NewMemory(doc *Document) *Store {
	if doc == nil {
		doc = DefaultDocument()
	}
	return &Store{doc: doc.Clone()}
}

// Path returns the backing file, empty for memory stores.
func (s *Store) Path() string { return s.path }

// Snapshot returns a deep copy that is safe to read for a whole scan.
func (s *Store) Snapshot() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// OnChange registers fn to run with a snapshot after every mutation or reload.
func (s *Store) OnChange(fn func(*Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// update applies fn under the write lock and persists the result. The
// in-memory document is left unchanged when fn or the write fails.
func (s *Store) update(fn func(doc *Document) error) error {
	s.mu.Lock()
	next := s.doc.Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.path != "" {
		data, err := EncodeDocument(next)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("encode watch file: %w", err)
		}
		if err := writeFile(s.path, data); err != nil {
			s.mu.Unlock()
			return err
		}
		s.lastSaved = data
	}
	s.doc = next
	listeners := append([]func(*Document){}, s.listeners...)
	snap := next.Clone()
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return nil
}

// Reload re-reads the backing file. Content identical to the last write is
// ignored.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := readFile(s.path)
	if err != nil {
		return err
	}
	s.mu.RLock()
	same := bytes.Equal(data, s.lastSaved)
	s.mu.RUnlock()
	if same {
		return nil
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return fmt.Errorf("parse watch file: %w", err)
	}
	s.mu.Lock()
	s.doc = doc
	s.lastSaved = data
	listeners := append([]func(*Document){}, s.listeners...)
	snap := doc.Clone()
	s.mu.Unlock()

	zap.L().Info("watch file reloaded", zap.String("path", s.path),
		zap.Int("watch", len(doc.WatchList)), zap.Int("holdings", len(doc.HoldingList)))
	for _, l := range listeners {
		l(snap)
	}
	return nil
}

// SetAdvisor stores the advisor credentials.
func (s *Store) SetAdvisor(apiKey, baseURL string) error {
	return s.update(func(d *Document) error {
		d.APIKey = apiKey
		if baseURL == "" {
			baseURL = DefaultBaseURL
		}
		d.BaseURL = baseURL
		return nil
	})
}

// SetThresholds replaces the alert thresholds.
func (s *Store) SetThresholds(th model.Thresholds) error {
	return s.update(func(d *Document) error {
		d.Thresholds = th
		return nil
	})
}

// AddWatch adds or re-strategizes a watched ticker.
func (s *Store) AddWatch(t model.Ticker, st model.Strategy) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTicker, t)
	}
	return s.update(func(d *Document) error {
		d.WatchList[t] = model.WatchEntry{Strategy: st}
		return nil
	})
}

// RemoveWatch drops a watched ticker.
func (s *Store) RemoveWatch(t model.Ticker) error {
	return s.update(func(d *Document) error {
		if _, ok := d.WatchList[t]; !ok {
			return fmt.Errorf("%w: watch %s", ErrNotFound, t)
		}
		delete(d.WatchList, t)
		return nil
	})
}

// AddHolding adds t with the default risk plan. An existing plan is kept.
func (s *Store) AddHolding(t model.Ticker) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTicker, t)
	}
	return s.update(func(d *Document) error {
		if _, ok := d.HoldingList[t]; !ok {
			d.HoldingList[t] = model.DefaultHolding()
		}
		return nil
	})
}

// UpdateHolding replaces the risk plan for a held ticker.
func (s *Store) UpdateHolding(t model.Ticker, h model.HoldingEntry) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTicker, t)
	}
	return s.update(func(d *Document) error {
		d.HoldingList[t] = h
		return nil
	})
}

// RemoveHolding drops a held ticker.
func (s *Store) RemoveHolding(t model.Ticker) error {
	return s.update(func(d *Document) error {
		if _, ok := d.HoldingList[t]; !ok {
			return fmt.Errorf("%w: holding %s", ErrNotFound, t)
		}
		delete(d.HoldingList, t)
		return nil
	})
}

// SetSystemNews replaces the fetched news text.
func (s *Store) SetSystemNews(text string) error {
	return s.update(func(d *Document) error {
		d.SystemNews = text
		return nil
	})
}

// SetUserNews replaces the user's own notes.
func (s *Store) SetUserNews(text string) error {
	return s.update(func(d *Document) error {
		d.UserNews = text
		return nil
	})
}

var (
	importSplit  = regexp.MustCompile(`[,\s]+`)
	importPrefix = regexp.MustCompile(`(sh|sz|ss|hk)`)
)

// BulkImport adds every code in raw that lookup resolves as a watch entry
// with strategy st. Codes may carry sh/sz/ss/hk decorations. It returns the
// number of codes imported; nothing is written when none match.
func (s *Store) BulkImport(raw string, st model.Strategy, lookup map[string]model.Ticker) (int, error) {
	var matched []model.Ticker
	for _, code := range importSplit.Split(strings.TrimSpace(raw), -1) {
		if code == "" {
			continue
		}
		t, ok := lookup[code]
		if !ok {
			t, ok = lookup[importPrefix.ReplaceAllString(strings.ToLower(code), "")]
		}
		if ok {
			matched = append(matched, t)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}
	err := s.update(func(d *Document) error {
		for _, t := range matched {
			d.WatchList[t] = model.WatchEntry{Strategy: st}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// Tickers returns the sorted union of watched and held tickers.
func (d *Document) Tickers() []model.Ticker {
	seen := make(map[model.Ticker]struct{}, len(d.WatchList)+len(d.HoldingList))
	for t := range d.WatchList {
		seen[t] = struct{}{}
	}
	for t := range d.HoldingList {
		seen[t] = struct{}{}
	}
	out := make([]model.Ticker, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

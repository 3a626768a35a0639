package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"StockSentinel/internal/model"
)

// SQLiteRecorder persists scan history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while scans write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	zap.L().Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			tickers     INTEGER,
			alerts      INTEGER,
			skipped     INTEGER,
			unavailable INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			scan_id   TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			ticker    TEXT NOT NULL,
			name      TEXT,
			kind      TEXT NOT NULL,
			severity  INTEGER,
			value     REAL,
			message   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ticker ON alerts(ticker)`,

		`CREATE TABLE IF NOT EXISTS metrics (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			scan_id       TEXT NOT NULL,
			timestamp     INTEGER NOT NULL,
			ticker        TEXT NOT NULL,
			price         REAL,
			change_pct    REAL,
			volume_ratio  REAL,
			ma10_dev      REAL,
			ma20_dev      REAL,
			ma30_dev      REAL,
			ma60_dev      REAL,
			index_premium REAL,
			index_code    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_ticker_ts ON metrics(ticker, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable stores unknown metric values as NULL.
func nullable(v model.Value) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.V, Valid: v.OK}
}

// RecordScan writes the scan summary, its alerts and its metrics in one
// transaction.
func (r *SQLiteRecorder) RecordScan(ctx context.Context, res *model.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ts := res.FinishedAt.Unix()
	if _, err := tx.ExecContext(ctx, `INSERT INTO scans
		(id, started_at, finished_at, tickers, alerts, skipped, unavailable)
		VALUES (?,?,?,?,?,?,?)`,
		res.ID, res.StartedAt.Unix(), ts,
		len(res.Quotes)+len(res.Skipped), len(res.Alerts), len(res.Skipped), len(res.Unavailable),
	); err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}

	for _, a := range res.Alerts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO alerts
			(scan_id, timestamp, ticker, name, kind, severity, value, message)
			VALUES (?,?,?,?,?,?,?,?)`,
			res.ID, ts, string(a.Ticker), a.Name, string(a.Kind), int(a.Severity), a.Value, a.Message,
		); err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
	}

	tickers := make([]model.Ticker, 0, len(res.Metrics))
	for t := range res.Metrics {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i] < tickers[j] })
	for _, t := range tickers {
		m := res.Metrics[t]
		if m == nil {
			continue
		}
		q := res.Quotes[t]
		if _, err := tx.ExecContext(ctx, `INSERT INTO metrics
			(scan_id, timestamp, ticker, price, change_pct, volume_ratio,
			 ma10_dev, ma20_dev, ma30_dev, ma60_dev, index_premium, index_code)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
			res.ID, ts, string(t), q.Price, q.ChangePct, nullable(m.VolumeRatio),
			nullable(m.MA10Dev), nullable(m.MA20Dev), nullable(m.MA30Dev), nullable(m.MA60Dev),
			nullable(m.IndexPremium), string(m.IndexCode),
		); err != nil {
			return fmt.Errorf("insert metrics: %w", err)
		}
	}

	return tx.Commit()
}

// RecentScans returns the newest scans first.
func (r *SQLiteRecorder) RecentScans(ctx context.Context, limit int) ([]ScanSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, started_at, finished_at, tickers, alerts, skipped, unavailable
		FROM scans ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []ScanSummary
	for rows.Next() {
		var s ScanSummary
		var started, finished int64
		if err := rows.Scan(&s.ID, &started, &finished, &s.Tickers, &s.Alerts, &s.Skipped, &s.Unavailable); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.StartedAt = time.Unix(started, 0)
		s.FinishedAt = time.Unix(finished, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecentAlerts returns the newest alerts first.
func (r *SQLiteRecorder) RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT scan_id, timestamp, ticker, name, kind, severity, value, message
		FROM alerts ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var a AlertRecord
		var ts int64
		var ticker, kind string
		var severity int
		if err := rows.Scan(&a.ScanID, &ts, &ticker, &a.Name, &kind, &severity, &a.Value, &a.Message); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		a.Timestamp = time.Unix(ts, 0)
		a.Ticker = model.Ticker(ticker)
		a.Kind = model.AlertKind(kind)
		a.Severity = model.Severity(severity)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	zap.L().Info("closing sqlite recorder")
	return r.db.Close()
}

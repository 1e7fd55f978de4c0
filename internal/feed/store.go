package feed

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"backtune/internal/market"
	"backtune/internal/timeframe"

	_ "modernc.org/sqlite"
)

// Store keeps downloaded candle history in one sqlite file per
// symbol@interval pair under a data root.
type Store struct {
	root string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// Coverage summarizes what a symbol@interval file currently holds.
type Coverage struct {
	Symbol     string `json:"symbol"`
	Interval   string `json:"interval"`
	MinTime    int64  `json:"min_time"`
	MaxTime    int64  `json:"max_time"`
	Rows       int64  `json:"rows"`
	LastSyncAt int64  `json:"last_sync_at"`
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("candle store requires a data root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root, dbs: make(map[string]*sql.DB)}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for k, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.dbs, k)
	}
	return firstErr
}

func (s *Store) db(symbol, interval string) (*sql.DB, error) {
	if symbol == "" || interval == "" {
		return nil, fmt.Errorf("symbol and interval are required")
	}
	key := strings.ToUpper(symbol) + "@" + strings.ToLower(interval)
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[key]; ok {
		return db, nil
	}
	path := filepath.Join(s.root, strings.ToUpper(symbol), strings.ToLower(interval)+".db")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db, symbol, interval); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.dbs[key] = db
	return db, nil
}

func ensureSchema(db *sql.DB, symbol, interval string) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			open_time  INTEGER PRIMARY KEY,
			close_time INTEGER NOT NULL,
			open       REAL NOT NULL,
			high       REAL NOT NULL,
			low        REAL NOT NULL,
			close      REAL NOT NULL,
			volume     REAL NOT NULL,
			trades     INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS coverage (
			id INTEGER PRIMARY KEY CHECK (id=1),
			symbol TEXT NOT NULL,
			interval TEXT NOT NULL,
			min_time INTEGER,
			max_time INTEGER,
			rows INTEGER DEFAULT 0,
			last_sync_at INTEGER
		);`,
		`INSERT INTO coverage (id, symbol, interval) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET symbol=excluded.symbol, interval=excluded.interval;`,
	}
	for i, stmt := range stmts {
		var err error
		if i == len(stmts)-1 {
			_, err = db.Exec(stmt, strings.ToUpper(symbol), strings.ToLower(interval))
		} else {
			_, err = db.Exec(stmt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Insert upserts candles keyed by open_time and refreshes the coverage row.
func (s *Store) Insert(ctx context.Context, symbol, interval string, candles []market.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	db, err := s.db(symbol, interval)
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (open_time, close_time, open, high, low, close, volume, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(open_time) DO UPDATE SET
		    close_time=excluded.close_time,
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    volume=excluded.volume,
		    trades=excluded.trades`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.Trades); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if err := s.refreshCoverage(ctx, db); err != nil {
		return len(candles), err
	}
	return len(candles), nil
}

func (s *Store) refreshCoverage(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		UPDATE coverage
		SET min_time = (SELECT COALESCE(MIN(open_time), 0) FROM candles),
		    max_time = (SELECT COALESCE(MAX(close_time), 0) FROM candles),
		    rows = (SELECT COUNT(1) FROM candles),
		    last_sync_at = ?
		WHERE id = 1`, time.Now().UnixMilli())
	return err
}

// Coverage reports what the store holds for symbol@interval.
func (s *Store) Coverage(ctx context.Context, symbol, interval string) (Coverage, error) {
	db, err := s.db(symbol, interval)
	if err != nil {
		return Coverage{}, err
	}
	row := db.QueryRowContext(ctx, `SELECT symbol, interval, COALESCE(min_time,0), COALESCE(max_time,0), rows, COALESCE(last_sync_at,0) FROM coverage WHERE id=1`)
	var c Coverage
	if err := row.Scan(&c.Symbol, &c.Interval, &c.MinTime, &c.MaxTime, &c.Rows, &c.LastSyncAt); err != nil {
		return Coverage{}, err
	}
	return c, nil
}

// Extent returns the stored history as a half-open timeframe, or
// timeframe.Infinite when nothing is stored yet.
func (s *Store) Extent(ctx context.Context, symbol, interval string) (timeframe.Timeframe, error) {
	cov, err := s.Coverage(ctx, symbol, interval)
	if err != nil {
		return timeframe.Infinite, err
	}
	if cov.Rows == 0 {
		return timeframe.Infinite, nil
	}
	return timeframe.New(time.UnixMilli(cov.MinTime).UTC(), time.UnixMilli(cov.MaxTime+1).UTC())
}

// Query returns candles whose open time falls inside tf, ascending.
func (s *Store) Query(ctx context.Context, symbol, interval string, tf timeframe.Timeframe) ([]market.Candle, error) {
	if tf.IsInfinite() {
		return nil, fmt.Errorf("candle query requires a bounded timeframe")
	}
	db, err := s.db(symbol, interval)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT open_time, close_time, open, high, low, close, volume, trades
		FROM candles WHERE open_time >= ? AND open_time < ?
		ORDER BY open_time ASC`, tf.Start.UnixMilli(), tf.End.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Package store persists completed backtest runs and their trade ledgers
// to an embedded sqlite database so result history survives the process.
package store

import (
	"database/sql"
	"fmt"
	"time"

	// sqlite driver registration
	_ "github.com/mattn/go-sqlite3"

	"github.com/tradepulse/gobacktester/engine"
	"github.com/tradepulse/gobacktester/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	strategy TEXT NOT NULL,
	range_start TIMESTAMP NOT NULL,
	range_end TIMESTAMP NOT NULL,
	initial_capital REAL NOT NULL,
	final_capital REAL NOT NULL,
	profit REAL NOT NULL,
	return_pct REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	entry_time TIMESTAMP NOT NULL,
	entry_price REAL NOT NULL,
	entry_quantity REAL NOT NULL,
	exit_time TIMESTAMP NOT NULL,
	exit_price REAL NOT NULL,
	exit_quantity REAL NOT NULL,
	commission REAL NOT NULL,
	profit REAL NOT NULL,
	profit_pct REAL NOT NULL,
	is_long INTEGER NOT NULL,
	stop_loss_hit INTEGER NOT NULL,
	take_profit_hit INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);`

// Store wraps the sqlite handle
type Store struct {
	db *sql.DB
}

// RunSummary is one persisted run row
type RunSummary struct {
	ID          string
	Strategy    string
	RangeStart  time.Time
	RangeEnd    time.Time
	Profit      float64
	ReturnPct   float64
	TotalTrades int
	CreatedAt   time.Time
}

// Open opens or creates the database at path and applies the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema to %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes the run row and its full ledger in one transaction
func (s *Store) SaveRun(meta engine.RunMetaData, rangeStart, rangeEnd time.Time, results *engine.Results) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (id, strategy, range_start, range_end, initial_capital,
		final_capital, profit, return_pct, total_trades, win_rate, max_drawdown, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID.String(), meta.Strategy, rangeStart, rangeEnd,
		results.InitialCapital.InexactFloat64(), results.FinalCapital.InexactFloat64(),
		results.Profit.InexactFloat64(), results.ReturnPct.InexactFloat64(),
		results.TotalTrades, results.WinRate.InexactFloat64(),
		results.MaxDrawdown.InexactFloat64(), time.Now())
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", meta.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO trades (run_id, seq, symbol, entry_time, entry_price,
		entry_quantity, exit_time, exit_price, exit_quantity, commission, profit, profit_pct,
		is_long, stop_loss_hit, take_profit_hit) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, t := range results.Trades {
		_, err = stmt.Exec(meta.ID.String(), i, t.Symbol,
			t.EntryTime, t.EntryPrice.InexactFloat64(), t.EntryQuantity.InexactFloat64(),
			t.ExitTime, t.ExitPrice.InexactFloat64(), t.ExitQuantity.InexactFloat64(),
			t.Commission.InexactFloat64(), t.Profit.InexactFloat64(), t.ProfitPercent.InexactFloat64(),
			t.IsLong, t.StopLossHit, t.TakeProfitHit)
		if err != nil {
			return fmt.Errorf("inserting trade %d of run %s: %w", i, meta.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debugf(log.Report, "persisted run %s with %d trades", meta.ID, len(results.Trades))
	return nil
}

// ListRuns returns the persisted runs, most recent first
func (s *Store) ListRuns() ([]RunSummary, error) {
	rows, err := s.db.Query(`SELECT id, strategy, range_start, range_end, profit, return_pct,
		total_trades, created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Strategy, &r.RangeStart, &r.RangeEnd,
			&r.Profit, &r.ReturnPct, &r.TotalTrades, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Package sqlite implements the append-only decision log on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"signalPilot/internal/domain"
	"signalPilot/internal/ports"
)

// DecisionLog implements ports.DecisionLog and ports.DecisionReader using SQLite.
type DecisionLog struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite decision log.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewDecisionLog creates a new SQLite decision log instance.
func NewDecisionLog(cfg Config) (*DecisionLog, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite decision log")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/decisions.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite decision log initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite decision log initialization failed")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite decision log initialization failed")
		return nil, err
	}

	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but the Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	log := &DecisionLog{db: db, logger: cfg.Logger}
	if err := log.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize decision log schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite decision log initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite decision log ready", map[string]interface{}{"path": dbPath})
	return log, nil
}

func (l *DecisionLog) initializeSchema(ctx context.Context) error {
	// Append-only: rows are inserted, never updated or deleted.
	const schema = `
	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TIMESTAMP NOT NULL,
		strategy_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		transition TEXT NOT NULL,
		snapshot TEXT NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_symbol_time ON decisions (symbol, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_decisions_strategy_time ON decisions (strategy_id, recorded_at);
	`
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (l *DecisionLog) Close() error {
	if l.db != nil {
		l.logger.Info(context.Background(), "Closing SQLite decision log")
		return l.db.Close()
	}
	return nil
}

// Record appends one decision. A failed write is wrapped in
// ports.ErrRecorderFailure and surfaced to the caller; it is never swallowed.
func (l *DecisionLog) Record(ctx context.Context, rec *domain.DecisionRecord) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("%w: failed to encode snapshot: %v", ports.ErrRecorderFailure, err)
	}
	const query = `
	INSERT INTO decisions (recorded_at, strategy_id, symbol, transition, snapshot, outcome)
	VALUES (?, ?, ?, ?, ?, ?)`
	_, err = l.db.ExecContext(ctx, query,
		rec.Timestamp, rec.StrategyID, rec.Symbol, string(rec.Transition), string(snapshot), rec.Outcome)
	if err != nil {
		return fmt.Errorf("%w: insert for strategy %s on %s: %v", ports.ErrRecorderFailure, rec.StrategyID, rec.Symbol, err)
	}
	l.logger.Debug(ctx, "Decision recorded", map[string]interface{}{
		"strategyID": rec.StrategyID, "symbol": rec.Symbol, "transition": string(rec.Transition),
	})
	return nil
}

// Recent returns the most recent decisions across all symbols.
func (l *DecisionLog) Recent(ctx context.Context, limit int) ([]*domain.DecisionRecord, error) {
	const query = `
	SELECT recorded_at, strategy_id, symbol, transition, snapshot, outcome
	FROM decisions ORDER BY recorded_at DESC, id DESC LIMIT ?`
	return l.query(ctx, query, limit)
}

// BySymbol returns the most recent decisions for one symbol.
func (l *DecisionLog) BySymbol(ctx context.Context, symbol string, limit int) ([]*domain.DecisionRecord, error) {
	const query = `
	SELECT recorded_at, strategy_id, symbol, transition, snapshot, outcome
	FROM decisions WHERE symbol = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`
	return l.query(ctx, query, symbol, limit)
}

func (l *DecisionLog) query(ctx context.Context, query string, args ...interface{}) ([]*domain.DecisionRecord, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	records := make([]*domain.DecisionRecord, 0)
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decision rows: %w", err)
	}
	return records, nil
}

func scanDecision(rows *sql.Rows) (*domain.DecisionRecord, error) {
	rec := &domain.DecisionRecord{}
	var transition, snapshot string
	if err := rows.Scan(&rec.Timestamp, &rec.StrategyID, &rec.Symbol, &transition, &snapshot, &rec.Outcome); err != nil {
		return nil, err
	}
	rec.Transition = domain.Section(transition)
	if err := json.Unmarshal([]byte(snapshot), &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return rec, nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"FuturesSentinel/internal/model"
)

// Options tunes an SQLStore.
type Options struct {
	Table        string
	QueryTimeout time.Duration
	MaxOpenConns int
}

// SQLStore persists trades to PostgreSQL or SQLite through sqlx.
type SQLStore struct {
	db      *sqlx.DB
	table   string
	timeout time.Duration
}

type tradeRow struct {
	Price    decimal.Decimal `db:"price"`
	TradedAt int64           `db:"traded_at"`
}

// Open connects to the engine, verifies the connection and runs migrations.
func Open(ctx context.Context, engine string, opts Options) (*SQLStore, error) {
	driver, dsn, err := ParseEngine(engine)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// A single connection serialises writers and keeps :memory: databases coherent.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	s, err := New(db, opts.Table, opts.QueryTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("driver", driver).Str("table", s.table).Msg("trade store opened")
	return s, nil
}

// New wraps an existing connection without migrating it.
func New(db *sqlx.DB, table string, timeout time.Duration) (*SQLStore, error) {
	if table == "" {
		table = "futures_trades"
	}
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SQLStore{db: db, table: table, timeout: timeout}, nil
}

// Migrate creates the trades table and its indexes if they are missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	idCol := "id BIGSERIAL PRIMARY KEY"
	if s.db.DriverName() == "sqlite" {
		idCol = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s,
			symbol    TEXT    NOT NULL,
			price     NUMERIC NOT NULL,
			traded_at BIGINT  NOT NULL
		)`, s.table, idCol),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_traded_at ON %s(traded_at)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_symbol ON %s(symbol, traded_at)`, s.table, s.table),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// InsertTrade stores one trade in its own transaction. Duplicates are accepted.
func (s *SQLStore) InsertTrade(ctx context.Context, trade model.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	query := s.db.Rebind(fmt.Sprintf(`INSERT INTO %s (symbol, price, traded_at) VALUES (?, ?, ?)`, s.table))
	if _, err := tx.ExecContext(ctx, query,
		NormalizeSymbol(trade.Symbol), trade.Price, trade.Timestamp.UnixMilli()); err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return tx.Commit()
}

// DeleteOlderThan removes trades with a timestamp strictly before cutoff.
func (s *SQLStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	query := s.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE traded_at < ?`, s.table))
	res, err := tx.ExecContext(ctx, query, ceilMilli(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete old trades: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return n, nil
}

// ceilMilli converts cutoff to epoch milliseconds, rounding a sub-millisecond
// remainder up so a row stored at millisecond M is deleted for any cutoff after M.
func ceilMilli(cutoff time.Time) int64 {
	ms := cutoff.UnixMilli()
	if cutoff.Sub(time.UnixMilli(ms)) > 0 {
		ms++
	}
	return ms
}

// CountRows returns the number of rows in table, or in the store's table when empty.
func (s *SQLStore) CountRows(ctx context.Context, table string) (int64, error) {
	if table == "" {
		table = s.table
	}
	if err := ValidateTable(table); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int64
	if err := s.db.GetContext(ctx, &n, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// ReadAll loads every trade for symbol ordered by time.
func (s *SQLStore) ReadAll(ctx context.Context, symbol string) (model.PriceSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	symbol = NormalizeSymbol(symbol)
	query := s.db.Rebind(fmt.Sprintf(
		`SELECT price, traded_at FROM %s WHERE symbol = ? ORDER BY traded_at, id`, s.table))

	var rows []tradeRow
	if err := s.db.SelectContext(ctx, &rows, query, symbol); err != nil {
		return model.PriceSeries{}, fmt.Errorf("read %s: %w", symbol, err)
	}

	series := model.PriceSeries{Symbol: symbol, Points: make([]model.PricePoint, len(rows))}
	for i, r := range rows {
		series.Points[i] = model.PricePoint{
			Time:  time.UnixMilli(r.TradedAt).UTC(),
			Price: r.Price.InexactFloat64(),
		}
	}
	return series, nil
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Table returns the trades table name.
func (s *SQLStore) Table() string { return s.table }

func (s *SQLStore) Close() error {
	log.Info().Msg("closing trade store")
	return s.db.Close()
}

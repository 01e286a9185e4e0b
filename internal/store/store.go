package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"FuturesSentinel/internal/model"
)

// ErrInvalidTable is returned when a table name is not a plain SQL identifier.
var ErrInvalidTable = errors.New("invalid table name")

// TradeStore persists trades and serves them back as price series.
// Every call is self-contained: no transaction outlives a single operation.
type TradeStore interface {
	InsertTrade(ctx context.Context, trade model.Trade) error
	// DeleteOlderThan removes trades strictly older than cutoff and returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// CountRows counts rows in table; an empty name means the store's own table.
	CountRows(ctx context.Context, table string) (int64, error)
	// ReadAll returns every stored trade for symbol as an ascending price series.
	ReadAll(ctx context.Context, symbol string) (model.PriceSeries, error)
	Ping(ctx context.Context) error
	Close() error
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTable checks that name can be safely interpolated into SQL.
func ValidateTable(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}

// NormalizeSymbol upper-cases a symbol so "ethusdt" and "ETHUSDT" are stored alike.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ParseEngine picks the database/sql driver for a connection string and returns
// the data source name that driver expects.
func ParseEngine(engine string) (driver, dsn string, err error) {
	e := strings.TrimSpace(engine)
	switch {
	case e == "":
		return "", "", errors.New("empty database engine")
	case strings.HasPrefix(e, "postgres://"), strings.HasPrefix(e, "postgresql://"):
		return "postgres", e, nil
	case strings.HasPrefix(e, "host="):
		return "postgres", e, nil
	case strings.HasPrefix(e, "sqlite://"):
		return "sqlite", strings.TrimPrefix(e, "sqlite://"), nil
	case strings.HasPrefix(e, "file:"), e == ":memory:",
		strings.HasSuffix(e, ".db"), strings.HasSuffix(e, ".sqlite"):
		return "sqlite", e, nil
	default:
		return "", "", fmt.Errorf("unsupported database engine %q", e)
	}
}

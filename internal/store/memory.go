package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"FuturesSentinel/internal/model"
)

// MemoryStore is an in-process TradeStore used for dry runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	table  string
	trades []model.Trade
}

func NewMemoryStore(table string) *MemoryStore {
	if table == "" {
		table = "futures_trades"
	}
	return &MemoryStore{table: table}
}

func (m *MemoryStore) InsertTrade(_ context.Context, trade model.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trade.Symbol = NormalizeSymbol(trade.Symbol)
	m.trades = append(m.trades, trade)
	return nil
}

func (m *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.trades[:0]
	var n int64
	for _, t := range m.trades {
		if t.Timestamp.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.trades = kept
	return n, nil
}

func (m *MemoryStore) CountRows(_ context.Context, table string) (int64, error) {
	if table == "" {
		table = m.table
	}
	if err := ValidateTable(table); err != nil {
		return 0, err
	}
	if table != m.table {
		return 0, fmt.Errorf("count %s: no such table", table)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.trades)), nil
}

func (m *MemoryStore) ReadAll(_ context.Context, symbol string) (model.PriceSeries, error) {
	symbol = NormalizeSymbol(symbol)
	m.mu.Lock()
	defer m.mu.Unlock()
	series := model.PriceSeries{Symbol: symbol}
	for _, t := range m.trades {
		if t.Symbol == symbol {
			series.Points = append(series.Points, model.PricePoint{Time: t.Timestamp.UTC(), Price: t.Price.InexactFloat64()})
		}
	}
	sort.SliceStable(series.Points, func(i, j int) bool { return series.Points[i].Time.Before(series.Points[j].Time) })
	return series, nil
}

// Trades returns a copy of everything stored.
func (m *MemoryStore) Trades() []model.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Trade(nil), m.trades...)
}

func (m *MemoryStore) Table() string { return m.table }

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error                { return nil }

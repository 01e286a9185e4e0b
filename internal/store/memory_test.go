package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FuturesSentinel/internal/model"
)

func TestMemoryStore_DeleteOlderThan(t *testing.T) {
	m := NewMemoryStore("")
	ctx := context.Background()
	now := time.Now()
	cutoff := now.Add(-60 * time.Minute)

	for _, age := range []time.Duration{90 * time.Minute, 61 * time.Minute, 60 * time.Minute, 5 * time.Minute, 0} {
		require.NoError(t, m.InsertTrade(ctx, model.Trade{Symbol: "ETHUSDT", Price: decimal.NewFromInt(2000), Timestamp: now.Add(-age)}))
	}

	n, err := m.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	remaining := m.Trades()
	require.Len(t, remaining, 3)
	for _, tr := range remaining {
		assert.False(t, tr.Timestamp.Before(cutoff))
	}
}

func TestMemoryStore_ReadAllAndCount(t *testing.T) {
	m := NewMemoryStore("futures_trades")
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.InsertTrade(ctx, model.Trade{Symbol: "ethusdt", Price: decimal.NewFromInt(1010), Timestamp: t0.Add(time.Minute)}))
	require.NoError(t, m.InsertTrade(ctx, model.Trade{Symbol: "ETHUSDT", Price: decimal.NewFromInt(1000), Timestamp: t0}))
	require.NoError(t, m.InsertTrade(ctx, model.Trade{Symbol: "BTCUSDT", Price: decimal.NewFromInt(20000), Timestamp: t0}))

	series, err := m.ReadAll(ctx, "EthUsdt")
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, 1010}, series.Prices())

	n, err := m.CountRows(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = m.CountRows(ctx, "other")
	assert.Error(t, err)
	_, err = m.CountRows(ctx, "bad name")
	assert.ErrorIs(t, err, ErrInvalidTable)
}

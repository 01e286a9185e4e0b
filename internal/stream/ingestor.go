package stream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"FuturesSentinel/internal/metrics"
	"FuturesSentinel/internal/monitor"
	"FuturesSentinel/internal/notifier"
	"FuturesSentinel/internal/store"
)

// Ingestor persists incoming trades and feeds the price monitor.
type Ingestor struct {
	Store    store.TradeStore
	Monitor  *monitor.PriceMonitor
	Notifier notifier.Notifier
	Metrics  *metrics.Registry
	Now      func() time.Time
}

// NewIngestor creates an Ingestor. mon, n and m may be nil.
func NewIngestor(st store.TradeStore, mon *monitor.PriceMonitor, n notifier.Notifier, m *metrics.Registry) *Ingestor {
	return &Ingestor{Store: st, Monitor: mon, Notifier: n, Metrics: m, Now: time.Now}
}

// HandleTrade parses one message, stores the trade and runs the monitor for its symbol.
func (in *Ingestor) HandleTrade(ctx context.Context, raw []byte) error {
	trade, err := ParseTrade(raw, in.Now())
	if err != nil {
		in.Metrics.TradeRejected()
		return err
	}

	if err := in.Store.InsertTrade(ctx, trade); err != nil {
		in.Metrics.StoreError("insert")
		return fmt.Errorf("store trade %s: %w", trade.Symbol, err)
	}
	in.Metrics.TradeIngested(trade.Symbol)
	log.Debug().Str("symbol", trade.Symbol).Str("price", trade.Price.String()).Msg("trade stored")

	if in.Monitor == nil || !strings.EqualFold(in.Monitor.Symbol(), trade.Symbol) {
		return nil
	}
	msg, ok := in.Monitor.Check(trade.Price.InexactFloat64())
	if !ok {
		return nil
	}
	in.Metrics.PriceAlert(trade.Symbol)
	log.Info().Str("symbol", trade.Symbol).Msg(msg)
	if in.Notifier != nil {
		if err := in.Notifier.Notify(ctx, msg); err != nil {
			log.Error().Err(err).Msg("send price change notification")
		}
	}
	return nil
}

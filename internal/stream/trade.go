package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"FuturesSentinel/internal/model"
)

// ErrMalformedTrade wraps every trade-message decoding failure.
var ErrMalformedTrade = errors.New("malformed trade message")

// tradeEvent is a Binance futures aggTrade payload. Only s and p are required.
// encoding/json folds key case, so every single-letter key that differs from
// another only by case needs its own field.
type tradeEvent struct {
	EventType  string `json:"e"`
	EventTime  int64  `json:"E"`
	Symbol     string `json:"s"`
	Price      string `json:"p"`
	Quantity   string `json:"q"`
	AggTradeID int64  `json:"a"`
	TradeID    int64  `json:"t"`
	TradeTime  int64  `json:"T"`
}

// combinedEvent is the envelope used by combined streams (/stream?streams=...).
type combinedEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// ParseTrade decodes a trade message. When the message carries no trade time,
// now is used as the timestamp.
func ParseTrade(raw []byte, now time.Time) (model.Trade, error) {
	var env combinedEvent
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.Trade{}, fmt.Errorf("%w: %v", ErrMalformedTrade, err)
	}
	if env.Stream != "" && len(env.Data) > 0 {
		raw = env.Data
	}

	var ev tradeEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.Trade{}, fmt.Errorf("%w: %v", ErrMalformedTrade, err)
	}
	if strings.TrimSpace(ev.Symbol) == "" {
		return model.Trade{}, fmt.Errorf("%w: missing symbol", ErrMalformedTrade)
	}
	if ev.Price == "" {
		return model.Trade{}, fmt.Errorf("%w: missing price", ErrMalformedTrade)
	}
	price, err := decimal.NewFromString(ev.Price)
	if err != nil {
		return model.Trade{}, fmt.Errorf("%w: price %q: %v", ErrMalformedTrade, ev.Price, err)
	}
	if price.IsNegative() {
		return model.Trade{}, fmt.Errorf("%w: negative price %s", ErrMalformedTrade, ev.Price)
	}

	ts := now.UTC()
	if ev.TradeTime > 0 {
		ts = time.UnixMilli(ev.TradeTime).UTC()
	}
	return model.Trade{Symbol: strings.ToUpper(ev.Symbol), Price: price, Timestamp: ts}, nil
}

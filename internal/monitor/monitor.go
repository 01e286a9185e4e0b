package monitor

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultThresholdPct is the minimum absolute percent move that is reported.
const DefaultThresholdPct = 0.00001

// PriceMonitor reports percent changes between consecutive prices of one stream.
// A zero last price means no observation has been made yet.
type PriceMonitor struct {
	mu           sync.Mutex
	symbol       string
	thresholdPct float64
	lastPrice    float64
}

// New creates a monitor for symbol. A non-positive threshold falls back to DefaultThresholdPct.
func New(symbol string, thresholdPct float64) *PriceMonitor {
	if thresholdPct <= 0 {
		thresholdPct = DefaultThresholdPct
	}
	return &PriceMonitor{symbol: symbol, thresholdPct: thresholdPct}
}

// Symbol returns the monitored symbol.
func (m *PriceMonitor) Symbol() string { return m.symbol }

// LastPrice returns the most recent accepted price, or 0 before the first observation.
func (m *PriceMonitor) LastPrice() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrice
}

// Check compares current with the previous price and returns a notification when the
// move is at least the threshold. It never fails: bad input is logged and ignored.
func (m *PriceMonitor) Check(current float64) (msg string, notify bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("symbol", m.symbol).Interface("panic", r).Msg("price monitor recovered")
			msg, notify = "", false
		}
	}()

	msg, notify, err := m.check(current)
	if err != nil {
		log.Error().Err(err).Str("symbol", m.symbol).Msg("price monitor")
		return "", false
	}
	return msg, notify
}

var errInvalidPrice = errors.New("invalid price")

func (m *PriceMonitor) check(current float64) (string, bool, error) {
	if math.IsNaN(current) || math.IsInf(current, 0) || current < 0 {
		return "", false, fmt.Errorf("%w: %v", errInvalidPrice, current)
	}

	var (
		msg    string
		notify bool
	)
	if m.lastPrice > 0 {
		change := (current - m.lastPrice) / m.lastPrice * 100
		if math.Abs(change) >= m.thresholdPct {
			msg, notify = FormatChange(change, current), true
		}
	}
	m.lastPrice = current
	return msg, notify, nil
}

// FormatChange renders a signed percent move, e.g. "Price change: +0.0998% - Current Price: 1001 USDT".
func FormatChange(changePct, current float64) string {
	sign := "-"
	if changePct > 0 {
		sign = "+"
	}
	return fmt.Sprintf("Price change: %s%.4f%% - Current Price: %s USDT",
		sign, math.Abs(changePct), strconv.FormatFloat(current, 'f', -1, 64))
}

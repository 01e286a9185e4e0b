package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a single executed futures trade as received from the exchange feed.
type Trade struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}

// PricePoint is one observation of a symbol's price.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// PriceSeries holds time-ordered price points for one symbol.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// Len returns the number of points in the series.
func (s PriceSeries) Len() int { return len(s.Points) }

// Prices returns the price column of the series.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// AlignKey returns the join key for a timestamp: UTC, rounded to the nearest second.
func AlignKey(t time.Time) time.Time {
	return t.UTC().Round(time.Second)
}

// MergedObservation is a row of the inner join of two series on aligned timestamp.
type MergedObservation struct {
	Time   time.Time
	PriceA float64 // target (dependent)
	PriceB float64 // reference (independent)
}

// AdjustedPoint is the residual price of the target at one joined timestamp.
type AdjustedPoint struct {
	Time  time.Time
	Price float64
}

// Adjustment is the result of removing the reference asset's influence from the target.
// Intercept is deliberately absent: only the slope is applied downstream.
type Adjustment struct {
	Slope  float64
	Points []AdjustedPoint
}

// Len returns the number of adjusted rows.
func (a *Adjustment) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Points)
}

// Values returns the adjusted prices in join order.
func (a *Adjustment) Values() []float64 {
	if a == nil {
		return nil
	}
	out := make([]float64, len(a.Points))
	for i, p := range a.Points {
		out[i] = p.Price
	}
	return out
}

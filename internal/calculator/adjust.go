package calculator

import (
	"fmt"

	"FuturesSentinel/internal/model"
)

// Merge inner-joins two series on timestamps rounded to the nearest second.
// Rows keep the order of a; a timestamp repeated on either side yields every pairing.
func Merge(a, b model.PriceSeries) []model.MergedObservation {
	index := make(map[int64][]float64, len(b.Points))
	for _, p := range b.Points {
		k := model.AlignKey(p.Time).Unix()
		index[k] = append(index[k], p.Price)
	}

	var merged []model.MergedObservation
	for _, p := range a.Points {
		t := model.AlignKey(p.Time)
		for _, pb := range index[t.Unix()] {
			merged = append(merged, model.MergedObservation{Time: t, PriceA: p.Price, PriceB: pb})
		}
	}
	return merged
}

// Adjuster removes the reference series' linear influence from a target series.
type Adjuster struct {
	Estimator Estimator
}

// NewAdjuster creates an Adjuster using the given degenerate-input policy.
func NewAdjuster(policy DegeneratePolicy) *Adjuster {
	return &Adjuster{Estimator: Estimator{Policy: policy}}
}

// Adjust merges target with reference and returns target - slope*reference per joined row.
// An empty join is not an error: the returned Adjustment has no points.
func (a *Adjuster) Adjust(target, reference model.PriceSeries) (*model.Adjustment, error) {
	return a.AdjustObservations(Merge(target, reference))
}

// AdjustObservations applies the regression adjustment to already merged rows.
func (a *Adjuster) AdjustObservations(obs []model.MergedObservation) (*model.Adjustment, error) {
	if len(obs) == 0 {
		return &model.Adjustment{}, nil
	}

	x := make([]float64, len(obs))
	y := make([]float64, len(obs))
	for i, o := range obs {
		x[i] = o.PriceB
		y[i] = o.PriceA
	}

	slope, err := a.Estimator.Slope(x, y)
	if err != nil {
		return nil, fmt.Errorf("estimate slope: %w", err)
	}

	adj := &model.Adjustment{Slope: slope, Points: make([]model.AdjustedPoint, len(obs))}
	for i, o := range obs {
		adj.Points[i] = model.AdjustedPoint{Time: o.Time, Price: o.PriceA - o.PriceB*slope}
	}
	return adj, nil
}

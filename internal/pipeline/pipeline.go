package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"FuturesSentinel/internal/calculator"
	"FuturesSentinel/internal/metrics"
	"FuturesSentinel/internal/model"
	"FuturesSentinel/internal/notifier"
	"FuturesSentinel/internal/store"
)

// Pipeline turns stored trades into a reference-adjusted price series and reports it.
type Pipeline struct {
	Store     store.TradeStore
	Adjuster  *calculator.Adjuster
	Notifier  notifier.Notifier
	Metrics   *metrics.Registry
	Target    string
	Reference string

	NewID func() string
	Now   func() time.Time
}

// New creates a Pipeline adjusting target for reference. n and m may be nil.
func New(st store.TradeStore, adj *calculator.Adjuster, n notifier.Notifier, m *metrics.Registry, target, reference string) *Pipeline {
	if adj == nil {
		adj = calculator.NewAdjuster(calculator.PolicyReject)
	}
	return &Pipeline{
		Store:     st,
		Adjuster:  adj,
		Notifier:  n,
		Metrics:   m,
		Target:    store.NormalizeSymbol(target),
		Reference: store.NormalizeSymbol(reference),
		NewID:     uuid.NewString,
		Now:       time.Now,
	}
}

// RunFromStore loads both series from the store and runs the regression.
func (p *Pipeline) RunFromStore(ctx context.Context) (*model.RegressionReport, error) {
	target, err := p.Store.ReadAll(ctx, p.Target)
	if err != nil {
		p.Metrics.RegressionRun("error")
		return nil, fmt.Errorf("load target series: %w", err)
	}
	reference, err := p.Store.ReadAll(ctx, p.Reference)
	if err != nil {
		p.Metrics.RegressionRun("error")
		return nil, fmt.Errorf("load reference series: %w", err)
	}
	return p.RunRegression(ctx, target, reference)
}

// RunRegression adjusts target for its correlation with reference and reports the result.
// An empty trades table yields a report with Empty set and no error.
func (p *Pipeline) RunRegression(ctx context.Context, target, reference model.PriceSeries) (*model.RegressionReport, error) {
	report := &model.RegressionReport{
		RunID:       p.NewID(),
		Target:      p.Target,
		Reference:   p.Reference,
		GeneratedAt: p.Now().UTC(),
	}
	if target.Symbol != "" {
		report.Target = target.Symbol
	}
	if reference.Symbol != "" {
		report.Reference = reference.Symbol
	}
	logger := log.With().Str("run_id", report.RunID).Str("target", report.Target).Str("reference", report.Reference).Logger()

	rows, err := p.Store.CountRows(ctx, "")
	if err != nil {
		p.Metrics.StoreError("count")
		p.Metrics.RegressionRun("error")
		return nil, fmt.Errorf("count trades: %w", err)
	}
	report.TableRows = rows

	if rows == 0 {
		report.Empty = true
		logger.Info().Msg("table is empty")
		p.Metrics.RegressionRun("empty")
		p.deliver(ctx, report)
		return report, nil
	}

	merged := calculator.Merge(target, reference)
	report.Observations = len(merged)

	adj, err := p.Adjuster.AdjustObservations(merged)
	if err != nil {
		logger.Warn().Err(err).Int("observations", len(merged)).Msg("regression failed")
		p.Metrics.RegressionRun("error")
		return nil, err
	}
	report.Adjustment = adj

	if n := adj.Len(); n > 0 {
		last := adj.Points[n-1].Price
		p.Metrics.Regression(adj.Slope, last)
		logger.Info().Int64("rows", rows).Int("observations", n).Float64("slope", adj.Slope).Float64("last_adjusted", last).Msg("regression complete")
	} else {
		logger.Info().Int64("rows", rows).Msg("no overlapping timestamps")
	}
	p.Metrics.RegressionRun("ok")
	p.deliver(ctx, report)
	return report, nil
}

func (p *Pipeline) deliver(ctx context.Context, report *model.RegressionReport) {
	if p.Notifier == nil {
		return
	}
	if err := p.Notifier.Notify(ctx, notifier.FormatRegressionReport(report)); err != nil {
		log.Error().Err(err).Str("run_id", report.RunID).Msg("send regression report")
	}
}

package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"FuturesSentinel/internal/metrics"
	"FuturesSentinel/internal/notifier"
	"FuturesSentinel/internal/pipeline"
	"FuturesSentinel/internal/store"
)

// Scheduler runs the retention sweep and the regression pipeline on cron schedules.
type Scheduler struct {
	Cron      *cron.Cron
	Store     store.TradeStore
	Pipeline  *pipeline.Pipeline
	Notifier  notifier.Notifier
	Metrics   *metrics.Registry
	Retention time.Duration
	Ctx       context.Context

	// NotifyPrune sends a message after every sweep that deleted rows.
	NotifyPrune bool
	Now         func() time.Time
}

// NewScheduler creates a new Scheduler. n and m may be nil.
func NewScheduler(ctx context.Context, st store.TradeStore, p *pipeline.Pipeline, n notifier.Notifier, m *metrics.Registry, retention time.Duration) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Store:     st,
		Pipeline:  p,
		Notifier:  n,
		Metrics:   m,
		Retention: retention,
		Ctx:       ctx,
		Now:       time.Now,
	}
}

// RegisterAll registers the prune and regression jobs. An empty schedule disables that job.
func (s *Scheduler) RegisterAll(pruneCron, regressionCron string) error {
	if pruneCron != "" {
		if _, err := s.Cron.AddFunc(pruneCron, s.pruneTask); err != nil {
			return fmt.Errorf("register prune task: %w", err)
		}
	}
	if regressionCron != "" && s.Pipeline != nil {
		if _, err := s.Cron.AddFunc(regressionCron, s.regressionTask); err != nil {
			return fmt.Errorf("register regression task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// Prune deletes trades older than the retention window and returns how many were removed.
func (s *Scheduler) Prune(ctx context.Context) (int64, time.Time, error) {
	started := time.Now()
	defer s.Metrics.ObserveJob("prune", started)

	cutoff := s.Now().Add(-s.Retention)
	n, err := s.Store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.Metrics.StoreError("delete")
		return 0, cutoff, fmt.Errorf("prune trades: %w", err)
	}
	s.Metrics.Pruned(n)
	log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("old trades deleted")
	return n, cutoff, nil
}

func (s *Scheduler) pruneTask() {
	n, cutoff, err := s.Prune(s.Ctx)
	if err != nil {
		log.Error().Err(err).Msg("prune task")
		return
	}
	if s.NotifyPrune && n > 0 {
		s.trySend(notifier.FormatPruneResult(n, cutoff))
	}
}

func (s *Scheduler) regressionTask() {
	started := time.Now()
	defer s.Metrics.ObserveJob("regression", started)

	if _, err := s.Pipeline.RunFromStore(s.Ctx); err != nil {
		log.Error().Err(err).Msg("regression task")
		s.trySend(notifier.FormatFailure("Regression", err))
	}
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd, _, _ := strings.Cut(strings.ToLower(strings.Fields(command + " /")[0]), "@")
	switch cmd {
	case "/residual":
		if s.Pipeline == nil {
			return "Regression is not configured."
		}
		// The pipeline delivers its own report.
		if _, err := s.Pipeline.RunFromStore(ctx); err != nil {
			return notifier.FormatFailure("Regression", err)
		}
		return ""
	case "/count":
		n, err := s.Store.CountRows(ctx, "")
		if err != nil {
			return notifier.FormatFailure("Count", err)
		}
		return notifier.FormatRowCount(tableName(s.Store), n)
	case "/prune":
		n, cutoff, err := s.Prune(ctx)
		if err != nil {
			return notifier.FormatFailure("Prune", err)
		}
		return notifier.FormatPruneResult(n, cutoff)
	default:
		return "Available commands:\n• /residual\n• /count\n• /prune"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(s.Ctx, text); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

func tableName(st store.TradeStore) string {
	if t, ok := st.(interface{ Table() string }); ok {
		return t.Table()
	}
	return "trades"
}

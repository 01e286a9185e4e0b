package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"FuturesSentinel/internal/config"
	"FuturesSentinel/internal/metrics"
	"FuturesSentinel/internal/monitor"
	"FuturesSentinel/internal/notifier"
	"FuturesSentinel/internal/pipeline"
	"FuturesSentinel/internal/scheduler"
	"FuturesSentinel/internal/stream"
)

var (
	runNotifyPrune  bool
	runRegressStart bool
)

// runCmd streams trades and runs the scheduled jobs until interrupted
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Stream trades, monitor prices and run scheduled jobs",
	RunE:  runSentinel,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNotifyPrune, "notify-prune", false, "Send a message after each sweep that deleted rows")
	runCmd.Flags().BoolVar(&runRegressStart, "regress-on-start", os.Getenv("RUN_ON_START") == "true", "Run the regression once at startup (env RUN_ON_START)")
}

func runSentinel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info().Str("table", cfg.Database.Table).Strs("symbols", cfg.Stream.Symbols).Msg("FuturesSentinel starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := metrics.NewRegistry()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := reg.Serve(ctx, cfg.Metrics.Addr, st.Ping); err != nil {
				log.Error().Err(err).Msg("metrics listener")
			}
		}()
	}

	direct, tn := newNotifier(cfg)
	queue := notifier.NewQueue(direct, 64)
	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		queue.Run(ctx)
	}()
	// Runs after the scheduler has stopped, so its last reports are flushed.
	defer func() {
		stop()
		<-queueDone
	}()

	mon := restoreMonitor(cfg)
	defer saveMonitor(cfg, mon)

	adj, err := newAdjuster(cfg)
	if err != nil {
		return err
	}
	pipe := pipeline.New(st, adj, queue, reg, cfg.Regression.Target, cfg.Regression.Reference)

	sched := scheduler.NewScheduler(ctx, st, pipe, queue, reg, cfg.Database.Retention)
	sched.NotifyPrune = runNotifyPrune
	if err := sched.RegisterAll(cfg.Schedule.PruneCron, cfg.Schedule.RegressionCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil && cfg.Telegram.Polling {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if runRegressStart {
		go func() {
			if _, err := pipe.RunFromStore(ctx); err != nil {
				log.Error().Err(err).Msg("startup regression")
			}
		}()
	}

	ingestor := stream.NewIngestor(st, mon, queue, reg)
	client := stream.NewBinanceClient(cfg.Stream.URL, cfg.Stream.Symbols, cfg.Stream.ReconnectDelay)

	log.Info().Msg("FuturesSentinel is running. Press Ctrl+C to stop.")
	err = client.Run(ctx, ingestor.HandleTrade)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("shutdown signal received, stopping")
		return nil
	}
	return err
}

func restoreMonitor(cfg *config.Config) *monitor.PriceMonitor {
	mon := monitor.New(cfg.Monitor.Symbol, cfg.Monitor.ThresholdPct)
	if cfg.Monitor.StateFile == "" {
		return mon
	}
	state, err := monitor.LoadState(cfg.Monitor.StateFile)
	if err != nil {
		log.Warn().Err(err).Str("file", cfg.Monitor.StateFile).Msg("load monitor state")
		return mon
	}
	if mon.Restore(state) {
		log.Info().Float64("last_price", state.LastPrice).Msg("monitor state restored")
	}
	return mon
}

func saveMonitor(cfg *config.Config, mon *monitor.PriceMonitor) {
	if cfg.Monitor.StateFile == "" {
		return
	}
	if err := monitor.SaveState(cfg.Monitor.StateFile, mon.Snapshot()); err != nil {
		log.Error().Err(err).Msg("save monitor state")
	}
}

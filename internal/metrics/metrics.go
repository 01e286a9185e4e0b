package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry holds the sentinel's Prometheus collectors.
// All recording methods are safe to call on a nil *Registry.
type Registry struct {
	reg *prometheus.Registry

	TradesIngested *prometheus.CounterVec
	TradesRejected prometheus.Counter
	StoreErrors    *prometheus.CounterVec
	PriceAlerts    *prometheus.CounterVec
	RowsPruned     prometheus.Counter
	RegressionRuns *prometheus.CounterVec
	LastSlope      prometheus.Gauge
	LastResidual   prometheus.Gauge
	JobDuration    *prometheus.HistogramVec
}

// NewRegistry creates and registers every collector on a private registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		TradesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_trades_ingested_total",
			Help: "Trades persisted from the stream, by symbol",
		}, []string{"symbol"}),
		TradesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_trades_rejected_total",
			Help: "Stream messages that could not be parsed as trades",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_store_errors_total",
			Help: "Trade store failures, by operation",
		}, []string{"op"}),
		PriceAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_price_alerts_total",
			Help: "Price-change notifications emitted, by symbol",
		}, []string{"symbol"}),
		RowsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_rows_pruned_total",
			Help: "Trades removed by the retention sweep",
		}),
		RegressionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_regression_runs_total",
			Help: "Regression pipeline runs, by result",
		}, []string{"result"}),
		LastSlope: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_regression_slope",
			Help: "Slope of the most recent regression",
		}),
		LastResidual: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_adjusted_price",
			Help: "Most recent adjusted (residual) target price",
		}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_job_duration_seconds",
			Help:    "Duration of scheduled jobs",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}, []string{"job"}),
	}
	r.reg.MustRegister(r.TradesIngested, r.TradesRejected, r.StoreErrors, r.PriceAlerts,
		r.RowsPruned, r.RegressionRuns, r.LastSlope, r.LastResidual, r.JobDuration)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) TradeIngested(symbol string) {
	if r != nil {
		r.TradesIngested.WithLabelValues(symbol).Inc()
	}
}

func (r *Registry) TradeRejected() {
	if r != nil {
		r.TradesRejected.Inc()
	}
}

func (r *Registry) StoreError(op string) {
	if r != nil {
		r.StoreErrors.WithLabelValues(op).Inc()
	}
}

func (r *Registry) PriceAlert(symbol string) {
	if r != nil {
		r.PriceAlerts.WithLabelValues(symbol).Inc()
	}
}

func (r *Registry) Pruned(n int64) {
	if r != nil {
		r.RowsPruned.Add(float64(n))
	}
}

// RegressionRun records a pipeline outcome: "ok", "empty" or "error".
func (r *Registry) RegressionRun(result string) {
	if r != nil {
		r.RegressionRuns.WithLabelValues(result).Inc()
	}
}

// Regression records the latest slope and last residual value.
func (r *Registry) Regression(slope, lastResidual float64) {
	if r != nil {
		r.LastSlope.Set(slope)
		r.LastResidual.Set(lastResidual)
	}
}

// ObserveJob records how long a scheduled job took.
func (r *Registry) ObserveJob(job string, started time.Time) {
	if r != nil {
		r.JobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
	}
}

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// Router serves /metrics and /healthz.
func (r *Registry) Router(health HealthFunc) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(req.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return router
}

// Serve listens on addr until ctx is cancelled.
func (r *Registry) Serve(ctx context.Context, addr string, health HealthFunc) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Router(health),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

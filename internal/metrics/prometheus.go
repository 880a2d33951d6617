package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"regime-signal-bot/internal/logger"
)

// Recorder collects bot counters. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	reg *prometheus.Registry

	cycles      *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	dispatched  *prometheus.CounterVec
	sentiment   *prometheus.CounterVec
	hysteresis  *prometheus.CounterVec
	cycleTiming prometheus.Histogram
}

// New registers the bot metrics on a private registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_cycles_total",
				Help: "Invocations by result status code",
			},
			[]string{"status"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_asset_outcomes_total",
				Help: "Per-asset analysis outcomes by bucket",
			},
			[]string{"bucket"},
		),
		dispatched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_messages_total",
				Help: "Outbound messages by kind and result",
			},
			[]string{"kind", "result"},
		),
		sentiment: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_sentiment_lookups_total",
				Help: "Sentiment cache lookups by result",
			},
			[]string{"result"},
		),
		hysteresis: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbot_hysteresis_runs_total",
				Help: "Hysteresis loop terminations by result",
			},
			[]string{"result"},
		),
		cycleTiming: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signalbot_cycle_duration_seconds",
				Help:    "Duration of a full scan cycle",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
	}
}

func (r *Recorder) RecordCycle(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(status).Inc()
	r.cycleTiming.Observe(d.Seconds())
}

func (r *Recorder) RecordOutcome(bucket string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(bucket).Inc()
}

// RecordMessage counts one outbound message; kind is signal, report or
// digest.
func (r *Recorder) RecordMessage(kind string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.dispatched.WithLabelValues(kind, result).Inc()
}

func (r *Recorder) RecordSentiment(result string) {
	if r == nil {
		return
	}
	r.sentiment.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordHysteresis(result string) {
	if r == nil {
		return
	}
	r.hysteresis.WithLabelValues(result).Inc()
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.reg
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.Gatherer(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

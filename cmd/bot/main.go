package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/metrics"
	"regime-signal-bot/internal/runner"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	cfg, err := initializeSystem(*configPath)
	if err != nil {
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = logger.Shutdown(shutdownCtx)
	}()

	var m *metrics.Recorder
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.ErrorWithErr(ctx, "Metrics server stopped", err)
			}
		}()
	}

	r, cleanup, err := buildRunner(ctx, cfg, m)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to build runner", err)
		return
	}
	defer cleanup()

	logger.Info(ctx, "Bot started",
		"version", cfg.Params.Version,
		"mode", cfg.Mode,
		"data_source", cfg.DataSource,
		"operating_mode", cfg.OperatingMode,
		"schedule", cfg.Schedule,
		"tracing", logger.IsTracingEnabled(),
	)

	if *once || cfg.Schedule == "" {
		invoke(ctx, r)
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() { invoke(ctx, r) }); err != nil {
		logger.ErrorWithErr(ctx, "Invalid schedule", err, "schedule", cfg.Schedule)
		return
	}
	c.Start()
	logger.Info(ctx, "Scheduler started")

	<-ctx.Done()
	logger.Info(ctx, "Shutting down...")
	// wait for a cycle in flight to finish
	<-c.Stop().Done()
	logger.Info(ctx, "Scheduler stopped")
}

func invoke(ctx context.Context, r *runner.Runner) {
	res := r.Invoke(ctx)
	switch {
	case res.StatusCode == 200:
		logger.Info(ctx, "Invocation finished", "status", res.StatusCode, "cycle_id", res.CycleID, "body", res.Body)
	case errors.Is(ctx.Err(), context.Canceled):
		logger.Warn(ctx, "Invocation interrupted by shutdown", "status", res.StatusCode)
	default:
		logger.Warn(ctx, "Invocation did not complete", "status", res.StatusCode, "body", res.Body)
	}
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"regime-signal-bot/internal/dispatch"
	"regime-signal-bot/internal/engine"
	"regime-signal-bot/internal/engine/engineobs"
	"regime-signal-bot/internal/exchange"
	"regime-signal-bot/internal/exchange/exchangeobs"
	"regime-signal-bot/internal/hysteresis"
	"regime-signal-bot/internal/interfaces"
	"regime-signal-bot/internal/journal"
	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/metrics"
	"regime-signal-bot/internal/notify"
	"regime-signal-bot/internal/notify/notifyobs"
	"regime-signal-bot/internal/runner"
	"regime-signal-bot/internal/schedule"
	"regime-signal-bot/internal/sentiment"
	"regime-signal-bot/internal/store"
)

// initializeSystem loads .env, the config and the logger
func initializeSystem(path string) (*store.Config, error) {
	_ = godotenv.Load()

	cfg, err := store.LoadConfig(path)
	if err != nil {
		// logger is not configured yet; fall back to stderr
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	if err := logger.Init(cfg.Params.Version); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// compressOldLogs gzips journal files past the retention period
func compressOldLogs(ctx context.Context, j *journal.Journal, days int) {
	if err := j.CompressOlder(days); err != nil {
		logger.Warn(ctx, "Failed to compress old journal files", "error", err)
	}
}

// initializeMarket returns the market data provider with observability
func initializeMarket(ctx context.Context, cfg *store.Config) exchange.MarketData {
	var md exchange.MarketData
	if cfg.DataSource == "LIVE" {
		logger.Info(ctx, "Using LIVE market data", "base_url", cfg.Exchange.BaseURL)
		md = exchange.NewBinance(exchange.BinanceOptions{
			BaseURL:        cfg.Exchange.BaseURL,
			Timeout:        cfg.Exchange.Timeout,
			RequestsPerSec: cfg.Exchange.RequestsPerSec,
			Burst:          cfg.Exchange.Burst,
		})
	} else {
		logger.Info(ctx, "Using STATIC mock market data for testing")
		md = exchange.NewStatic()
	}
	return exchangeobs.Wrap(md)
}

// initializeNotifier returns the Telegram notifier, or the log notifier in DRY_RUN
func initializeNotifier(ctx context.Context, cfg *store.Config) (notify.Notifier, error) {
	if cfg.Mode == store.ModeDryRun {
		logger.Warn(ctx, "Running in DRY_RUN mode - messages will be logged, not sent")
		return notifyobs.Wrap(notify.NewLog()), nil
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return notifyobs.Wrap(tg), nil
}

// initializeRedis returns a client when any component is configured for Redis
func initializeRedis(ctx context.Context, cfg *store.Config) *redis.Client {
	if cfg.Sentiment.Store != "REDIS" && cfg.Digest.ClockStore != "REDIS" {
		return nil
	}
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		logger.Warn(ctx, "Redis ping failed, continuing", "addr", cfg.Redis.Addr, "error", err)
	}
	return cli
}

// initializeSentiment returns the sentiment cache, or nil when disabled
func initializeSentiment(ctx context.Context, cfg *store.Config, rdb *redis.Client, m *metrics.Recorder) interfaces.SentimentScorer {
	if !cfg.Sentiment.Enabled {
		logger.Info(ctx, "Sentiment disabled")
		return nil
	}

	var st sentiment.Store
	switch cfg.Sentiment.Store {
	case "REDIS":
		st = sentiment.NewRedisStore(rdb, cfg.Redis.Prefix)
	case "MEMORY":
		st = sentiment.NewMemoryStore()
	default:
		st = sentiment.NewFileStore(cfg.Sentiment.FilePath)
	}

	feeds := make([]sentiment.Feed, len(cfg.Sentiment.Feeds))
	for i, f := range cfg.Sentiment.Feeds {
		feeds[i] = sentiment.Feed{Name: f.Name, URL: f.URL, Selector: f.Selector}
	}

	logger.Info(ctx, "Sentiment enabled", "store", cfg.Sentiment.Store, "feeds", len(feeds), "ttl", cfg.Sentiment.TTL.String())
	return sentiment.NewCache(st, sentiment.NewScraper(feeds, cfg.Sentiment.Timeout), cfg.Sentiment.TTL, cfg.Sentiment.MaxHeadlines,
		sentiment.WithMetrics(m),
		sentiment.WithTimeout(cfg.Sentiment.Timeout),
	)
}

// initializeEngine returns the analysis engine with observability
func initializeEngine(cfg *store.Config, md exchange.MarketData, s interfaces.SentimentScorer, m *metrics.Recorder) interfaces.Engine {
	return engineobs.Wrap(engine.New(cfg, md, s, m))
}

func initializeScalper(cfg *store.Config, md exchange.MarketData) *hysteresis.Trigger {
	h := cfg.Hysteresis
	return hysteresis.New(md, hysteresis.Config{
		Symbol:    h.Symbol,
		Timeframe: h.Timeframe,
		Limit:     h.Limit,
		MAPeriod:  h.MAPeriod,
		RSIPeriod: h.RSIPeriod,
		Thresholds: hysteresis.Thresholds{
			ArmBelow:    h.ArmBelow,
			DisarmAbove: h.DisarmAbove,
			FireAbove:   h.FireAbove,
		},
		Duration:      h.Duration,
		PollInterval:  h.PollInterval,
		TakeProfitPct: h.TakeProfit,
		StopLossPct:   h.StopLoss,
		Version:       cfg.Params.Version,
	})
}

func initializeGate(cfg *store.Config, rdb *redis.Client) *schedule.Gate {
	if !cfg.Digest.Enabled {
		return nil
	}
	var cs schedule.ClockStore
	if cfg.Digest.ClockStore == "REDIS" {
		cs = schedule.NewRedisClockStore(rdb, cfg.Redis.Prefix)
	} else {
		cs = schedule.NewFileClockStore(cfg.Digest.ClockPath)
	}
	return schedule.NewGate(cs, cfg.Digest.Interval)
}

// buildRunner wires every component into one runner
func buildRunner(ctx context.Context, cfg *store.Config, m *metrics.Recorder) (*runner.Runner, func(), error) {
	md := initializeMarket(ctx, cfg)

	n, err := initializeNotifier(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	rdb := initializeRedis(ctx, cfg)
	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
	}

	j := journal.New(cfg.Journal.Dir)
	compressOldLogs(ctx, j, cfg.Journal.RetentionDays)

	s := initializeSentiment(ctx, cfg, rdb, m)

	deps := runner.Deps{
		Config:     cfg,
		Market:     md,
		Engine:     initializeEngine(cfg, md, s, m),
		Dispatcher: dispatch.New(n, cfg.Params.TopK, cfg.Params.Version, cfg.Scan.Quote, m),
		Scalper:    initializeScalper(cfg, md),
		Journal:    j,
		Metrics:    m,
	}
	// the digest needs sentiment scores
	if s != nil {
		deps.Sentiment = s
		deps.Gate = initializeGate(cfg, rdb)
	}
	return runner.New(deps), cleanup, nil
}

package engine

import (
	"regime-signal-bot/internal/exchange"
	"regime-signal-bot/internal/interfaces"
	"regime-signal-bot/internal/metrics"
	"regime-signal-bot/internal/store"
)

// New builds the decision engine. s may be nil when sentiment is disabled.
func New(cfg *store.Config, md exchange.MarketData, s interfaces.SentimentScorer, m *metrics.Recorder) interfaces.Engine {
	return newEngine(cfg, md, s, m)
}

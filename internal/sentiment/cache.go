package sentiment

import (
	"context"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/metrics"
	"regime-signal-bot/internal/types"
)

const DefaultTTL = 6 * time.Hour

// Cache serves per-symbol sentiment scores, refreshing from headlines when
// the stored entry has expired. Concurrent lookups for one symbol share a
// single refresh.
type Cache struct {
	store        Store
	source       HeadlineSource
	scorer       *Scorer
	ttl          time.Duration
	maxHeadlines int
	timeout      time.Duration
	metrics      *metrics.Recorder

	now   func() time.Time
	group singleflight.Group
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Cache) { c.metrics = r }
}

// WithTimeout bounds one refresh (headline fetch plus store write).
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

func NewCache(store Store, source HeadlineSource, ttl time.Duration, maxHeadlines int, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxHeadlines <= 0 {
		maxHeadlines = 20
	}
	c := &Cache{
		store:        store,
		source:       source,
		scorer:       NewScorer(),
		ttl:          ttl,
		maxHeadlines: maxHeadlines,
		now:          time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Score returns the sentiment for symbol in [-1, 1]. Every failure path
// yields 0 (neutral).
func (c *Cache) Score(ctx context.Context, symbol string) float64 {
	key := strings.ToUpper(symbol)
	v, _, _ := c.group.Do(key, func() (any, error) {
		return c.lookup(ctx, key), nil
	})
	return v.(float64)
}

func (c *Cache) lookup(ctx context.Context, symbol string) float64 {
	now := c.now()

	entry, ok, err := c.store.Get(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "Sentiment store read failed", "symbol", symbol, "error", err)
	} else if ok && entry.Fresh(now) {
		c.metrics.RecordSentiment("hit")
		return entry.Score
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var score float64
	headlines, err := c.source.Headlines(ctx, symbol, c.maxHeadlines)
	if err != nil {
		// cached as neutral so an unavailable source is not hit again until the TTL passes
		logger.Warn(ctx, "Headline fetch failed, using neutral sentiment", "symbol", symbol, "error", err)
		c.metrics.RecordSentiment("error")
	} else {
		score = clamp(c.scorer.Score(headlines), -1, 1)
		c.metrics.RecordSentiment("miss")
		logger.Debug(ctx, "Sentiment refreshed", "symbol", symbol, "score", score, "headlines", len(headlines))
	}

	fresh := types.SentimentEntry{Symbol: symbol, Score: score, WrittenAt: now, TTL: c.ttl}
	if err := c.store.Put(ctx, fresh); err != nil {
		logger.Warn(ctx, "Sentiment store write failed", "symbol", symbol, "error", err)
	}
	return score
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

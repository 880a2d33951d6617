package exchange

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"regime-signal-bot/internal/types"
)

// Static generates synthetic market data for DRY_RUN with
// data_source STATIC. Each symbol follows its own seeded random walk, and
// every Candles call advances the walk so polling loops see movement.
type Static struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  map[string]int64
	now    func() time.Time
}

var staticUniverse = map[string]float64{
	"BTC/USDT":  64000,
	"ETH/USDT":  3100,
	"SOL/USDT":  145,
	"BNB/USDT":  590,
	"XRP/USDT":  0.52,
	"DOGE/USDT": 0.15,
	"ADA/USDT":  0.45,
	"AVAX/USDT": 34,
	"LINK/USDT": 14.5,
	"USDC/USDT": 1.0,
	"PEPE/USDT": 0.0000112,
	"ETH/BTC":   0.048,
}

func NewStatic() *Static {
	prices := make(map[string]float64, len(staticUniverse))
	for k, v := range staticUniverse {
		prices[k] = v
	}
	return &Static{prices: prices, calls: make(map[string]int64), now: time.Now}
}

func seedFor(parts ...string) int64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return int64(h.Sum64())
}

func (s *Static) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s candles: %v: %w", symbol, err, ErrDataFetch)
	}
	step, err := timeframeDuration(timeframe)
	if err != nil {
		return nil, fmt.Errorf("%s candles: %v: %w", symbol, err, ErrDataFetch)
	}

	s.mu.Lock()
	base, ok := s.prices[symbol]
	key := symbol + "|" + timeframe
	call := s.calls[key]
	s.calls[key] = call + 1
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s: %w", symbol, ErrDataFetch)
	}

	rng := rand.New(rand.NewSource(seedFor(symbol, timeframe) + call))
	end := s.now().Truncate(step)
	cs := make([]types.Candle, 0, limit)
	c := base
	for i := limit; i > 0; i-- {
		open := c
		c = c * (1 + (rng.Float64()-0.5)*0.01)
		hi := max(open, c) * (1 + rng.Float64()*0.002)
		lo := min(open, c) * (1 - rng.Float64()*0.002)
		cs = append(cs, types.Candle{
			Ts:    end.Add(-time.Duration(i-1) * step).UnixMilli(),
			Open:  open,
			High:  hi,
			Low:   lo,
			Close: c,
			Vol:   rng.Float64() * 1000,
		})
	}
	return cs, nil
}

func (s *Static) Tickers(ctx context.Context) ([]types.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tickers: %v: %w", err, ErrDataFetch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Ticker, 0, len(s.prices))
	for symbol, price := range s.prices {
		rng := rand.New(rand.NewSource(seedFor(symbol, "24h")))
		base, quote := SplitSymbol(symbol)
		out = append(out, types.Ticker{
			Symbol:      symbol,
			Base:        base,
			Quote:       quote,
			LastPrice:   price,
			ChangePct:   (rng.Float64() - 0.5) * 12,
			QuoteVolume: rng.Float64() * 1e9,
		})
	}
	return out, nil
}

// PriceDecimals mimics exchange tick sizes: finer ticks for cheaper assets.
func (s *Static) PriceDecimals(_ context.Context, symbol string) (int32, error) {
	s.mu.Lock()
	price, ok := s.prices[symbol]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown symbol %s: %w", symbol, ErrDataFetch)
	}
	switch {
	case price >= 1000:
		return 2, nil
	case price >= 10:
		return 3, nil
	case price >= 0.1:
		return 4, nil
	case price >= 0.001:
		return 6, nil
	default:
		return 8, nil
	}
}

func timeframeDuration(tf string) (time.Duration, error) {
	if len(tf) < 2 {
		return 0, fmt.Errorf("bad timeframe %q", tf)
	}
	unit := tf[len(tf)-1]
	var n int
	if _, err := fmt.Sscanf(tf[:len(tf)-1], "%d", &n); err != nil || n <= 0 {
		return 0, fmt.Errorf("bad timeframe %q", tf)
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("bad timeframe %q", tf)
	}
}

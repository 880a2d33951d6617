package exchange

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"sync"
	"time"

	"regime-signal-bot/internal/api"
	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/risk"
	"regime-signal-bot/internal/types"
)

// Binance reads public spot market data. Requests share one rate limiter and
// are never retried.
type Binance struct {
	client *api.Client

	mu      sync.Mutex
	markets map[string]market // keyed by "BTC/USDT"
	wire    map[string]string // "BTCUSDT" -> "BTC/USDT"
}

type market struct {
	Base, Quote string
	TickSize    string
	Trading     bool
}

type BinanceOptions struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
}

func NewBinance(opts BinanceOptions) *Binance {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.binance.com"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	return &Binance{
		client: api.NewClient(
			api.WithBaseURL(opts.BaseURL),
			api.WithTimeout(opts.Timeout),
			api.WithRateLimit(opts.RequestsPerSec, opts.Burst),
			api.WithHeader("Accept", "application/json"),
			api.WithLogging(logger.IsDebugEnabled()),
		),
	}
}

// Candles fetches OHLCV bars oldest first.
func (b *Binance) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	params := url.Values{}
	params.Set("symbol", wireSymbol(symbol))
	params.Set("interval", timeframe)
	params.Set("limit", strconv.Itoa(limit))

	resp, err := b.client.GET(ctx, "/api/v3/klines", params)
	if err != nil {
		return nil, fmt.Errorf("%s klines: %v: %w", symbol, err, ErrDataFetch)
	}

	var raw [][]any
	if err := resp.ParseJSON(&raw); err != nil {
		return nil, fmt.Errorf("%s klines: %v: %w", symbol, err, ErrDataFetch)
	}

	candles := make([]types.Candle, 0, len(raw))
	for i, r := range raw {
		if len(r) < 6 {
			return nil, fmt.Errorf("%s klines: row %d has %d fields: %w", symbol, i, len(r), ErrDataFetch)
		}
		ts, _ := r[0].(float64)
		candles = append(candles, types.Candle{
			Ts:    int64(ts),
			Open:  parseFloat(r[1]),
			High:  parseFloat(r[2]),
			Low:   parseFloat(r[3]),
			Close: parseFloat(r[4]),
			Vol:   parseFloat(r[5]),
		})
	}
	return candles, nil
}

type ticker24hr struct {
	Symbol             string `json:"symbol"`
	PriceChangePercent string `json:"priceChangePercent"`
	LastPrice          string `json:"lastPrice"`
	QuoteVolume        string `json:"quoteVolume"`
}

// Tickers returns 24h statistics for every trading spot pair.
func (b *Binance) Tickers(ctx context.Context) ([]types.Ticker, error) {
	if err := b.loadMarkets(ctx, false); err != nil {
		return nil, err
	}

	resp, err := b.client.GET(ctx, "/api/v3/ticker/24hr", nil)
	if err != nil {
		return nil, fmt.Errorf("tickers: %v: %w", err, ErrDataFetch)
	}
	var raw []ticker24hr
	if err := resp.ParseJSON(&raw); err != nil {
		return nil, fmt.Errorf("tickers: %v: %w", err, ErrDataFetch)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]types.Ticker, 0, len(raw))
	for _, t := range raw {
		symbol, ok := b.wire[t.Symbol]
		if !ok {
			continue
		}
		m := b.markets[symbol]
		if !m.Trading {
			continue
		}
		out = append(out, types.Ticker{
			Symbol:      symbol,
			Base:        m.Base,
			Quote:       m.Quote,
			LastPrice:   parseFloat(t.LastPrice),
			ChangePct:   parseFloat(t.PriceChangePercent),
			QuoteVolume: parseFloat(t.QuoteVolume),
		})
	}
	return out, nil
}

// PriceDecimals derives the price precision from the PRICE_FILTER tick size.
func (b *Binance) PriceDecimals(ctx context.Context, symbol string) (int32, error) {
	if err := b.loadMarkets(ctx, false); err != nil {
		return 0, err
	}
	b.mu.Lock()
	m, ok := b.markets[symbol]
	b.mu.Unlock()
	if !ok {
		// the listing may be newer than our cache
		if err := b.loadMarkets(ctx, true); err != nil {
			return 0, err
		}
		b.mu.Lock()
		m, ok = b.markets[symbol]
		b.mu.Unlock()
		if !ok {
			return 0, fmt.Errorf("unknown symbol %s: %w", symbol, ErrDataFetch)
		}
	}
	return risk.DecimalPlaces(m.TickSize), nil
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
		Filters    []struct {
			FilterType string `json:"filterType"`
			TickSize   string `json:"tickSize"`
		} `json:"filters"`
	} `json:"symbols"`
}

func (b *Binance) loadMarkets(ctx context.Context, force bool) error {
	b.mu.Lock()
	loaded := b.markets != nil
	b.mu.Unlock()
	if loaded && !force {
		return nil
	}

	resp, err := b.client.GET(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return fmt.Errorf("exchange info: %v: %w", err, ErrDataFetch)
	}
	var info exchangeInfo
	if err := resp.ParseJSON(&info); err != nil {
		return fmt.Errorf("exchange info: %v: %w", err, ErrDataFetch)
	}

	markets := make(map[string]market, len(info.Symbols))
	wire := make(map[string]string, len(info.Symbols))
	for _, s := range info.Symbols {
		m := market{Base: s.BaseAsset, Quote: s.QuoteAsset, Trading: s.Status == "TRADING"}
		for _, f := range s.Filters {
			if f.FilterType == "PRICE_FILTER" {
				m.TickSize = f.TickSize
			}
		}
		symbol := s.BaseAsset + "/" + s.QuoteAsset
		markets[symbol] = m
		wire[s.Symbol] = symbol
	}

	b.mu.Lock()
	b.markets = markets
	b.wire = wire
	b.mu.Unlock()

	logger.Debug(ctx, "Exchange markets loaded", "count", len(markets))
	return nil
}

// parseFloat returns NaN for anything unparsable so downstream checks fail
// closed.
func parseFloat(val any) float64 {
	switch v := val.(type) {
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case float64:
		return v
	default:
		return math.NaN()
	}
}

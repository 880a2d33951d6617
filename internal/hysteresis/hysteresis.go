package hysteresis

import (
	"context"
	"fmt"
	"time"

	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/risk"
	"regime-signal-bot/internal/ta"
	"regime-signal-bot/internal/types"
)

const Strategy = "HysteresisScalp"

// Thresholds is the RSI latch. The latch arms below ArmBelow, disarms above
// DisarmAbove and fires when armed, RSI is above FireAbove and price is
// above its short average.
type Thresholds struct {
	ArmBelow    float64
	DisarmAbove float64
	FireAbove   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{ArmBelow: 35, DisarmAbove: 60, FireAbove: 35}
}

// State is the latch carried between polls of one loop.
type State struct {
	Armed bool
}

// Step feeds one observation and reports whether the trigger fires.
func (s *State) Step(th Thresholds, rsi, price, shortMA float64) bool {
	if rsi < th.ArmBelow {
		s.Armed = true
	}
	if rsi > th.DisarmAbove {
		s.Armed = false
	}
	return s.Armed && rsi > th.FireAbove && price > shortMA
}

// MarketData is the slice of the exchange the loop polls.
type MarketData interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error)
	PriceDecimals(ctx context.Context, symbol string) (int32, error)
}

type Config struct {
	Symbol        string
	Timeframe     string
	Limit         int
	MAPeriod      int
	RSIPeriod     int
	Thresholds    Thresholds
	Duration      time.Duration
	PollInterval  time.Duration
	TakeProfitPct float64
	StopLossPct   float64
	Version       string
}

type Reason string

const (
	Fired     Reason = "fired"
	TimedOut  Reason = "timeout"
	Cancelled Reason = "cancelled"
)

type Result struct {
	Reason Reason
	Signal *types.Signal
	Polls  int
}

// Trigger runs the bounded polling loop for one asset.
type Trigger struct {
	md  MarketData
	cfg Config

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(md MarketData, cfg Config) *Trigger {
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &Trigger{md: md, cfg: cfg, now: time.Now, after: time.After}
}

// Run polls until the trigger fires, the duration elapses or ctx ends.
// A failed poll is logged and the loop moves on to the next one.
func (t *Trigger) Run(ctx context.Context) (Result, error) {
	var (
		state State
		polls int
	)
	deadline := t.now().Add(t.cfg.Duration)

	logger.Info(ctx, "Hysteresis loop started",
		"symbol", t.cfg.Symbol,
		"timeframe", t.cfg.Timeframe,
		"duration", t.cfg.Duration.String(),
		"poll_interval", t.cfg.PollInterval.String(),
	)

	for {
		if !t.now().Before(deadline) {
			logger.Info(ctx, "Hysteresis loop timed out", "symbol", t.cfg.Symbol, "polls", polls)
			return Result{Reason: TimedOut, Polls: polls}, nil
		}

		polls++
		sig, err := t.poll(ctx, &state)
		if err != nil {
			logger.Warn(ctx, "Hysteresis poll skipped", "symbol", t.cfg.Symbol, "poll", polls, "error", err)
		} else if sig != nil {
			return Result{Reason: Fired, Signal: sig, Polls: polls}, nil
		}

		select {
		case <-ctx.Done():
			return Result{Reason: Cancelled, Polls: polls}, ctx.Err()
		case <-t.after(t.cfg.PollInterval):
		}
	}
}

func (t *Trigger) poll(ctx context.Context, state *State) (*types.Signal, error) {
	candles, err := t.md.Candles(ctx, t.cfg.Symbol, t.cfg.Timeframe, t.cfg.Limit)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	rsi := ta.Last(ta.RSI(closes, t.cfg.RSIPeriod), 0)
	sma := ta.Last(ta.SMA(closes, t.cfg.MAPeriod), 0)
	if !ta.Valid(rsi) || !ta.Valid(sma) {
		return nil, fmt.Errorf("%d bars are not enough for rsi/sma", len(candles))
	}
	price := closes[len(closes)-1]

	wasArmed := state.Armed
	fired := state.Step(t.cfg.Thresholds, rsi, price, sma)
	if state.Armed != wasArmed {
		logger.Debug(ctx, "Hysteresis latch changed", "symbol", t.cfg.Symbol, "armed", state.Armed, "rsi", rsi)
	}
	if !fired {
		return nil, nil
	}

	places, err := t.md.PriceDecimals(ctx, t.cfg.Symbol)
	if err != nil {
		return nil, err
	}
	sig := &types.Signal{
		Symbol:        t.cfg.Symbol,
		Side:          types.Buy,
		Entry:         risk.Round(price, places),
		TakeProfit:    risk.Round(price*(1+t.cfg.TakeProfitPct), places),
		StopLoss:      risk.Round(price*(1-t.cfg.StopLossPct), places),
		Confidence:    rsi,
		Score:         rsi,
		Strategy:      Strategy,
		Source:        Strategy + " v" + t.cfg.Version,
		PriceDecimals: places,
	}
	logger.Signal(ctx, sig.Symbol, string(sig.Side), sig.Strategy, sig.Score, "rsi", rsi, "sma", sma)
	return sig, nil
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"regime-signal-bot/internal/exchange"
	"regime-signal-bot/internal/features"
	"regime-signal-bot/internal/interfaces"
	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/metrics"
	"regime-signal-bot/internal/regime"
	"regime-signal-bot/internal/risk"
	"regime-signal-bot/internal/sentiment"
	"regime-signal-bot/internal/store"
	"regime-signal-bot/internal/strategy"
	"regime-signal-bot/internal/types"
)

type Engine struct {
	cfg       *store.Config
	md        exchange.MarketData
	sentiment interfaces.SentimentScorer
	metrics   *metrics.Recorder

	periods features.Periods
	synth   risk.Synthesizer
}

func newEngine(cfg *store.Config, md exchange.MarketData, s interfaces.SentimentScorer, m *metrics.Recorder) *Engine {
	p := cfg.Params
	return &Engine{
		cfg:       cfg,
		md:        md,
		sentiment: s,
		metrics:   m,
		periods: features.Periods{
			MacroMinBars: p.MacroMinBars,
			MicroMinBars: p.MicroMinBars,
			BaselineMax:  p.BaselineMax,
			RSI:          p.RSIPeriod,
			ATR:          p.ATRPeriod,
			ShortEMA:     p.ShortEMA,
		},
		synth: risk.Synthesizer{
			StopLossMult:    p.Risk.StopLossMult,
			TakeProfitMult:  p.Risk.TakeProfitMult,
			FallbackVolPct:  p.Risk.FallbackVolPct,
			MaxPlausibleVol: p.Risk.MaxPlausibleVol,
		},
	}
}

func status(symbol string, s types.Status, err error) types.Outcome {
	return types.Outcome{Symbol: symbol, Status: s, Err: err}
}

// AnalyzeAsset runs the full decision pipeline for one asset. Panics are
// recovered into AnalysisFailed.
func (e *Engine) AnalyzeAsset(ctx context.Context, symbol string) (out types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			logger.ErrorWithErr(ctx, "Asset analysis panicked", err, "symbol", symbol)
			out = status(symbol, types.StatusAnalysisFailed, err)
		}
	}()

	macro, err := e.md.Candles(ctx, symbol, e.cfg.Scan.MacroTimeframe, e.cfg.Scan.MacroLimit)
	if err != nil {
		logger.Warn(ctx, "Macro candles unavailable", "symbol", symbol, "error", err)
		return status(symbol, types.StatusDataFetchFailed, err)
	}
	micro, err := e.md.Candles(ctx, symbol, e.cfg.Scan.MicroTimeframe, e.cfg.Scan.MicroLimit)
	if err != nil {
		logger.Warn(ctx, "Micro candles unavailable", "symbol", symbol, "error", err)
		return status(symbol, types.StatusDataFetchFailed, err)
	}

	f, err := features.Build(types.AssetSnapshot{Symbol: symbol, Macro: macro, Micro: micro}, e.periods)
	if err != nil {
		if errors.Is(err, features.ErrInsufficientData) {
			logger.Debug(ctx, "Insufficient history", "symbol", symbol, "error", err)
			return status(symbol, types.StatusInsufficientData, err)
		}
		return status(symbol, types.StatusAnalysisFailed, err)
	}

	r := regime.Classify(f.Price, f.Baseline, e.cfg.Params.NeutralBand)
	logger.Debug(ctx, "Features computed",
		"symbol", symbol,
		"regime", string(r),
		"price", f.Price,
		"baseline", f.Baseline,
		"rsi", f.RSI,
		"prev_rsi", f.PrevRSI,
		"atr", f.ATR,
	)

	m, ok := strategy.Evaluate(r, f)
	if !ok {
		return status(symbol, types.StatusOf(r), nil)
	}

	places, err := e.md.PriceDecimals(ctx, symbol)
	if err != nil {
		if errors.Is(err, exchange.ErrDataFetch) {
			return status(symbol, types.StatusDataFetchFailed, err)
		}
		return status(symbol, types.StatusAnalysisFailed, err)
	}

	lv := e.synth.Levels(m.Side, f.Close, f.ATR, f.VolatilityOK, places)
	if lv.Fallback {
		logger.Risk(ctx, symbol, "FALLBACK_VOLATILITY",
			"atr", f.ATR,
			"entry", f.Close,
			"volatility", lv.Volatility,
		)
	}

	sig := types.Signal{
		Symbol:        symbol,
		Side:          m.Side,
		Entry:         lv.Entry,
		StopLoss:      lv.StopLoss,
		TakeProfit:    lv.TakeProfit,
		Confidence:    m.Confidence,
		Score:         m.Confidence,
		Strategy:      m.Strategy,
		Source:        m.Strategy + " v" + e.cfg.Params.Version,
		PriceDecimals: places,
	}

	if blend := e.cfg.Params.Blend; blend.Enabled && e.sentiment != nil {
		mood := e.sentiment.Score(ctx, symbol)
		w := sentiment.Weights{
			Technical:  blend.Weights.Technical,
			Sentiment:  blend.Weights.Sentiment,
			Volatility: blend.Weights.Volatility,
		}
		sig.Score = sentiment.Blend(w, m.Confidence, mood, lv.Volatility, f.Close)
		if sig.Score < blend.ConfidenceThreshold {
			logger.Info(ctx, "Signal below blended threshold",
				"symbol", symbol,
				"strategy", m.Strategy,
				"confidence", m.Confidence,
				"sentiment", mood,
				"score", sig.Score,
				"threshold", blend.ConfidenceThreshold,
			)
			return status(symbol, types.StatusOf(r), nil)
		}
	}

	logger.Info(ctx, "Signal candidate",
		"symbol", symbol,
		"regime", string(r),
		"side", string(sig.Side),
		"strategy", sig.Strategy,
		"confidence", sig.Confidence,
		"score", sig.Score,
		"entry", sig.EntryString(),
	)
	return types.Outcome{Symbol: symbol, Signal: &sig}
}

// Cycle analyzes every symbol concurrently and joins once all have an
// outcome. Each task writes only its own slot so scan order is kept.
func (e *Engine) Cycle(ctx context.Context, symbols []string) types.CycleResult {
	res := types.CycleResult{
		ID:       uuid.NewString(),
		Outcomes: make([]types.Outcome, len(symbols)),
		Ledger:   types.NewLedger(),
	}
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(max(1, e.cfg.Scan.Concurrency))
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			res.Outcomes[i] = e.AnalyzeAsset(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range res.Outcomes {
		if o.IsSignal() {
			res.Signals = append(res.Signals, *o.Signal)
			e.metrics.RecordOutcome("Signal")
			continue
		}
		res.Ledger.Add(o.Status, o.Symbol)
		e.metrics.RecordOutcome(string(o.Status))
	}

	logger.Info(ctx, "Cycle analysis complete",
		"cycle_id", res.ID,
		"assets", len(symbols),
		"signals", len(res.Signals),
		"analyzed", res.Ledger.Analyzed(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

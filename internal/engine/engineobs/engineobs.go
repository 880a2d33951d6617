package engineobs

import (
	"context"
	"time"

	"regime-signal-bot/internal/interfaces"
	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/trace"
	"regime-signal-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) AnalyzeAsset(ctx context.Context, symbol string) types.Outcome {
	ctx, span := trace.StartSpan(ctx, "engine.AnalyzeAsset")
	defer span.End()

	start := time.Now()
	out := oe.engine.AnalyzeAsset(ctx, symbol)

	if out.Err != nil && out.Status == types.StatusAnalysisFailed {
		logger.ErrorWithErrSkip(ctx, 1, "Asset analysis failed", out.Err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return out
	}

	logger.DebugSkip(ctx, 1, "Asset analyzed",
		"symbol", symbol,
		"signal", out.IsSignal(),
		"status", string(out.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (oe *observableEngine) Cycle(ctx context.Context, symbols []string) types.CycleResult {
	ctx, span := trace.StartSpan(ctx, "engine.Cycle")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting scan cycle",
		"assets", len(symbols),
	)

	res := oe.engine.Cycle(ctx, symbols)

	logger.InfoSkip(ctx, 1, "Scan cycle completed",
		"cycle_id", res.ID,
		"signals", len(res.Signals),
		"uptrend", len(res.Ledger[types.StatusUptrend]),
		"ranging", len(res.Ledger[types.StatusRanging]),
		"downtrend", len(res.Ledger[types.StatusDowntrend]),
		"insufficient", len(res.Ledger[types.StatusInsufficientData]),
		"fetch_failed", len(res.Ledger[types.StatusDataFetchFailed]),
		"analysis_failed", len(res.Ledger[types.StatusAnalysisFailed]),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

package interfaces

import (
	"context"

	"regime-signal-bot/internal/types"
)

type Engine interface {
	// AnalyzeAsset never fails: every problem is reported as a Status.
	AnalyzeAsset(ctx context.Context, symbol string) types.Outcome
	Cycle(ctx context.Context, symbols []string) types.CycleResult
}

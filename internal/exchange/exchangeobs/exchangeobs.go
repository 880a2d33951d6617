package exchangeobs

import (
	"context"

	"regime-signal-bot/internal/exchange"
	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/trace"
	"regime-signal-bot/internal/types"
)

// observableMarket wraps MarketData with observability (logging & tracing)
type observableMarket struct {
	md exchange.MarketData
}

// Compile-time interface check
var _ exchange.MarketData = (*observableMarket)(nil)

func Wrap(md exchange.MarketData) exchange.MarketData {
	return &observableMarket{md: md}
}

func (om *observableMarket) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Candles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching candles", "symbol", symbol, "timeframe", timeframe, "limit", limit)

	candles, err := om.md.Candles(ctx, symbol, timeframe, limit)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "symbol", symbol, "timeframe", timeframe)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched", "symbol", symbol, "timeframe", timeframe, "count", len(candles))
	return candles, nil
}

func (om *observableMarket) Tickers(ctx context.Context) ([]types.Ticker, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Tickers")
	defer span.End()

	tickers, err := om.md.Tickers(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch tickers", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Tickers fetched", "count", len(tickers))
	return tickers, nil
}

func (om *observableMarket) PriceDecimals(ctx context.Context, symbol string) (int32, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.PriceDecimals")
	defer span.End()

	places, err := om.md.PriceDecimals(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to resolve price precision", err, "symbol", symbol)
		return 0, err
	}
	return places, nil
}

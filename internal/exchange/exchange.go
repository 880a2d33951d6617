package exchange

import (
	"context"
	"errors"
	"strings"

	"regime-signal-bot/internal/types"
)

// ErrDataFetch marks every failure to obtain market data.
var ErrDataFetch = errors.New("market data fetch failed")

// MarketData is the read-only view of a spot exchange. Symbols use the
// "BASE/QUOTE" form.
type MarketData interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error)
	Tickers(ctx context.Context) ([]types.Ticker, error)
	PriceDecimals(ctx context.Context, symbol string) (int32, error)
}

// SplitSymbol splits "BTC/USDT" into its base and quote assets.
func SplitSymbol(symbol string) (base, quote string) {
	base, quote, _ = strings.Cut(symbol, "/")
	return base, quote
}

// wireSymbol converts "BTC/USDT" to the exchange form "BTCUSDT".
func wireSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"regime-signal-bot/internal/exchange"
	"regime-signal-bot/internal/store"
	"regime-signal-bot/internal/types"
)

func line(n int, start, step float64) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		c := start + step*float64(i)
		out[i] = types.Candle{Ts: int64(i), Open: c, High: c + 1, Low: c - 1, Close: c, Vol: 1}
	}
	return out
}

type fakeMarket struct {
	macro map[string][]types.Candle
	micro map[string][]types.Candle
}

func (f *fakeMarket) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	switch symbol {
	case "FAIL/USDT":
		return nil, fmt.Errorf("klines: timeout: %w", exchange.ErrDataFetch)
	case "PANIC/USDT":
		panic("boom")
	}
	if timeframe == "15m" {
		return f.macro[symbol], nil
	}
	return f.micro[symbol], nil
}

func (f *fakeMarket) Tickers(ctx context.Context) ([]types.Ticker, error) {
	return nil, errors.New("not used")
}

func (f *fakeMarket) PriceDecimals(ctx context.Context, symbol string) (int32, error) {
	return 2, nil
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		macro: map[string][]types.Candle{
			"UP/USDT":    line(110, 100, 1),
			"DOWN/USDT":  line(110, 300, -1),
			"FLAT/USDT":  line(110, 100, 0),
			"SHORT/USDT": line(10, 100, 1),
		},
		micro: map[string][]types.Candle{
			"UP/USDT":    line(100, 200, -0.5),
			"DOWN/USDT":  line(100, 150, 0.5),
			"FLAT/USDT":  line(100, 100, 0),
			"SHORT/USDT": line(100, 100, 0),
		},
	}
}

func testConfig(t *testing.T) *store.Config {
	t.Helper()
	cfg, err := store.ParseConfig([]byte("mode: DRY_RUN\n"))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func TestAnalyzeAssetBuyTheDip(t *testing.T) {
	e := newEngine(testConfig(t), newFakeMarket(), nil, nil)

	out := e.AnalyzeAsset(context.Background(), "UP/USDT")
	if !out.IsSignal() {
		t.Fatalf("Expected signal, got status %s (%v)", out.Status, out.Err)
	}
	sig := out.Signal
	if sig.Strategy != "BuyTheDip" || sig.Side != types.Buy {
		t.Errorf("Expected BUY BuyTheDip, got %s %s", sig.Side, sig.Strategy)
	}
	if sig.Confidence != 100 || sig.Score != 100 {
		t.Errorf("Expected confidence 100, got %f / %f", sig.Confidence, sig.Score)
	}
	if sig.EntryString() != "150.50" || sig.StopLossString() != "147.50" || sig.TakeProfitString() != "155.50" {
		t.Errorf("Unexpected levels entry=%s sl=%s tp=%s", sig.EntryString(), sig.StopLossString(), sig.TakeProfitString())
	}
	if sig.Source != "BuyTheDip v10.0.1" {
		t.Errorf("Unexpected source %q", sig.Source)
	}
}

func TestAnalyzeAssetStatuses(t *testing.T) {
	e := newEngine(testConfig(t), newFakeMarket(), nil, nil)

	tests := []struct {
		symbol string
		want   types.Status
	}{
		{"FAIL/USDT", types.StatusDataFetchFailed},
		{"SHORT/USDT", types.StatusInsufficientData},
		{"PANIC/USDT", types.StatusAnalysisFailed},
		{"FLAT/USDT", types.StatusRanging},
	}
	for _, tt := range tests {
		out := e.AnalyzeAsset(context.Background(), tt.symbol)
		if out.IsSignal() {
			t.Errorf("%s: expected no signal", tt.symbol)
			continue
		}
		if out.Status != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.symbol, tt.want, out.Status)
		}
	}
}

func TestAnalyzeAssetSellTheRally(t *testing.T) {
	e := newEngine(testConfig(t), newFakeMarket(), nil, nil)
	out := e.AnalyzeAsset(context.Background(), "DOWN/USDT")
	if !out.IsSignal() || out.Signal.Strategy != "SellTheRally" || out.Signal.Side != types.Sell {
		t.Fatalf("Expected SELL SellTheRally, got %+v", out)
	}
	if !out.Signal.StopLoss.GreaterThan(out.Signal.Entry) || !out.Signal.TakeProfit.LessThan(out.Signal.Entry) {
		t.Errorf("Expected mirrored levels for SELL, got %+v", out.Signal)
	}
}

type fixedSentiment float64

func (f fixedSentiment) Score(ctx context.Context, symbol string) float64 { return float64(f) }

func TestAnalyzeAssetBlend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Params.Blend.Enabled = true
	cfg.Params.Blend.ConfidenceThreshold = 0.7
	cfg.Params.Blend.Weights.Technical = 0.5
	cfg.Params.Blend.Weights.Sentiment = 0.3
	cfg.Params.Blend.Weights.Volatility = 0.2

	bullish := newEngine(cfg, newFakeMarket(), fixedSentiment(1), nil)
	out := bullish.AnalyzeAsset(context.Background(), "UP/USDT")
	if !out.IsSignal() {
		t.Fatalf("Expected blended signal, got %s", out.Status)
	}
	volAdj := (0.05 - 2/150.5) / 0.04
	want := 0.5 + 0.3 + 0.2*volAdj
	if math.Abs(out.Signal.Score-want) > 1e-9 {
		t.Errorf("Expected score %f, got %f", want, out.Signal.Score)
	}
	if out.Signal.Confidence != 100 {
		t.Errorf("Expected raw confidence kept, got %f", out.Signal.Confidence)
	}

	bearish := newEngine(cfg, newFakeMarket(), fixedSentiment(-1), nil)
	out = bearish.AnalyzeAsset(context.Background(), "UP/USDT")
	if out.IsSignal() || out.Status != types.StatusUptrend {
		t.Errorf("Expected demotion to Uptrend bucket, got %+v", out)
	}
}

func TestCycle(t *testing.T) {
	e := newEngine(testConfig(t), newFakeMarket(), nil, nil)
	symbols := []string{"UP/USDT", "FAIL/USDT", "FLAT/USDT", "PANIC/USDT", "DOWN/USDT", "SHORT/USDT"}

	res := e.Cycle(context.Background(), symbols)

	if res.ID == "" {
		t.Error("Expected cycle id")
	}
	if len(res.Outcomes) != len(symbols) {
		t.Fatalf("Expected %d outcomes, got %d", len(symbols), len(res.Outcomes))
	}
	for i, o := range res.Outcomes {
		if o.Symbol != symbols[i] {
			t.Errorf("outcome %d: expected %s, got %s", i, symbols[i], o.Symbol)
		}
	}
	if len(res.Signals) != 2 || res.Signals[0].Symbol != "UP/USDT" || res.Signals[1].Symbol != "DOWN/USDT" {
		t.Errorf("Unexpected signals %+v", res.Signals)
	}

	total := len(res.Signals)
	for _, s := range types.Statuses {
		total += len(res.Ledger[s])
	}
	if total != len(symbols) {
		t.Errorf("Expected every asset exactly once, got %d entries", total)
	}
	if got := res.Ledger[types.StatusDataFetchFailed]; len(got) != 1 || got[0] != "FAIL/USDT" {
		t.Errorf("Unexpected fetch-failed bucket %v", got)
	}
	if got := res.Ledger[types.StatusAnalysisFailed]; len(got) != 1 || got[0] != "PANIC/USDT" {
		t.Errorf("Unexpected analysis-failed bucket %v", got)
	}
}

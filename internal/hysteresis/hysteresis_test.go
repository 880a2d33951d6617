package hysteresis

import (
	"context"
	"errors"
	"testing"
	"time"

	"regime-signal-bot/internal/types"
)

func TestStepSequence(t *testing.T) {
	th := DefaultThresholds()
	var s State

	rsis := []float64{50, 30, 32, 36}
	var firedAt int
	for i, rsi := range rsis {
		fired := s.Step(th, rsi, 101, 100)
		if i == 1 && !s.Armed {
			t.Errorf("Expected latch armed at poll %d", i+1)
		}
		if fired {
			firedAt = i + 1
			break
		}
	}
	if firedAt != 4 {
		t.Errorf("Expected fire at poll 4, got %d", firedAt)
	}
}

func TestStepDisarm(t *testing.T) {
	th := DefaultThresholds()
	s := State{Armed: true}
	if s.Step(th, 65, 101, 100) {
		t.Error("Expected no fire above disarm level")
	}
	if s.Armed {
		t.Error("Expected latch disarmed")
	}
	if s.Step(th, 40, 101, 100) {
		t.Error("Expected no fire while idle")
	}
}

func TestStepRequiresPriceAboveAverage(t *testing.T) {
	s := State{Armed: true}
	if s.Step(DefaultThresholds(), 40, 99, 100) {
		t.Error("Expected no fire with price under its average")
	}
	if !s.Armed {
		t.Error("Expected latch to stay armed")
	}
}

type step struct {
	closes []float64
	err    error
}

type scriptedMarket struct {
	steps []step
	calls int
}

func (m *scriptedMarket) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error) {
	i := m.calls
	m.calls++
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	st := m.steps[i]
	if st.err != nil {
		return nil, st.err
	}
	out := make([]types.Candle, len(st.closes))
	for j, c := range st.closes {
		out[j] = types.Candle{Ts: int64(j), Open: c, High: c, Low: c, Close: c}
	}
	return out, nil
}

func (m *scriptedMarket) PriceDecimals(ctx context.Context, symbol string) (int32, error) {
	return 2, nil
}

func declining(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 200 - float64(i)
	}
	return out
}

// alternating ends on an up move, giving RSI just above 50 and a close
// above its short average.
func alternating(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i%2)
	}
	return out
}

func flat(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100
	}
	return out
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) after(d time.Duration) <-chan time.Time {
	c.t = c.t.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.t
	return ch
}

func newTestTrigger(md MarketData) (*Trigger, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := New(md, Config{
		Symbol:        "BTC/USDT",
		Timeframe:     "1m",
		Limit:         100,
		MAPeriod:      20,
		RSIPeriod:     14,
		Duration:      13 * time.Minute,
		PollInterval:  20 * time.Second,
		TakeProfitPct: 0.006,
		StopLossPct:   0.004,
		Version:       "10.0.1",
	})
	tr.now = clk.now
	tr.after = clk.after
	return tr, clk
}

func TestRunFires(t *testing.T) {
	md := &scriptedMarket{steps: []step{
		{err: errors.New("timeout")},
		{closes: declining(100)},
		{closes: alternating(100)},
	}}
	tr, _ := newTestTrigger(md)

	res, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Reason != Fired || res.Signal == nil {
		t.Fatalf("Expected fired result, got %+v", res)
	}
	if res.Polls != 3 {
		t.Errorf("Expected fire on poll 3, got %d", res.Polls)
	}
	sig := res.Signal
	if sig.Side != types.Buy || sig.Strategy != Strategy {
		t.Errorf("Unexpected signal %+v", sig)
	}
	if sig.EntryString() != "101.00" || sig.TakeProfitString() != "101.61" || sig.StopLossString() != "100.60" {
		t.Errorf("Unexpected levels entry=%s tp=%s sl=%s", sig.EntryString(), sig.TakeProfitString(), sig.StopLossString())
	}
}

func TestRunTimesOut(t *testing.T) {
	md := &scriptedMarket{steps: []step{{closes: flat(100)}}}
	tr, _ := newTestTrigger(md)

	res, err := tr.Run(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Reason != TimedOut || res.Signal != nil {
		t.Fatalf("Expected timeout without signal, got %+v", res)
	}
	if want := int((13 * time.Minute) / (20 * time.Second)); res.Polls != want {
		t.Errorf("Expected %d polls, got %d", want, res.Polls)
	}
}

func TestRunCancelled(t *testing.T) {
	md := &scriptedMarket{steps: []step{{closes: flat(100)}}}
	tr, _ := newTestTrigger(md)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr.after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	res, err := tr.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if res.Reason != Cancelled {
		t.Errorf("Expected cancelled result, got %s", res.Reason)
	}
}

package features

import (
	"errors"
	"fmt"
	"math"

	"regime-signal-bot/internal/ta"
	"regime-signal-bot/internal/types"
)

var ErrInsufficientData = errors.New("insufficient data")

// Periods configures the feature builder. Zero values fall back to the
// reference settings.
type Periods struct {
	MacroMinBars int
	MicroMinBars int
	BaselineMax  int
	RSI          int
	ATR          int
	ShortEMA     int
}

func DefaultPeriods() Periods {
	return Periods{
		MacroMinBars: 51,
		MicroMinBars: 21,
		BaselineMax:  100,
		RSI:          14,
		ATR:          14,
		ShortEMA:     12,
	}
}

func (p Periods) withDefaults() Periods {
	d := DefaultPeriods()
	if p.MacroMinBars <= 0 {
		p.MacroMinBars = d.MacroMinBars
	}
	if p.MicroMinBars <= 0 {
		p.MicroMinBars = d.MicroMinBars
	}
	if p.BaselineMax <= 0 {
		p.BaselineMax = d.BaselineMax
	}
	if p.RSI <= 0 {
		p.RSI = d.RSI
	}
	if p.ATR <= 0 {
		p.ATR = d.ATR
	}
	if p.ShortEMA <= 0 {
		p.ShortEMA = d.ShortEMA
	}
	return p
}

// Features holds every derived value the classifier, rule engine and risk
// synthesizer read. All fields except ATR are guaranteed finite.
type Features struct {
	Price    float64
	Baseline float64

	RSI     float64
	PrevRSI float64

	Close       float64
	PrevClose   float64
	ShortMA     float64
	PrevShortMA float64

	ATR          float64
	VolatilityOK bool
}

// Build derives Features from one asset snapshot. It fails closed with
// ErrInsufficientData instead of returning partially valid features.
func Build(snap types.AssetSnapshot, p Periods) (Features, error) {
	p = p.withDefaults()

	if len(snap.Macro) < p.MacroMinBars {
		return Features{}, fmt.Errorf("%s: macro has %d bars, need %d: %w", snap.Symbol, len(snap.Macro), p.MacroMinBars, ErrInsufficientData)
	}
	if len(snap.Micro) < p.MicroMinBars {
		return Features{}, fmt.Errorf("%s: micro has %d bars, need %d: %w", snap.Symbol, len(snap.Micro), p.MicroMinBars, ErrInsufficientData)
	}
	if err := checkFinite(snap.Macro); err != nil {
		return Features{}, fmt.Errorf("%s macro: %w", snap.Symbol, err)
	}
	if err := checkFinite(snap.Micro); err != nil {
		return Features{}, fmt.Errorf("%s micro: %w", snap.Symbol, err)
	}

	macroCloses := closes(snap.Macro)
	price := macroCloses[len(macroCloses)-1]

	window := min(p.BaselineMax, len(macroCloses)-1)
	baseline := ta.Last(ta.EMA(macroCloses, window), 0)
	if !ta.Valid(baseline) {
		baseline = price
	}

	microCloses := closes(snap.Micro)
	highs := make([]float64, len(snap.Micro))
	lows := make([]float64, len(snap.Micro))
	for i, c := range snap.Micro {
		highs[i] = c.High
		lows[i] = c.Low
	}

	rsi := ta.RSI(microCloses, p.RSI)
	ema := ta.EMA(microCloses, p.ShortEMA)
	atr := ta.ATR(highs, lows, microCloses, p.ATR)

	f := Features{
		Price:       price,
		Baseline:    baseline,
		RSI:         ta.Last(rsi, 0),
		PrevRSI:     ta.Last(rsi, 1),
		Close:       microCloses[len(microCloses)-1],
		PrevClose:   microCloses[len(microCloses)-2],
		ShortMA:     ta.Last(ema, 0),
		PrevShortMA: ta.Last(ema, 1),
		ATR:         ta.Last(atr, 0),
	}
	f.VolatilityOK = ta.Valid(f.ATR)

	for name, v := range map[string]float64{
		"rsi":           f.RSI,
		"prev_rsi":      f.PrevRSI,
		"short_ma":      f.ShortMA,
		"prev_short_ma": f.PrevShortMA,
	} {
		if !ta.Valid(v) {
			return Features{}, fmt.Errorf("%s: %s unavailable: %w", snap.Symbol, name, ErrInsufficientData)
		}
	}
	return f, nil
}

func closes(cs []types.Candle) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

func checkFinite(cs []types.Candle) error {
	for i, c := range cs {
		for _, v := range [...]float64{c.Open, c.High, c.Low, c.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bar %d has non-finite price: %w", i, ErrInsufficientData)
			}
		}
	}
	return nil
}

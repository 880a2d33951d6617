package risk

import (
	"strings"

	"github.com/shopspring/decimal"

	"regime-signal-bot/internal/types"
)

// Synthesizer turns an entry price and ATR into stop-loss and take-profit
// levels.
type Synthesizer struct {
	StopLossMult    float64
	TakeProfitMult  float64
	FallbackVolPct  float64
	MaxPlausibleVol float64
}

func DefaultSynthesizer() Synthesizer {
	return Synthesizer{
		StopLossMult:    1.5,
		TakeProfitMult:  2.5,
		FallbackVolPct:  0.015,
		MaxPlausibleVol: 0.10,
	}
}

// Levels is the result of one synthesis. Fallback is set when the ATR was
// missing or implausible and FallbackVolPct of entry was used instead.
type Levels struct {
	Entry      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Volatility float64
	Fallback   bool
}

// Volatility returns the distance unit used for the stops. atrOK=false
// means the feature builder could not compute ATR.
func (s Synthesizer) Volatility(entry, atr float64, atrOK bool) (float64, bool) {
	if !atrOK || atr <= 0 || atr > entry*s.MaxPlausibleVol {
		return entry * s.FallbackVolPct, true
	}
	return atr, false
}

func (s Synthesizer) Levels(side types.Side, entry, atr float64, atrOK bool, places int32) Levels {
	vol, fallback := s.Volatility(entry, atr, atrOK)

	var sl, tp float64
	if side == types.Buy {
		sl = entry - vol*s.StopLossMult
		tp = entry + vol*s.TakeProfitMult
	} else {
		sl = entry + vol*s.StopLossMult
		tp = entry - vol*s.TakeProfitMult
	}

	return Levels{
		Entry:      Round(entry, places),
		StopLoss:   Round(sl, places),
		TakeProfit: Round(tp, places),
		Volatility: vol,
		Fallback:   fallback,
	}
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(places)
}

// DecimalPlaces derives price precision from a tick size such as
// "0.01000000". Trailing zeros do not count.
func DecimalPlaces(tickSize string) int32 {
	i := strings.IndexByte(tickSize, '.')
	if i < 0 {
		return 0
	}
	return int32(len(strings.TrimRight(tickSize[i+1:], "0")))
}

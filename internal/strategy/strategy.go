package strategy

import (
	"regime-signal-bot/internal/features"
	"regime-signal-bot/internal/types"
)

const (
	BuyTheDip            = "BuyTheDip"
	MomentumContinuation = "MomentumContinuation"
	BuyTheBreakout       = "BuyTheBreakout"
	SellTheBreakdown     = "SellTheBreakdown"
	SellTheRally         = "SellTheRally"
)

const (
	dipRSI       = 40.0
	midRSI       = 50.0
	rallyRSI     = 60.0
	momentumBase = 60.0
)

// Match is the entry condition found for one asset.
type Match struct {
	Side       types.Side
	Strategy   string
	Confidence float64
}

// Evaluate applies the rules for the given regime. Rules are checked in a
// fixed order and the first one that holds wins.
func Evaluate(r types.Regime, f features.Features) (Match, bool) {
	switch r {
	case types.Uptrend:
		if f.RSI < dipRSI {
			return Match{Side: types.Buy, Strategy: BuyTheDip, Confidence: 100 - f.RSI}, true
		}
		if f.PrevClose < f.PrevShortMA && f.Close > f.ShortMA {
			return Match{Side: types.Buy, Strategy: MomentumContinuation, Confidence: momentumBase + (f.RSI - midRSI)}, true
		}
	case types.Ranging:
		if f.PrevRSI < midRSI && f.RSI > midRSI {
			return Match{Side: types.Buy, Strategy: BuyTheBreakout, Confidence: f.RSI}, true
		}
		if f.PrevRSI > midRSI && f.RSI < midRSI {
			return Match{Side: types.Sell, Strategy: SellTheBreakdown, Confidence: 100 - f.RSI}, true
		}
	case types.Downtrend:
		if f.RSI > rallyRSI {
			return Match{Side: types.Sell, Strategy: SellTheRally, Confidence: f.RSI}, true
		}
	}
	return Match{}, false
}

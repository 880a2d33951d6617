package regime

import "regime-signal-bot/internal/types"

const DefaultBand = 0.0075

// Classify labels price relative to its baseline. Prices above
// baseline*(1+band) are Uptrend, prices in (baseline*(1-band),
// baseline*(1+band)] are Ranging, everything else is Downtrend.
func Classify(price, baseline, band float64) types.Regime {
	switch {
	case price > baseline*(1+band):
		return types.Uptrend
	case price > baseline*(1-band):
		return types.Ranging
	default:
		return types.Downtrend
	}
}

package sentiment

// Weights mixes the three blend inputs. They are expected to sum to 1.
type Weights struct {
	Technical  float64
	Sentiment  float64
	Volatility float64
}

const (
	calmVolatility = 0.01
	wildVolatility = 0.05
)

// Blend combines strategy confidence (0..100), sentiment (-1..1) and the
// ATR/price ratio into one score in [0, 1].
func Blend(w Weights, confidence, sentiment, atr, price float64) float64 {
	technical := clamp(confidence/100, 0, 1)
	mood := (clamp(sentiment, -1, 1) + 1) / 2
	return w.Technical*technical + w.Sentiment*mood + w.Volatility*volatilityAdjustment(atr, price)
}

// volatilityAdjustment is 1 for ATR at or below 1% of price, falling
// linearly to 0 at 5%. Unknown volatility scores as 0.5.
func volatilityAdjustment(atr, price float64) float64 {
	if price <= 0 || atr <= 0 || atr != atr {
		return 0.5
	}
	ratio := atr / price
	switch {
	case ratio <= calmVolatility:
		return 1
	case ratio >= wildVolatility:
		return 0
	default:
		return (wildVolatility - ratio) / (wildVolatility - calmVolatility)
	}
}

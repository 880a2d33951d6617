package ta

import "math"

// Every function returns a series of the same length as its input. Positions
// without enough history hold NaN.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func SMA(values []float64, n int) []float64 {
	out := nanSeries(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA is seeded with the SMA of the first n values.
func EMA(values []float64, n int) []float64 {
	return smooth(values, n, 2.0/float64(n+1))
}

// RMA is Wilder's moving average (alpha = 1/n).
func RMA(values []float64, n int) []float64 {
	return smooth(values, n, 1.0/float64(n))
}

func smooth(values []float64, n int, alpha float64) []float64 {
	out := nanSeries(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	seed := 0.0
	for i := 0; i < n; i++ {
		seed += values[i]
	}
	prev := seed / float64(n)
	out[n-1] = prev
	for i := n; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

func RSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gains[i-1] = d
		} else {
			losses[i-1] = -d
		}
	}
	avgGain := RMA(gains, period)
	avgLoss := RMA(losses, period)
	for i := range avgGain {
		g, l := avgGain[i], avgLoss[i]
		if math.IsNaN(g) || math.IsNaN(l) {
			continue
		}
		var v float64
		switch {
		case l == 0 && g == 0:
			v = 50
		case l == 0:
			v = 100
		default:
			v = 100.0 - 100.0/(1.0+g/l)
		}
		out[i+1] = v
	}
	return out
}

func ATR(highs, lows, closes []float64, period int) []float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return nanSeries(len(closes))
	}
	if len(closes) == 0 {
		return nil
	}
	trs := make([]float64, len(closes))
	trs[0] = highs[0] - lows[0]
	for i := 1; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		trs[i] = math.Max(tr1, math.Max(tr2, tr3))
	}
	return RMA(trs, period)
}

// Last returns the value k positions from the end (0 = latest), or NaN.
func Last(series []float64, k int) float64 {
	i := len(series) - 1 - k
	if i < 0 || i >= len(series) {
		return math.NaN()
	}
	return series[i]
}

func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

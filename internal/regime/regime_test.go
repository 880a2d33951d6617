package regime

import (
	"testing"

	"regime-signal-bot/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		price, baseline float64
		want            types.Regime
	}{
		{100.80, 100, types.Uptrend},
		{99.30, 100, types.Ranging},
		{99.20, 100, types.Downtrend},
		{100.75, 100, types.Ranging},
		{99.25, 100, types.Downtrend},
		{100, 100, types.Ranging},
		{100.74, 100, types.Ranging},
		{99.24, 100, types.Downtrend},
		{99.26, 100, types.Ranging},
		{0, 100, types.Downtrend},
	}
	for _, tt := range tests {
		if got := Classify(tt.price, tt.baseline, DefaultBand); got != tt.want {
			t.Errorf("Classify(%.2f, %.2f) = %s, want %s", tt.price, tt.baseline, got, tt.want)
		}
	}
}

func TestClassifyPure(t *testing.T) {
	for i := 0; i < 3; i++ {
		if got := Classify(101, 100, DefaultBand); got != types.Uptrend {
			t.Fatalf("Expected stable Uptrend, got %s", got)
		}
	}
}

package scanner

import (
	"math"
	"sort"
	"strings"

	"regime-signal-bot/internal/types"
)

type Criteria struct {
	Quote        string
	Stablecoins  []string
	MinChangePct float64
	MinPrice     float64
	TopN         int
}

func DefaultCriteria() Criteria {
	return Criteria{
		Quote:        "USDT",
		Stablecoins:  []string{"USDC", "FDUSD", "TUSD", "DAI", "BUSD", "USDP", "EUR", "GBP", "USD1"},
		MinChangePct: 1.0,
		MinPrice:     0.01,
		TopN:         30,
	}
}

// Select builds the scan list: quote-matched, non-stablecoin pairs that moved
// more than MinChangePct in 24h and trade above MinPrice, ordered by quote
// volume (ties by symbol) and cut to TopN.
func Select(tickers []types.Ticker, c Criteria) []string {
	stable := make(map[string]bool, len(c.Stablecoins))
	for _, s := range c.Stablecoins {
		stable[strings.ToUpper(s)] = true
	}

	picked := make([]types.Ticker, 0, len(tickers))
	for _, t := range tickers {
		if !strings.EqualFold(t.Quote, c.Quote) || stable[strings.ToUpper(t.Base)] {
			continue
		}
		if math.IsNaN(t.ChangePct) || math.IsNaN(t.LastPrice) || math.IsNaN(t.QuoteVolume) {
			continue
		}
		if math.Abs(t.ChangePct) <= c.MinChangePct || t.LastPrice <= c.MinPrice {
			continue
		}
		picked = append(picked, t)
	}

	sort.Slice(picked, func(i, j int) bool {
		if picked[i].QuoteVolume != picked[j].QuoteVolume {
			return picked[i].QuoteVolume > picked[j].QuoteVolume
		}
		return picked[i].Symbol < picked[j].Symbol
	})

	if c.TopN > 0 && len(picked) > c.TopN {
		picked = picked[:c.TopN]
	}
	out := make([]string, len(picked))
	for i, t := range picked {
		out[i] = t.Symbol
	}
	return out
}

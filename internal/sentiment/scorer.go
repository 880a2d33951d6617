package sentiment

import (
	"strings"
	"unicode"
)

// Scorer rates headlines with a fixed polarity lexicon.
type Scorer struct {
	positive map[string]bool
	negative map[string]bool
}

func NewScorer() *Scorer {
	return &Scorer{
		positive: wordSet(positiveWords),
		negative: wordSet(negativeWords),
	}
}

// Score returns (pos-neg)/(pos+neg) over every headline, or 0 when there is
// nothing polar to count.
func (s *Scorer) Score(headlines []string) float64 {
	var pos, neg int
	for _, h := range headlines {
		for _, w := range tokenize(strings.ToLower(h)) {
			if s.positive[w] {
				pos++
			}
			if s.negative[w] {
				neg++
			}
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

func tokenize(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

func wordSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var positiveWords = []string{
	"adopt", "adoption", "all-time", "approval", "approve", "approved",
	"boost", "breakout", "bull", "bullish", "buy", "climb", "climbs",
	"gain", "gains", "growth", "high", "highs", "inflow", "inflows",
	"jump", "jumps", "launch", "milestone", "optimism", "optimistic",
	"outperform", "partnership", "positive", "rally", "rallies", "rebound",
	"record", "recover", "recovery", "rise", "rises", "soar", "soars",
	"strong", "strength", "support", "surge", "surges", "up", "upgrade",
	"uptrend", "win",
}

var negativeWords = []string{
	"ban", "bear", "bearish", "breach", "crash", "crashes", "decline",
	"declines", "delist", "delisting", "down", "downgrade", "downtrend",
	"drop", "drops", "dump", "exploit", "fall", "falls", "fear", "fraud",
	"hack", "hacked", "investigation", "lawsuit", "liquidation",
	"liquidations", "loss", "losses", "low", "lows", "negative", "outflow",
	"outflows", "plunge", "plunges", "probe", "reject", "rejected", "scam",
	"sell", "selloff", "sell-off", "slump", "sue", "sued", "tumble", "weak",
	"weakness",
}

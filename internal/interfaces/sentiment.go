package interfaces

import "context"

// SentimentScorer returns a score in [-1, 1]; 0 means neutral or unknown.
type SentimentScorer interface {
	Score(ctx context.Context, symbol string) float64
}

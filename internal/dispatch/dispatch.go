package dispatch

import (
	"context"
	"sort"

	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/metrics"
	"regime-signal-bot/internal/notify"
	"regime-signal-bot/internal/types"
)

const DefaultTopK = 3

// Rank returns up to k signals ordered by Score, highest first. Equal scores
// keep their input order.
func Rank(signals []types.Signal, k int) []types.Signal {
	ranked := append([]types.Signal(nil), signals...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

type Dispatcher struct {
	notifier   notify.Notifier
	topK       int
	version    string
	quote      string
	reportType string
	metrics    *metrics.Recorder
}

func New(n notify.Notifier, topK int, version, quote string, m *metrics.Recorder) *Dispatcher {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Dispatcher{
		notifier:   n,
		topK:       topK,
		version:    version,
		quote:      quote,
		reportType: "Spot",
		metrics:    m,
	}
}

// Summary describes what one Dispatch call sent.
type Summary struct {
	Sent       []types.Signal
	Failed     int
	ReportSent bool
}

// Dispatch sends the top signals, one message each, or the market report
// when there are none. It never sends both. Send failures are logged and
// counted.
func (d *Dispatcher) Dispatch(ctx context.Context, signals []types.Signal, ledger types.Ledger) Summary {
	var sum Summary

	if len(signals) == 0 {
		err := d.notifier.Send(ctx, FormatReport(ledger, 0, d.reportType, d.version, d.quote))
		d.metrics.RecordMessage("report", err)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to send market report", err)
			sum.Failed++
			return sum
		}
		sum.ReportSent = true
		logger.Info(ctx, "Market report sent", "analyzed", ledger.Analyzed())
		return sum
	}

	for _, sig := range Rank(signals, d.topK) {
		err := d.notifier.Send(ctx, FormatSignal(sig, d.version))
		d.metrics.RecordMessage("signal", err)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to send signal", err, "symbol", sig.Symbol)
			sum.Failed++
			continue
		}
		logger.Signal(ctx, sig.Symbol, string(sig.Side), sig.Strategy, sig.Score,
			"entry", sig.EntryString(),
			"take_profit", sig.TakeProfitString(),
			"stop_loss", sig.StopLossString(),
		)
		sum.Sent = append(sum.Sent, sig)
	}
	return sum
}

// SendDigest delivers the periodic sentiment digest.
func (d *Dispatcher) SendDigest(ctx context.Context, entries []DigestEntry, topN int) error {
	sorted := append([]DigestEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	err := d.notifier.Send(ctx, FormatDigest(sorted, topN, d.version, d.quote))
	d.metrics.RecordMessage("digest", err)
	return err
}

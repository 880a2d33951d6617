package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"regime-signal-bot/internal/dispatch"
	"regime-signal-bot/internal/exchange"
	"regime-signal-bot/internal/hysteresis"
	"regime-signal-bot/internal/interfaces"
	"regime-signal-bot/internal/journal"
	"regime-signal-bot/internal/logger"
	"regime-signal-bot/internal/metrics"
	"regime-signal-bot/internal/scanner"
	"regime-signal-bot/internal/schedule"
	"regime-signal-bot/internal/store"
	"regime-signal-bot/internal/types"
)

// Result mirrors the status-coded response of one invocation.
type Result struct {
	StatusCode int
	Body       string
	CycleID    string
}

// Scalper is the fallback loop run when the scan produced nothing.
type Scalper interface {
	Run(ctx context.Context) (hysteresis.Result, error)
}

type Deps struct {
	Config     *store.Config
	Market     exchange.MarketData
	Engine     interfaces.Engine
	Dispatcher *dispatch.Dispatcher
	Scalper    Scalper

	// Optional.
	Sentiment interfaces.SentimentScorer
	Gate      *schedule.Gate
	Journal   *journal.Journal
	Metrics   *metrics.Recorder
}

// Runner owns the run lock. Only one invocation runs at a time; others are
// rejected immediately.
type Runner struct {
	d       Deps
	running atomic.Bool
}

func New(d Deps) *Runner {
	return &Runner{d: d}
}

// Running reports whether an invocation currently holds the lock.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Invoke runs one full cycle. 200 on completion, 429 when another
// invocation holds the lock, 500 when the cycle could not start or panicked.
func (r *Runner) Invoke(ctx context.Context) (res Result) {
	if !r.running.CompareAndSwap(false, true) {
		logger.Warn(ctx, "Previous execution still running, skipping cycle")
		r.d.Metrics.RecordCycle("429", 0)
		return Result{StatusCode: http.StatusTooManyRequests, Body: "Execution already in progress."}
	}
	defer r.running.Store(false)

	start := time.Now()
	entry := journal.CycleEntry{
		CycleID: uuid.NewString(),
		Mode:    r.d.Config.OperatingMode,
	}

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			logger.ErrorWithErr(ctx, "Fatal error in cycle", err)
			res = Result{StatusCode: http.StatusInternalServerError, Body: "An unexpected error occurred."}
			entry.Error = err.Error()
		}
		res.CycleID = entry.CycleID
		entry.StatusCode = res.StatusCode
		entry.DurationMS = time.Since(start).Milliseconds()
		r.d.Metrics.RecordCycle(fmt.Sprint(res.StatusCode), time.Since(start))
		r.journalCycle(ctx, entry)
	}()

	logger.Info(ctx, "Cycle started",
		"version", r.d.Config.Params.Version,
		"operating_mode", r.d.Config.OperatingMode,
	)

	var scanList []string
	if r.d.Config.OperatingMode == store.OperatingScalpOnly {
		if sig := r.scalp(ctx, &entry); sig != nil {
			r.send(ctx, []types.Signal{*sig}, nil, &entry)
		}
	} else {
		var err error
		scanList, err = r.scanList(ctx)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to build scan list", err)
			entry.Error = err.Error()
			return Result{StatusCode: http.StatusInternalServerError, Body: "An unexpected error occurred."}
		}
		r.fullScan(ctx, scanList, &entry)
	}

	r.digest(ctx, scanList)

	logger.Info(ctx, "Cycle finished", "cycle_id", entry.CycleID, "duration_ms", time.Since(start).Milliseconds())
	return Result{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf("Cycle v%s complete.", r.d.Config.Params.Version),
	}
}

func (r *Runner) scanList(ctx context.Context) ([]string, error) {
	op := logger.StartOperation(ctx, "build_scan_list")
	tickers, err := r.d.Market.Tickers(op.GetContext())
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	sc := r.d.Config.Scan
	list := scanner.Select(tickers, scanner.Criteria{
		Quote:        sc.Quote,
		Stablecoins:  sc.Stablecoins,
		MinChangePct: sc.MinChangePct,
		MinPrice:     sc.MinPrice,
		TopN:         sc.TopN,
	})
	op.End("tickers", len(tickers), "selected", len(list))
	logger.Info(ctx, "Scan list built", "tickers", len(tickers), "selected", len(list))
	return list, nil
}

// fullScan sends the ranked signals, or the scalp signal when the scan found
// none, or the market report when the scalp loop did not fire either. Only
// one of the three goes out per cycle.
func (r *Runner) fullScan(ctx context.Context, symbols []string, entry *journal.CycleEntry) {
	cycle := r.d.Engine.Cycle(ctx, symbols)
	if cycle.ID != "" {
		entry.CycleID = cycle.ID
	}
	entry.Assets = len(symbols)
	entry.Buckets = bucketCounts(cycle.Ledger)

	signals := cycle.Signals
	if len(signals) == 0 {
		if sig := r.scalp(ctx, entry); sig != nil {
			signals = []types.Signal{*sig}
		}
	}
	r.send(ctx, signals, cycle.Ledger, entry)
}

// scalp runs the hysteresis loop and returns its signal, if it fired.
func (r *Runner) scalp(ctx context.Context, entry *journal.CycleEntry) *types.Signal {
	if r.d.Scalper == nil {
		return nil
	}
	res, err := r.d.Scalper.Run(ctx)
	r.d.Metrics.RecordHysteresis(string(res.Reason))
	entry.Hysteresis = string(res.Reason)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn(ctx, "Hysteresis loop ended with error", "error", err)
	}
	return res.Signal
}

func (r *Runner) send(ctx context.Context, signals []types.Signal, ledger types.Ledger, entry *journal.CycleEntry) {
	sum := r.d.Dispatcher.Dispatch(ctx, signals, ledger)
	entry.Signals = len(signals)
	entry.Sent = len(sum.Sent)
	entry.ReportSent = sum.ReportSent
	for _, s := range sum.Sent {
		r.journalSignal(ctx, entry.CycleID, s)
	}
}

// digest refreshes sentiment for the scan list and sends the digest when
// the interval gate says it is due.
func (r *Runner) digest(ctx context.Context, symbols []string) {
	if r.d.Gate == nil || r.d.Sentiment == nil || !r.d.Config.Digest.Enabled || len(symbols) == 0 {
		return
	}
	if !r.d.Gate.Due(ctx, schedule.TaskDigest) {
		logger.Debug(ctx, "Sentiment digest not due yet")
		return
	}

	entries := make([]dispatch.DigestEntry, 0, len(symbols))
	for _, s := range symbols {
		entries = append(entries, dispatch.DigestEntry{Symbol: s, Score: r.d.Sentiment.Score(ctx, s)})
	}
	if err := r.d.Dispatcher.SendDigest(ctx, entries, r.d.Config.Digest.TopN); err != nil {
		logger.ErrorWithErr(ctx, "Failed to send sentiment digest", err)
		return
	}
	r.d.Gate.Mark(ctx, schedule.TaskDigest)
	logger.Info(ctx, "Sentiment digest sent", "symbols", len(entries))
}

func (r *Runner) journalSignal(ctx context.Context, cycleID string, s types.Signal) {
	if r.d.Journal == nil {
		return
	}
	if err := r.d.Journal.AppendSignal(cycleID, s); err != nil {
		logger.Warn(ctx, "Failed to journal signal", "symbol", s.Symbol, "error", err)
	}
}

func (r *Runner) journalCycle(ctx context.Context, e journal.CycleEntry) {
	if r.d.Journal == nil {
		return
	}
	if err := r.d.Journal.AppendCycle(e); err != nil {
		logger.Warn(ctx, "Failed to journal cycle", "error", err)
	}
}

func bucketCounts(l types.Ledger) map[string]int {
	out := make(map[string]int, len(l))
	for s, syms := range l {
		out[strings.ToLower(string(s))] = len(syms)
	}
	return out
}

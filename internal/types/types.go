package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// AssetSnapshot is the candle history fetched for one asset in one cycle.
type AssetSnapshot struct {
	Symbol string
	Macro  []Candle
	Micro  []Candle
}

type Regime string

const (
	Uptrend   Regime = "Uptrend"
	Ranging   Regime = "Ranging"
	Downtrend Regime = "Downtrend"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Status is the ledger bucket an asset lands in when it produces no signal.
type Status string

const (
	StatusUptrend          Status = "Uptrend"
	StatusRanging          Status = "Ranging"
	StatusDowntrend        Status = "Downtrend"
	StatusInsufficientData Status = "InsufficientData"
	StatusDataFetchFailed  Status = "DataFetchFailed"
	StatusAnalysisFailed   Status = "AnalysisFailed"
)

// Statuses lists every bucket in report order.
var Statuses = []Status{
	StatusUptrend,
	StatusRanging,
	StatusDowntrend,
	StatusInsufficientData,
	StatusDataFetchFailed,
	StatusAnalysisFailed,
}

// StatusOf maps a regime label to its ledger bucket.
func StatusOf(r Regime) Status {
	switch r {
	case Uptrend:
		return StatusUptrend
	case Ranging:
		return StatusRanging
	default:
		return StatusDowntrend
	}
}

// Signal is a ranked trade candidate. Prices are already rounded to
// PriceDecimals.
type Signal struct {
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Entry         decimal.Decimal `json:"entry"`
	StopLoss      decimal.Decimal `json:"stop_loss"`
	TakeProfit    decimal.Decimal `json:"take_profit"`
	Confidence    float64         `json:"confidence"`
	Score         float64         `json:"score"`
	Strategy      string          `json:"strategy"`
	Source        string          `json:"source"`
	PriceDecimals int32           `json:"price_decimals"`
}

func (s Signal) EntryString() string      { return s.Entry.StringFixed(s.PriceDecimals) }
func (s Signal) StopLossString() string   { return s.StopLoss.StringFixed(s.PriceDecimals) }
func (s Signal) TakeProfitString() string { return s.TakeProfit.StringFixed(s.PriceDecimals) }

// Outcome is the single result of analysing one asset: either a Signal or a
// Status, never both.
type Outcome struct {
	Symbol string
	Signal *Signal
	Status Status
	Err    error
}

func (o Outcome) IsSignal() bool { return o.Signal != nil }

// Ledger groups symbols that produced no signal by status bucket.
type Ledger map[Status][]string

func NewLedger() Ledger {
	l := make(Ledger, len(Statuses))
	for _, s := range Statuses {
		l[s] = []string{}
	}
	return l
}

func (l Ledger) Add(s Status, symbol string) {
	l[s] = append(l[s], symbol)
}

// Analyzed counts assets that reached regime classification.
func (l Ledger) Analyzed() int {
	return len(l[StatusUptrend]) + len(l[StatusRanging]) + len(l[StatusDowntrend])
}

type Ticker struct {
	Symbol      string
	Base, Quote string
	LastPrice   float64
	ChangePct   float64
	QuoteVolume float64
}

type SentimentEntry struct {
	Symbol    string        `json:"symbol"`
	Score     float64       `json:"score"`
	WrittenAt time.Time     `json:"written_at"`
	TTL       time.Duration `json:"ttl"`
}

// Fresh reports whether the entry is still within its TTL at now.
func (e SentimentEntry) Fresh(now time.Time) bool {
	if e.WrittenAt.IsZero() {
		return false
	}
	return now.Sub(e.WrittenAt) <= e.TTL
}

// CycleResult is everything one scan cycle produced. Outcomes follow scan
// order; Signals and Ledger are derived from them.
type CycleResult struct {
	ID       string
	Outcomes []Outcome
	Signals  []Signal
	Ledger   Ledger
}

package exchange

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const exchangeInfoBody = `{"symbols":[
 {"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT","filters":[{"filterType":"PRICE_FILTER","tickSize":"0.01000000"}]},
 {"symbol":"PEPEUSDT","status":"TRADING","baseAsset":"PEPE","quoteAsset":"USDT","filters":[{"filterType":"PRICE_FILTER","tickSize":"0.00000001"}]},
 {"symbol":"OLDUSDT","status":"BREAK","baseAsset":"OLD","quoteAsset":"USDT","filters":[{"filterType":"PRICE_FILTER","tickSize":"0.10000000"}]}
]}`

const tickersBody = `[
 {"symbol":"BTCUSDT","priceChangePercent":"2.50","lastPrice":"64000.10","quoteVolume":"123456.7"},
 {"symbol":"PEPEUSDT","priceChangePercent":"-7.1","lastPrice":"0.00001120","quoteVolume":"999"},
 {"symbol":"OLDUSDT","priceChangePercent":"9","lastPrice":"1","quoteVolume":"5"},
 {"symbol":"NEWUSDT","priceChangePercent":"9","lastPrice":"1","quoteVolume":"5"}
]`

const klinesBody = `[
 [1700000000000,"100.0","101.0","99.0","100.5","10.0",1700000299999,"0",1,"0","0","0"],
 [1700000300000,"100.5","102.0","100.0","101.5","12.0",1700000599999,"0",1,"0","0","0"]
]`

func newBinanceServer(t *testing.T, infoCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		infoCalls.Add(1)
		w.Write([]byte(exchangeInfoBody))
	})
	mux.HandleFunc("/api/v3/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tickersBody))
	})
	mux.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("symbol") {
		case "BTCUSDT":
			if q.Get("interval") != "5m" || q.Get("limit") != "2" {
				t.Errorf("Unexpected kline query %s", r.URL.RawQuery)
			}
			w.Write([]byte(klinesBody))
		case "BADUSDT":
			w.Write([]byte(`{"code":-1}`))
		default:
			http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestBinance(url string) *Binance {
	return NewBinance(BinanceOptions{BaseURL: url, Timeout: 5 * time.Second, RequestsPerSec: 1000, Burst: 100})
}

func TestBinanceCandles(t *testing.T) {
	var calls atomic.Int32
	b := newTestBinance(newBinanceServer(t, &calls).URL)

	cs, err := b.Candles(context.Background(), "BTC/USDT", "5m", 2)
	if err != nil {
		t.Fatalf("Expected candles, got %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(cs))
	}
	if cs[1].Close != 101.5 || cs[0].Ts != 1700000000000 || cs[1].High != 102 {
		t.Errorf("Unexpected candle %+v", cs[1])
	}
}

func TestBinanceCandleErrorsWrapDataFetch(t *testing.T) {
	var calls atomic.Int32
	b := newTestBinance(newBinanceServer(t, &calls).URL)

	for _, sym := range []string{"NOPE/USDT", "BAD/USDT"} {
		_, err := b.Candles(context.Background(), sym, "5m", 2)
		if !errors.Is(err, ErrDataFetch) {
			t.Errorf("%s: expected ErrDataFetch, got %v", sym, err)
		}
		if sym == "BAD/USDT" && !strings.Contains(err.Error(), "decode") {
			t.Errorf("Expected decode error for malformed body, got %v", err)
		}
	}
}

func TestBinanceTickers(t *testing.T) {
	var calls atomic.Int32
	b := newTestBinance(newBinanceServer(t, &calls).URL)

	ts, err := b.Tickers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 2 {
		t.Fatalf("Expected 2 trading tickers, got %d: %+v", len(ts), ts)
	}
	bySym := map[string]float64{}
	for _, tk := range ts {
		bySym[tk.Symbol] = tk.ChangePct
		if tk.Quote != "USDT" {
			t.Errorf("Expected USDT quote, got %s", tk.Quote)
		}
	}
	if bySym["BTC/USDT"] != 2.5 || bySym["PEPE/USDT"] != -7.1 {
		t.Errorf("Unexpected changes %v", bySym)
	}
}

func TestBinancePriceDecimals(t *testing.T) {
	var calls atomic.Int32
	b := newTestBinance(newBinanceServer(t, &calls).URL)
	ctx := context.Background()

	tests := map[string]int32{"BTC/USDT": 2, "PEPE/USDT": 8, "OLD/USDT": 1}
	for sym, want := range tests {
		got, err := b.PriceDecimals(ctx, sym)
		if err != nil {
			t.Fatalf("%s: %v", sym, err)
		}
		if got != want {
			t.Errorf("%s: expected %d decimals, got %d", sym, want, got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected exchange info cached after first load, got %d calls", n)
	}

	if _, err := b.PriceDecimals(ctx, "NEW/USDT"); !errors.Is(err, ErrDataFetch) {
		t.Errorf("Expected ErrDataFetch for unknown symbol, got %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("Expected a forced reload for unknown symbol, got %d calls", n)
	}
}

func TestBinanceUnreachable(t *testing.T) {
	b := newTestBinance("http://127.0.0.1:1")
	if _, err := b.Tickers(context.Background()); !errors.Is(err, ErrDataFetch) {
		t.Errorf("Expected ErrDataFetch, got %v", err)
	}
}

func TestParseFloat(t *testing.T) {
	if v := parseFloat("1.25"); v != 1.25 {
		t.Errorf("Expected 1.25, got %f", v)
	}
	if v := parseFloat("abc"); !math.IsNaN(v) {
		t.Errorf("Expected NaN for bad input, got %f", v)
	}
	if v := parseFloat(nil); !math.IsNaN(v) {
		t.Errorf("Expected NaN for nil, got %f", v)
	}
}

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/items" {
			t.Errorf("Expected path /v1/items, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Errorf("Expected symbol query, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected default header, got %q", r.Header.Get("Accept"))
		}
		w.Write([]byte(`{"n":3}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHeader("Accept", "application/json"))
	resp, err := c.GET(context.Background(), "/v1/items", url.Values{"symbol": {"BTCUSDT"}})
	if err != nil {
		t.Fatal(err)
	}
	var out struct{ N int }
	if err := resp.ParseJSON(&out); err != nil {
		t.Fatal(err)
	}
	if out.N != 3 {
		t.Errorf("Expected 3, got %d", out.N)
	}
}

func TestClientStatusErrorNoRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).GET(context.Background(), "/x", nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTeapot {
		t.Errorf("Expected 418, got %d", se.StatusCode)
	}
	if len(se.Body) != 203 {
		t.Errorf("Expected truncated body, got %d bytes", len(se.Body))
	}
	if hits.Load() != 1 {
		t.Errorf("Expected exactly one request, got %d", hits.Load())
	}
}

func TestClientRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(0.001, 1))
	if _, err := c.GET(context.Background(), "/", nil); err != nil {
		t.Fatalf("first request should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.GET(ctx, "/", nil); err == nil {
		t.Error("Expected limiter wait to fail when the deadline is shorter than the refill")
	}
}

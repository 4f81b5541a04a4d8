package marketdata

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestGetBars tests bar fetching and decoding
func TestGetBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/v2/aggs/ticker/AAPL/range/4/hour/") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("apiKey") != "test-key" {
			t.Error("API key not forwarded")
		}
		fmt.Fprint(w, `{
			"ticker": "AAPL",
			"status": "OK",
			"results": [
				{"t": 1735689600000, "o": 100, "h": 102, "l": 99, "c": 101, "v": 50000},
				{"t": 1735704000000, "o": 101, "h": 103, "l": 100, "c": 102.5, "v": 61000}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 5*time.Second)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	bars, err := client.GetBars("AAPL", TF4h, from, to)
	if err != nil {
		t.Fatalf("GetBars failed: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(bars))
	}
	if bars[1].Close != 102.5 {
		t.Errorf("Second close should be 102.5, got %.2f", bars[1].Close)
	}
	if !bars[0].Time.Equal(time.UnixMilli(1735689600000).UTC()) {
		t.Errorf("Bar time decoded wrong: %s", bars[0].Time)
	}
}

// TestGetBarsEmptyResult tests that an empty list is not an error
func TestGetBarsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ticker": "XYZ", "status": "OK", "results": []}`)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 5*time.Second)

	bars, err := client.GetBars("XYZ", TF1d, time.Now().AddDate(0, 0, -5), time.Now())
	if err != nil {
		t.Fatalf("Empty result should not error: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("Expected 0 bars, got %d", len(bars))
	}
}

// TestGetBarsErrorStatus tests non-2xx handling
func TestGetBarsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 5*time.Second)

	if _, err := client.GetBars("AAPL", TF1h, time.Now().AddDate(0, 0, -1), time.Now()); err == nil {
		t.Error("Non-2xx response should be an error")
	}
}

// TestGetQuote tests quote decoding
func TestGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"price": 187.5, "previous_close": 185.0, "change_percent": 1.35}`)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 5*time.Second)

	quote, err := client.GetQuote("AAPL")
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if quote.Price != 187.5 {
		t.Errorf("Expected price 187.5, got %.2f", quote.Price)
	}
	if quote.Ticker != "AAPL" {
		t.Errorf("Ticker should be filled in, got %q", quote.Ticker)
	}
}

// TestGetPreviousClose tests the prior-session close endpoint
func TestGetPreviousClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/prev") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"results": [{"t": 1735689600000, "o": 184, "h": 186, "l": 183, "c": 185.25, "v": 900000}]}`)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 5*time.Second)

	prev, err := client.GetPreviousClose("AAPL")
	if err != nil {
		t.Fatalf("GetPreviousClose failed: %v", err)
	}
	if prev != 185.25 {
		t.Errorf("Expected 185.25, got %.2f", prev)
	}
}

package universe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestStaticProviderParsesEntries tests the pipe-delimited entry format
func TestStaticProviderParsesEntries(t *testing.T) {
	p := NewStaticProvider([]string{
		"AAPL|Apple Inc|Technology",
		"JPM|JPMorgan Chase|Financials",
		"XOM",
		"",
	})

	stocks, err := p.GetBatch(0, 10)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}

	if len(stocks) != 3 {
		t.Fatalf("Expected 3 stocks (empty entry dropped), got %d", len(stocks))
	}
	if stocks[0].Ticker != "AAPL" || stocks[0].Company != "Apple Inc" || stocks[0].Sector != "Technology" {
		t.Errorf("First entry parsed wrong: %+v", stocks[0])
	}
	if stocks[2].Ticker != "XOM" || stocks[2].Company != "" {
		t.Errorf("Ticker-only entry parsed wrong: %+v", stocks[2])
	}
}

// TestStaticProviderWindows tests batch window slicing
func TestStaticProviderWindows(t *testing.T) {
	p := NewStaticProvider([]string{"A|a|s", "B|b|s", "C|c|s", "D|d|s"})

	stocks, _ := p.GetBatch(1, 3)
	if len(stocks) != 2 || stocks[0].Ticker != "B" {
		t.Errorf("Window [1,3) should yield B,C, got %+v", stocks)
	}

	stocks, _ = p.GetBatch(3, 100)
	if len(stocks) != 1 || stocks[0].Ticker != "D" {
		t.Errorf("Overlong window should clamp to the tail, got %+v", stocks)
	}

	stocks, _ = p.GetBatch(10, 20)
	if len(stocks) != 0 {
		t.Errorf("Out-of-range window should be empty, got %+v", stocks)
	}
}

// TestHTTPProviderGetBatch tests the remote fetch path
func TestHTTPProviderGetBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/universe" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("start") != "0" || r.URL.Query().Get("end") != "2" {
			t.Errorf("Window not forwarded: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]Stock{
			{Ticker: "AAPL", Company: "Apple Inc", Sector: "Technology"},
			{Ticker: "MSFT", Company: "Microsoft", Sector: "Technology"},
		})
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL)

	stocks, err := p.GetBatch(0, 2)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if len(stocks) != 2 || stocks[1].Ticker != "MSFT" {
		t.Errorf("Unexpected universe: %+v", stocks)
	}
}

// TestHTTPProviderErrorStatus tests non-2xx handling
func TestHTTPProviderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewHTTPProvider(server.URL)

	if _, err := p.GetBatch(0, 2); err == nil {
		t.Error("Non-2xx response should be an error")
	}
}

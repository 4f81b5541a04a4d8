// Package universe supplies the ordered list of stocks a batch processes.
package universe

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Stock identifies one equity in the processing universe.
type Stock struct {
	Ticker  string `json:"ticker"`
	Company string `json:"company"`
	Sector  string `json:"sector"`
}

// Provider returns the slice of the universe covered by one batch window.
type Provider interface {
	GetBatch(startIndex, endIndex int) ([]Stock, error)
}

// HTTPProvider fetches the universe from a remote endpoint.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) GetBatch(startIndex, endIndex int) ([]Stock, error) {
	endpoint := fmt.Sprintf("%s/v1/universe?start=%d&end=%d", p.baseURL, startIndex, endIndex)

	resp, err := p.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching universe: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	var stocks []Stock
	if err := json.Unmarshal(body, &stocks); err != nil {
		return nil, fmt.Errorf("error parsing universe: %w", err)
	}

	return stocks, nil
}

// StaticProvider serves a fixed universe from configuration. Entries use the
// "TICKER|Company Name|Sector" form.
type StaticProvider struct {
	stocks []Stock
}

func NewStaticProvider(entries []string) *StaticProvider {
	stocks := make([]Stock, 0, len(entries))
	for _, e := range entries {
		parts := strings.SplitN(e, "|", 3)
		s := Stock{Ticker: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			s.Company = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			s.Sector = strings.TrimSpace(parts[2])
		}
		if s.Ticker != "" {
			stocks = append(stocks, s)
		}
	}
	return &StaticProvider{stocks: stocks}
}

func (p *StaticProvider) GetBatch(startIndex, endIndex int) ([]Stock, error) {
	if startIndex < 0 {
		startIndex = 0
	}
	if endIndex > len(p.stocks) {
		endIndex = len(p.stocks)
	}
	if startIndex >= endIndex {
		return []Stock{}, nil
	}
	return p.stocks[startIndex:endIndex], nil
}

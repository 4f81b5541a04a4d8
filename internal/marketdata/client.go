package marketdata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Provider is the market-data interface the coordinator consumes.
type Provider interface {
	GetBars(ticker string, timeframe Timeframe, from, to time.Time) ([]Bar, error)
	GetQuote(ticker string) (*Quote, error)
	GetPreviousClose(ticker string) (float64, error)
}

// Client talks to the market-data provider's REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// barsResponse is the provider's aggregate-bars envelope
type barsResponse struct {
	Ticker  string `json:"ticker"`
	Status  string `json:"status"`
	Results []struct {
		Timestamp int64   `json:"t"` // unix millis
		Open      float64 `json:"o"`
		High      float64 `json:"h"`
		Low       float64 `json:"l"`
		Close     float64 `json:"c"`
		Volume    float64 `json:"v"`
	} `json:"results"`
}

// timeframeParams maps a timeframe to the provider's multiplier/timespan pair.
func timeframeParams(tf Timeframe) (string, string) {
	switch tf {
	case TF1h:
		return "1", "hour"
	case TF4h:
		return "4", "hour"
	case TF1d:
		return "1", "day"
	case TF1w:
		return "1", "week"
	default:
		return "1", "day"
	}
}

// GetBars fetches aggregate bars for a ticker between from and to. A non-2xx
// response or decoding failure is an error; an empty result list is returned
// as-is and left to the caller to interpret.
func (c *Client) GetBars(ticker string, timeframe Timeframe, from, to time.Time) ([]Bar, error) {
	mult, span := timeframeParams(timeframe)

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("adjusted", "true")
	params.Set("sort", "asc")
	params.Set("limit", "5000")

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%s/%s/%s/%s?%s",
		c.baseURL, url.PathEscape(ticker), mult, span,
		from.Format("2006-01-02"), to.Format("2006-01-02"), params.Encode())

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s %s bars: %w", ticker, timeframe, err)
	}

	var resp barsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error parsing bars: %w", err)
	}

	bars := make([]Bar, len(resp.Results))
	for i, r := range resp.Results {
		bars[i] = Bar{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}

	return bars, nil
}

// GetQuote fetches the live quote for a ticker.
func (c *Client) GetQuote(ticker string) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/quote/%s?apiKey=%s", c.baseURL, url.PathEscape(ticker), url.QueryEscape(c.apiKey))

	body, err := c.get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error fetching quote for %s: %w", ticker, err)
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("error parsing quote: %w", err)
	}
	quote.Ticker = ticker

	return &quote, nil
}

// GetPreviousClose fetches the prior session's close for a ticker.
func (c *Client) GetPreviousClose(ticker string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/prev?apiKey=%s", c.baseURL, url.PathEscape(ticker), url.QueryEscape(c.apiKey))

	body, err := c.get(endpoint)
	if err != nil {
		return 0, fmt.Errorf("error fetching previous close for %s: %w", ticker, err)
	}

	var resp barsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("error parsing previous close: %w", err)
	}
	if len(resp.Results) == 0 {
		return 0, fmt.Errorf("no previous close for %s", ticker)
	}

	return resp.Results[len(resp.Results)-1].Close, nil
}

func (c *Client) get(endpoint string) ([]byte, error) {
	resp, err := c.httpClient.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

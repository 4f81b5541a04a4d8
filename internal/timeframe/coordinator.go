package timeframe

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"equity-signal-engine/config"
	"equity-signal-engine/internal/cache"
	"equity-signal-engine/internal/marketdata"
)

// ErrNoData means no timeframe produced any bars for a stock. The stock is
// skipped rather than scored on fabricated data.
var ErrNoData = errors.New("no market data available on any timeframe")

// lookbackDays maps each timeframe to how much history its indicators need.
// Weekly bars need roughly three years to fill a 26-period MACD.
var lookbackDays = map[marketdata.Timeframe]int{
	marketdata.TF1h: 30,
	marketdata.TF4h: 120,
	marketdata.TF1d: 400,
	marketdata.TF1w: 1095,
}

// Snapshot bundles everything the coordinator fetched for one stock. A nil
// entry in Series means that timeframe came back empty and must be scored
// as absent.
type Snapshot struct {
	Ticker         string
	Series         map[marketdata.Timeframe]*marketdata.Series
	CurrentPrice   float64
	DailyChangePct float64
}

// Available counts timeframes that produced at least one bar.
func (s *Snapshot) Available() int {
	n := 0
	for _, series := range s.Series {
		if series != nil && len(series.Bars) > 0 {
			n++
		}
	}
	return n
}

// Coordinator fetches aligned multi-timeframe data for one stock at a time,
// reading through the series cache and rate-limiting provider calls.
type Coordinator struct {
	provider     marketdata.Provider
	cache        cache.SeriesCache
	mode         config.Mode
	asOf         time.Time
	maxRetries   int
	retryBackoff time.Duration
	requestDelay time.Duration
	logger       zerolog.Logger
}

// NewCoordinator creates a coordinator. cache may be nil to disable caching.
func NewCoordinator(provider marketdata.Provider, seriesCache cache.SeriesCache, cfg *config.Config, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		provider:     provider,
		cache:        seriesCache,
		mode:         cfg.CoordinatorConfig.Mode,
		asOf:         cfg.CoordinatorConfig.AsOfTime(),
		maxRetries:   cfg.ProviderConfig.MaxRetries,
		retryBackoff: cfg.ProviderConfig.RetryBackoff,
		requestDelay: cfg.ProviderConfig.RequestDelay,
		logger:       logger,
	}
}

// endDate is where every lookback window terminates. Live mode anchors on
// now; backtest mode anchors on the configured as-of date so historical
// scans never peek past it.
func (c *Coordinator) endDate() time.Time {
	if c.mode == config.ModeBacktest {
		return c.asOf
	}
	return time.Now().UTC()
}

// DateRange returns the fetch window for a timeframe.
func (c *Coordinator) DateRange(tf marketdata.Timeframe) (time.Time, time.Time) {
	end := c.endDate()
	days := lookbackDays[tf]
	return end.AddDate(0, 0, -days), end
}

// Fetch retrieves all four timeframes plus a current price for one ticker.
// Individual timeframes may fail or come back empty; the snapshot marks them
// nil and scoring treats them as absent. Only a total blackout is an error.
func (c *Coordinator) Fetch(ticker string) (*Snapshot, error) {
	snap := &Snapshot{
		Ticker: ticker,
		Series: make(map[marketdata.Timeframe]*marketdata.Series, len(marketdata.AllTimeframes)),
	}

	for _, tf := range marketdata.AllTimeframes {
		series := c.fetchSeries(ticker, tf)
		snap.Series[tf] = series
	}

	if snap.Available() == 0 {
		return nil, ErrNoData
	}

	snap.CurrentPrice, snap.DailyChangePct = c.resolvePrice(ticker, snap.Series[marketdata.TF1d])
	return snap, nil
}

func (c *Coordinator) fetchSeries(ticker string, tf marketdata.Timeframe) *marketdata.Series {
	if c.cache != nil {
		if bars := c.cache.Get(ticker, tf); bars != nil {
			return &marketdata.Series{Ticker: ticker, Timeframe: tf, Bars: bars}
		}
	}

	from, to := c.DateRange(tf)

	var bars []marketdata.Bar
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(c.retryBackoff)
		}
		bars, err = c.provider.GetBars(ticker, tf, from, to)
		c.throttle()
		if err == nil {
			break
		}
		c.logger.Warn().
			Err(err).
			Str("ticker", ticker).
			Str("timeframe", string(tf)).
			Int("attempt", attempt+1).
			Msg("Bar fetch failed")
	}
	if err != nil || len(bars) == 0 {
		return nil
	}

	if c.cache != nil {
		c.cache.Set(ticker, tf, bars)
	}
	return &marketdata.Series{Ticker: ticker, Timeframe: tf, Bars: bars}
}

// resolvePrice resolves a price for entry math plus the day-over-day change
// that goes with it, so the persisted change always reflects the same price
// the scores used. Quote first, previous close second, last daily bar as the
// final fallback.
func (c *Coordinator) resolvePrice(ticker string, daily *marketdata.Series) (float64, float64) {
	quote, err := c.provider.GetQuote(ticker)
	c.throttle()
	if err == nil && quote != nil && quote.Price > 0 {
		if quote.ChangePercent != 0 {
			return quote.Price, quote.ChangePercent
		}
		return quote.Price, percentChange(quote.Price, quote.PreviousClose)
	}

	prev, err := c.provider.GetPreviousClose(ticker)
	c.throttle()
	if err == nil && prev > 0 {
		return prev, percentChange(prev, priorDailyClose(daily, prev))
	}

	if daily != nil && len(daily.Bars) > 0 {
		last := daily.Bars[len(daily.Bars)-1].Close
		return last, percentChange(last, priorDailyClose(daily, last))
	}

	c.logger.Warn().Str("ticker", ticker).Msg("No price source available")
	return 0, 0
}

// priorDailyClose finds the daily close preceding the resolved price's own
// session. When the final bar already carries that price, the bar before it
// holds the prior session's close.
func priorDailyClose(daily *marketdata.Series, price float64) float64 {
	if daily == nil || len(daily.Bars) == 0 {
		return 0
	}
	last := daily.Bars[len(daily.Bars)-1].Close
	if last == price && len(daily.Bars) >= 2 {
		return daily.Bars[len(daily.Bars)-2].Close
	}
	return last
}

func percentChange(price, prev float64) float64 {
	if price <= 0 || prev <= 0 {
		return 0
	}
	return (price - prev) / prev * 100
}

func (c *Coordinator) throttle() {
	if c.requestDelay > 0 {
		time.Sleep(c.requestDelay)
	}
}

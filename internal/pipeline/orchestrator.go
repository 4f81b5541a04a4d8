package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"equity-signal-engine/config"
	"equity-signal-engine/internal/database"
	"equity-signal-engine/internal/marketdata"
	"equity-signal-engine/internal/notification"
	"equity-signal-engine/internal/scoring"
	"equity-signal-engine/internal/timeframe"
	"equity-signal-engine/internal/universe"
)

// Fetcher provides multi-timeframe snapshots for one ticker at a time.
type Fetcher interface {
	Fetch(ticker string) (*timeframe.Snapshot, error)
}

// SignalStore is the slice of the repository the orchestrator writes through.
type SignalStore interface {
	SaveSignalWithIndicators(ctx context.Context, signal *database.StockSignal, records []database.IndicatorRecord) error
	DeleteAllSignals(ctx context.Context) error
}

// CacheStats reports read-through cache accounting for the batch summary.
type CacheStats interface {
	Stats() (hits, misses int64)
}

// Orchestrator drives the scan: fetch, score, gate, compose, persist, one
// stock at a time. Per-stock failures are recorded and the batch moves on.
type Orchestrator struct {
	fetcher    Fetcher
	store      SignalStore
	cacheStats CacheStats
	notifier   *notification.Manager
	cfg        *config.Config
	weights    scoring.Weights
	logger     zerolog.Logger
}

// NewOrchestrator creates an orchestrator. cacheStats and notifier may be nil.
func NewOrchestrator(fetcher Fetcher, store SignalStore, cacheStats CacheStats, notifier *notification.Manager, cfg *config.Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		store:      store,
		cacheStats: cacheStats,
		notifier:   notifier,
		cfg:        cfg,
		weights: scoring.Weights{
			Strength:   cfg.ScoringConfig.StrengthWeight,
			Confidence: cfg.ScoringConfig.ConfidenceWeight,
			Quality:    cfg.ScoringConfig.QualityWeight,
			Risk:       cfg.ScoringConfig.RiskWeight,
		},
		logger: logger,
	}
}

// RunBatch processes a universe slice under the given mode and returns the
// full accounting. The context cancels between stocks, never mid-persist.
func (o *Orchestrator) RunBatch(ctx context.Context, stocks []universe.Stock, mode BatchMode) (*BatchSummary, error) {
	start := time.Now()
	summary := &BatchSummary{
		BatchID: uuid.New(),
		Mode:    mode,
		Results: make([]StockResult, 0, len(stocks)),
	}

	o.logger.Info().
		Str("batch_id", summary.BatchID.String()).
		Str("mode", string(mode)).
		Int("stocks", len(stocks)).
		Msg("Starting scan batch")

	if mode == ModeFullReplace {
		if err := o.store.DeleteAllSignals(ctx); err != nil {
			return nil, fmt.Errorf("full-replace wipe failed: %w", err)
		}
	}

	var startHits, startMisses int64
	if o.cacheStats != nil {
		startHits, startMisses = o.cacheStats.Stats()
	}

	for _, stock := range stocks {
		if err := ctx.Err(); err != nil {
			o.logger.Warn().Str("batch_id", summary.BatchID.String()).Msg("Batch cancelled")
			break
		}

		result := o.processStock(ctx, stock, summary.BatchID)
		summary.Results = append(summary.Results, result)
		summary.Processed++

		switch result.Status {
		case StatusSaved:
			summary.Saved++
		case StatusRejected:
			summary.Rejected++
		case StatusSkippedNoData, StatusSkippedFewIndicators:
			summary.Skipped++
		case StatusError:
			summary.Errors++
		}
	}

	if o.cacheStats != nil {
		endHits, endMisses := o.cacheStats.Stats()
		summary.CacheHits = endHits - startHits
		summary.CacheMisses = endMisses - startMisses
	}
	summary.Elapsed = time.Since(start)

	o.logger.Info().
		Str("batch_id", summary.BatchID.String()).
		Int("processed", summary.Processed).
		Int("saved", summary.Saved).
		Int("rejected", summary.Rejected).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Dur("elapsed", summary.Elapsed).
		Msg("Scan batch finished")

	if o.notifier != nil {
		if err := o.notifier.SendBatchSummary(
			summary.BatchID.String(),
			summary.Processed, summary.Saved, summary.Rejected, summary.Skipped, summary.Errors,
			summary.Elapsed,
		); err != nil {
			o.logger.Warn().Err(err).Msg("Batch notification failed")
		}
	}

	return summary, nil
}

func (o *Orchestrator) processStock(ctx context.Context, stock universe.Stock, batchID uuid.UUID) StockResult {
	result := StockResult{Ticker: stock.Ticker}

	snap, err := o.fetcher.Fetch(stock.Ticker)
	if err != nil {
		if errors.Is(err, timeframe.ErrNoData) {
			o.logger.Info().Str("ticker", stock.Ticker).Msg("No data on any timeframe, skipping")
			result.Status = StatusSkippedNoData
			return result
		}
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	scores := make(map[marketdata.Timeframe]scoring.TimeframeScore, len(marketdata.AllTimeframes))
	for _, tf := range marketdata.AllTimeframes {
		scores[tf] = scoring.ScoreTimeframe(snap.Series[tf])
	}

	s1h := scores[marketdata.TF1h]
	s4h := scores[marketdata.TF4h]
	s1d := scores[marketdata.TF1d]
	s1w := scores[marketdata.TF1w]

	result.Score1H = s1h.Score
	result.Score4H = s4h.Score
	result.Score1D = s1d.Score
	result.Score1W = s1w.Score

	if !s1h.Valid() && !s4h.Valid() && !s1d.Valid() && !s1w.Valid() {
		o.logger.Info().Str("ticker", stock.Ticker).Msg("Too few real indicators on every timeframe, skipping")
		result.Status = StatusSkippedFewIndicators
		return result
	}

	if !scoring.PassesGate(s1h.Score, s4h.Score, s1d.Score, s1w.Score, o.cfg.ScoringConfig.GateThreshold) {
		o.logger.Debug().
			Str("ticker", stock.Ticker).
			Float64("score_1h", s1h.Score).
			Float64("score_4h", s4h.Score).
			Float64("score_1d", s1d.Score).
			Float64("score_1w", s1w.Score).
			Msg("Gate rejected")
		result.Status = StatusRejected
		return result
	}

	composite := scoring.ComputeComposite(s1h, s4h, s1d, s1w, snap.Series[marketdata.TF1d], o.weights)

	entry := snap.CurrentPrice * (1 + o.cfg.PipelineConfig.EntryOffsetPercent/100)
	stop := entry * (1 - o.cfg.PipelineConfig.StopOffsetPercent/100)
	target := entry * (1 + o.cfg.PipelineConfig.TargetOffsetPercent/100)

	signal := &database.StockSignal{
		BatchID:         batchID,
		Ticker:          stock.Ticker,
		Company:         stock.Company,
		Sector:          stock.Sector,
		SignalType:      composite.SignalType,
		Classification:  composite.Classification,
		SmartScore:      composite.SmartScore,
		StrengthScore:   composite.Strength,
		ConfidenceScore: composite.Confidence,
		QualityScore:    composite.Quality,
		RiskScore:       composite.Risk,
		Score1H:         s1h.Score,
		Score4H:         s4h.Score,
		Score1D:         s1d.Score,
		Score1W:         s1w.Score,
		CurrentPrice:    snap.CurrentPrice,
		DailyChangePct:  snap.DailyChangePct,
		EntryPrice:      entry,
		StopLoss:        stop,
		TargetPrice:     target,
		Mode:            string(o.cfg.CoordinatorConfig.Mode),
	}

	records := buildIndicatorRecords(scores)

	if err := o.store.SaveSignalWithIndicators(ctx, signal, records); err != nil {
		o.logger.Error().Err(err).Str("ticker", stock.Ticker).Msg("Signal persistence failed")
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	o.logger.Info().
		Str("ticker", stock.Ticker).
		Int("smart_score", composite.SmartScore).
		Str("classification", composite.Classification).
		Msg("Signal saved")

	if o.notifier != nil {
		if err := o.notifier.SendSignal(stock.Ticker, composite.Classification, composite.SmartScore, entry, stop, target); err != nil {
			o.logger.Warn().Err(err).Str("ticker", stock.Ticker).Msg("Signal notification failed")
		}
	}

	result.Status = StatusSaved
	result.SmartScore = composite.SmartScore
	result.SignalID = signal.ID
	return result
}

// buildIndicatorRecords flattens every timeframe's breakdown into storage
// rows. Seven indicators across four timeframes means 28 rows per signal,
// always, with absent readings marked rather than dropped.
func buildIndicatorRecords(scores map[marketdata.Timeframe]scoring.TimeframeScore) []database.IndicatorRecord {
	records := make([]database.IndicatorRecord, 0, len(marketdata.AllTimeframes)*len(scoring.IndicatorNames))
	for _, tf := range marketdata.AllTimeframes {
		ts := scores[tf]
		for _, res := range ts.Breakdown {
			records = append(records, database.IndicatorRecord{
				Indicator:     res.Name,
				Timeframe:     string(tf),
				RawValue:      res.RawValue,
				Contribution:  res.Contribution,
				DataAvailable: res.DataAvailable,
				Metadata:      scoring.MarshalMetadata(res.Metadata),
			})
		}
	}
	return records
}

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// ============================================================================
// SIGNALS
// ============================================================================

// SaveSignalWithIndicators inserts a signal and its full indicator breakdown
// in one transaction. Either everything lands or nothing does.
func (r *Repository) SaveSignalWithIndicators(ctx context.Context, signal *StockSignal, records []IndicatorRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO stock_signals (
			batch_id, ticker, company, sector, signal_type, classification, smart_score,
			strength_score, confidence_score, quality_score, risk_score,
			score_1h, score_4h, score_1d, score_1w,
			current_price, daily_change_percent, entry_price, stop_loss, target_price, mode
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at
	`
	err = tx.QueryRow(
		ctx, query,
		signal.BatchID, signal.Ticker, signal.Company, signal.Sector,
		signal.SignalType, signal.Classification, signal.SmartScore,
		signal.StrengthScore, signal.ConfidenceScore, signal.QualityScore, signal.RiskScore,
		signal.Score1H, signal.Score4H, signal.Score1D, signal.Score1W,
		signal.CurrentPrice, signal.DailyChangePct, signal.EntryPrice, signal.StopLoss, signal.TargetPrice, signal.Mode,
	).Scan(&signal.ID, &signal.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}

	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []interface{}{
			signal.ID, rec.Indicator, rec.Timeframe, rec.RawValue,
			rec.Contribution, rec.DataAvailable, rec.Metadata,
		})
	}
	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"signal_indicators"},
		[]string{"signal_id", "indicator", "timeframe", "raw_value", "contribution", "data_available", "metadata"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert indicator records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// DeleteAllSignals wipes the signal tables for a full-replace scan.
// Outcomes are kept; their signal_id references become NULL.
func (r *Repository) DeleteAllSignals(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM stock_signals`)
	if err != nil {
		return fmt.Errorf("delete signals: %w", err)
	}
	return nil
}

// GetSignals retrieves signals ordered by smart score, best first
func (r *Repository) GetSignals(ctx context.Context, limit, offset int) ([]*StockSignal, error) {
	query := `
		SELECT id, batch_id, ticker, company, sector, signal_type, classification, smart_score,
		       strength_score, confidence_score, quality_score, risk_score,
		       score_1h, score_4h, score_1d, score_1w,
		       current_price, daily_change_percent, entry_price, stop_loss, target_price, mode, created_at
		FROM stock_signals
		ORDER BY smart_score DESC, ticker ASC
		LIMIT $1 OFFSET $2
	`
	return r.querySignals(ctx, query, limit, offset)
}

// GetSignalByID retrieves a single signal
func (r *Repository) GetSignalByID(ctx context.Context, id int64) (*StockSignal, error) {
	query := `
		SELECT id, batch_id, ticker, company, sector, signal_type, classification, smart_score,
		       strength_score, confidence_score, quality_score, risk_score,
		       score_1h, score_4h, score_1d, score_1w,
		       current_price, daily_change_percent, entry_price, stop_loss, target_price, mode, created_at
		FROM stock_signals
		WHERE id = $1
	`
	s := &StockSignal{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.BatchID, &s.Ticker, &s.Company, &s.Sector, &s.SignalType,
		&s.Classification, &s.SmartScore,
		&s.StrengthScore, &s.ConfidenceScore, &s.QualityScore, &s.RiskScore,
		&s.Score1H, &s.Score4H, &s.Score1D, &s.Score1W,
		&s.CurrentPrice, &s.DailyChangePct, &s.EntryPrice, &s.StopLoss, &s.TargetPrice, &s.Mode, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSignalsByBatch retrieves every signal saved under one batch
func (r *Repository) GetSignalsByBatch(ctx context.Context, batchID uuid.UUID) ([]*StockSignal, error) {
	query := `
		SELECT id, batch_id, ticker, company, sector, signal_type, classification, smart_score,
		       strength_score, confidence_score, quality_score, risk_score,
		       score_1h, score_4h, score_1d, score_1w,
		       current_price, daily_change_percent, entry_price, stop_loss, target_price, mode, created_at
		FROM stock_signals
		WHERE batch_id = $1
		ORDER BY smart_score DESC
	`
	return r.querySignals(ctx, query, batchID)
}

func (r *Repository) querySignals(ctx context.Context, query string, args ...interface{}) ([]*StockSignal, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*StockSignal
	for rows.Next() {
		s := &StockSignal{}
		err := rows.Scan(
			&s.ID, &s.BatchID, &s.Ticker, &s.Company, &s.Sector, &s.SignalType,
			&s.Classification, &s.SmartScore,
			&s.StrengthScore, &s.ConfidenceScore, &s.QualityScore, &s.RiskScore,
			&s.Score1H, &s.Score4H, &s.Score1D, &s.Score1W,
			&s.CurrentPrice, &s.DailyChangePct, &s.EntryPrice, &s.StopLoss, &s.TargetPrice, &s.Mode, &s.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

// GetIndicatorsBySignalID retrieves a signal's full indicator breakdown
func (r *Repository) GetIndicatorsBySignalID(ctx context.Context, signalID int64) ([]*IndicatorRecord, error) {
	query := `
		SELECT id, signal_id, indicator, timeframe, raw_value, contribution, data_available, metadata, created_at
		FROM signal_indicators
		WHERE signal_id = $1
		ORDER BY timeframe, indicator
	`
	rows, err := r.db.Pool.Query(ctx, query, signalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*IndicatorRecord
	for rows.Next() {
		rec := &IndicatorRecord{}
		err := rows.Scan(
			&rec.ID, &rec.SignalID, &rec.Indicator, &rec.Timeframe,
			&rec.RawValue, &rec.Contribution, &rec.DataAvailable, &rec.Metadata, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ============================================================================
// OUTCOMES
// ============================================================================

// CreateOutcome records a closed position
func (r *Repository) CreateOutcome(ctx context.Context, outcome *SignalOutcome) error {
	query := `
		INSERT INTO signal_outcomes (
			signal_id, ticker, signal_type, classification, smart_score,
			entry_price, exit_price, pnl_percent, outcome_type, success, holding_hours,
			market_regime, volatility_bucket, indicators, closed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`
	return r.db.Pool.QueryRow(
		ctx, query,
		outcome.SignalID, outcome.Ticker, outcome.SignalType, outcome.Classification,
		outcome.SmartScore, outcome.EntryPrice, outcome.ExitPrice, outcome.PnLPercent,
		outcome.OutcomeType, outcome.Success, outcome.HoldingHours,
		outcome.MarketRegime, outcome.VolatilityBucket, outcome.Indicators, outcome.ClosedAt,
	).Scan(&outcome.ID, &outcome.CreatedAt)
}

// GetRecentOutcomes retrieves the most recently closed outcomes
func (r *Repository) GetRecentOutcomes(ctx context.Context, limit int) ([]*SignalOutcome, error) {
	query := `
		SELECT id, signal_id, ticker, signal_type, classification, smart_score,
		       entry_price, exit_price, pnl_percent, outcome_type, success, holding_hours,
		       market_regime, volatility_bucket, indicators, closed_at, created_at
		FROM signal_outcomes
		ORDER BY closed_at DESC
		LIMIT $1
	`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*SignalOutcome
	for rows.Next() {
		o := &SignalOutcome{}
		err := rows.Scan(
			&o.ID, &o.SignalID, &o.Ticker, &o.SignalType, &o.Classification, &o.SmartScore,
			&o.EntryPrice, &o.ExitPrice, &o.PnLPercent, &o.OutcomeType, &o.Success, &o.HoldingHours,
			&o.MarketRegime, &o.VolatilityBucket, &o.Indicators, &o.ClosedAt, &o.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// CountOutcomes returns the total number of recorded outcomes
func (r *Repository) CountOutcomes(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM signal_outcomes`).Scan(&count)
	return count, err
}

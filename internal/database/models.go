package database

import (
	"time"

	"github.com/google/uuid"
)

// StockSignal is a persisted scan result for one stock
type StockSignal struct {
	ID              int64     `json:"id"`
	BatchID         uuid.UUID `json:"batch_id"`
	Ticker          string    `json:"ticker"`
	Company         string    `json:"company"`
	Sector          string    `json:"sector"`
	SignalType      string    `json:"signal_type"`
	Classification  string    `json:"classification"`
	SmartScore      int       `json:"smart_score"`
	StrengthScore   float64   `json:"strength_score"`
	ConfidenceScore float64   `json:"confidence_score"`
	QualityScore    float64   `json:"quality_score"`
	RiskScore       float64   `json:"risk_score"`
	Score1H         float64   `json:"score_1h"`
	Score4H         float64   `json:"score_4h"`
	Score1D         float64   `json:"score_1d"`
	Score1W         float64   `json:"score_1w"`
	CurrentPrice    float64   `json:"current_price"`
	DailyChangePct  float64   `json:"daily_change_percent"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TargetPrice     float64   `json:"target_price"`
	Mode            string    `json:"mode"`
	CreatedAt       time.Time `json:"created_at"`
}

// IndicatorRecord is one row of a signal's indicator breakdown.
// RawValue is nil and DataAvailable false when the series could not
// support a real reading.
type IndicatorRecord struct {
	ID            int64     `json:"id"`
	SignalID      int64     `json:"signal_id"`
	Indicator     string    `json:"indicator"`
	Timeframe     string    `json:"timeframe"`
	RawValue      *float64  `json:"raw_value"`
	Contribution  float64   `json:"contribution"`
	DataAvailable bool      `json:"data_available"`
	Metadata      []byte    `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Outcome types as recorded by the external trade tracker
const (
	OutcomeWin       = "win"
	OutcomeLoss      = "loss"
	OutcomeBreakeven = "breakeven"
	OutcomeExpired   = "expired"
)

// SignalOutcome records how a closed position traced back to a signal
// actually performed. Indicators holds the indicator fingerprint snapshot
// at signal time for pattern matching; MarketRegime and VolatilityBucket
// capture the conditions the signal fired under.
type SignalOutcome struct {
	ID               int64     `json:"id"`
	SignalID         *int64    `json:"signal_id"`
	Ticker           string    `json:"ticker"`
	SignalType       string    `json:"signal_type"`
	Classification   string    `json:"classification"`
	SmartScore       int       `json:"smart_score"`
	EntryPrice       float64   `json:"entry_price"`
	ExitPrice        float64   `json:"exit_price"`
	PnLPercent       float64   `json:"pnl_percent"`
	OutcomeType      string    `json:"outcome_type"`
	Success          bool      `json:"success"`
	HoldingHours     float64   `json:"holding_hours"`
	MarketRegime     *string   `json:"market_regime"`
	VolatilityBucket *string   `json:"volatility_bucket"`
	Indicators       []byte    `json:"indicators,omitempty"`
	ClosedAt         time.Time `json:"closed_at"`
	CreatedAt        time.Time `json:"created_at"`
}

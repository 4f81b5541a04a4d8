package knowledge

import (
	"encoding/json"
	"time"

	"equity-signal-engine/internal/database"
)

// FingerprintEntry is one indicator's reading inside an outcome snapshot.
type FingerprintEntry struct {
	RawValue     float64 `json:"raw_value"`
	Contribution float64 `json:"contribution"`
}

// Fingerprint maps "indicator:timeframe" keys to the reading the signal
// carried when it fired.
type Fingerprint map[string]FingerprintEntry

// ParseFingerprint decodes an outcome's indicator snapshot. A missing or
// malformed snapshot yields nil; callers treat that outcome as unmatchable.
func ParseFingerprint(raw []byte) Fingerprint {
	if len(raw) == 0 {
		return nil
	}
	var fp Fingerprint
	if err := json.Unmarshal(raw, &fp); err != nil {
		return nil
	}
	if len(fp) == 0 {
		return nil
	}
	return fp
}

// IndicatorPerformance summarizes how signals backed by one indicator on one
// timeframe actually performed.
type IndicatorPerformance struct {
	Indicator         string  `json:"indicator"`
	Timeframe         string  `json:"timeframe"`
	Samples           int     `json:"samples"`
	SuccessRate       float64 `json:"success_rate"`
	DampedSuccessRate float64 `json:"damped_success_rate"`
	Confidence        float64 `json:"confidence"`
	AvgPnLPercent     float64 `json:"avg_pnl_percent"`
}

// ConditionPerformance summarizes outcomes grouped by the market conditions
// the signal fired under.
type ConditionPerformance struct {
	Regime            string  `json:"regime"`
	VolatilityBucket  string  `json:"volatility_bucket"`
	Samples           int     `json:"samples"`
	SuccessRate       float64 `json:"success_rate"`
	DampedSuccessRate float64 `json:"damped_success_rate"`
	Confidence        float64 `json:"confidence"`
	AvgPnLPercent     float64 `json:"avg_pnl_percent"`
}

// Calibration recommendations.
const (
	RecommendIncrease = "increase"
	RecommendDecrease = "decrease"
	RecommendMaintain = "maintain"
)

// CalibrationBucket compares predicted success against realized success for
// one smart-score band.
type CalibrationBucket struct {
	Bucket            string  `json:"bucket"`
	Samples           int     `json:"samples"`
	PredictedRate     float64 `json:"predicted_rate"`
	ActualRate        float64 `json:"actual_rate"`
	CalibrationFactor float64 `json:"calibration_factor"`
	Recommendation    string  `json:"recommendation"`
}

// PatternStat summarizes outcomes sharing an indicator-combination signature.
type PatternStat struct {
	Signature         string  `json:"signature"`
	Samples           int     `json:"samples"`
	SuccessRate       float64 `json:"success_rate"`
	DampedSuccessRate float64 `json:"damped_success_rate"`
	Confidence        float64 `json:"confidence"`
	AvgPnLPercent     float64 `json:"avg_pnl_percent"`
}

// Insights is the full output of one knowledge engine run.
type Insights struct {
	GeneratedAt          time.Time              `json:"generated_at"`
	TotalOutcomes        int                    `json:"total_outcomes"`
	IndicatorPerformance []IndicatorPerformance `json:"indicator_performance"`
	MarketConditions     []ConditionPerformance `json:"market_conditions"`
	Calibration          []CalibrationBucket    `json:"calibration"`
	Patterns             []PatternStat          `json:"patterns"`
}

// PatternMatch is one historical outcome judged similar to a query signal.
type PatternMatch struct {
	OutcomeID       int64   `json:"outcome_id"`
	Ticker          string  `json:"ticker"`
	Similarity      float64 `json:"similarity"`
	WeightedScore   float64 `json:"weighted_score"`
	Success         bool    `json:"success"`
	PnLPercent      float64 `json:"pnl_percent"`
	HoldingHours    float64 `json:"holding_hours"`
	SmartScore      int     `json:"smart_score"`
	Classification  string  `json:"classification"`
}

// MatchReport aggregates the retained matches for a query signal.
type MatchReport struct {
	SignalID        int64          `json:"signal_id"`
	Signature       []string       `json:"signature"`
	Matches         []PatternMatch `json:"matches"`
	SuccessRate     float64        `json:"success_rate"`
	AvgPnLPercent   float64        `json:"avg_pnl_percent"`
	AvgHoldingHours float64        `json:"avg_holding_hours"`
}

// BuildFingerprint converts a signal's stored indicator breakdown into the
// snapshot format outcomes carry, skipping rows with no real reading.
func BuildFingerprint(records []*database.IndicatorRecord) Fingerprint {
	fp := make(Fingerprint, len(records))
	for _, rec := range records {
		if !rec.DataAvailable || rec.RawValue == nil {
			continue
		}
		key := rec.Indicator + ":" + rec.Timeframe
		fp[key] = FingerprintEntry{RawValue: *rec.RawValue, Contribution: rec.Contribution}
	}
	return fp
}

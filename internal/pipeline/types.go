package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Per-stock terminal statuses. A batch never aborts on one stock; each gets
// exactly one of these.
type Status string

const (
	StatusSaved                 Status = "SAVED"
	StatusRejected              Status = "REJECTED"
	StatusSkippedNoData         Status = "SKIPPED_NO_REAL_DATA"
	StatusSkippedFewIndicators  Status = "SKIPPED_INSUFFICIENT_REAL_INDICATORS"
	StatusError                 Status = "ERROR"
)

// BatchMode controls what happens to existing signals before a scan.
type BatchMode string

const (
	// ModeFullReplace wipes all stored signals before the first stock.
	ModeFullReplace BatchMode = "full_replace"
	// ModeAppend leaves existing signals untouched.
	ModeAppend BatchMode = "append"
)

// StockResult is the outcome of processing one stock.
type StockResult struct {
	Ticker     string  `json:"ticker"`
	Status     Status  `json:"status"`
	SmartScore int     `json:"smart_score,omitempty"`
	SignalID   int64   `json:"signal_id,omitempty"`
	Score1H    float64 `json:"score_1h,omitempty"`
	Score4H    float64 `json:"score_4h,omitempty"`
	Score1D    float64 `json:"score_1d,omitempty"`
	Score1W    float64 `json:"score_1w,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// BatchSummary aggregates one scan run.
type BatchSummary struct {
	BatchID     uuid.UUID     `json:"batch_id"`
	BatchNumber int           `json:"batch_number"`
	Mode        BatchMode     `json:"mode"`
	Processed   int           `json:"processed"`
	Saved       int           `json:"saved"`
	Rejected    int           `json:"rejected"`
	Skipped     int           `json:"skipped"`
	Errors      int           `json:"errors"`
	CacheHits   int64         `json:"cache_hits"`
	CacheMisses int64         `json:"cache_misses"`
	Elapsed     time.Duration `json:"elapsed"`
	Results     []StockResult `json:"results"`
}

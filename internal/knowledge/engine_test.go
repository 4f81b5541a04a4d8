package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"equity-signal-engine/internal/database"
)

// mockOutcomes serves a canned outcome history
type mockOutcomes struct {
	outcomes []*database.SignalOutcome
}

func (m *mockOutcomes) CountOutcomes(ctx context.Context) (int, error) {
	return len(m.outcomes), nil
}

func (m *mockOutcomes) GetRecentOutcomes(ctx context.Context, limit int) ([]*database.SignalOutcome, error) {
	if len(m.outcomes) > limit {
		return m.outcomes[:limit], nil
	}
	return m.outcomes, nil
}

func fingerprintJSON(t *testing.T, fp Fingerprint) []byte {
	t.Helper()
	b, err := json.Marshal(fp)
	if err != nil {
		t.Fatalf("marshal fingerprint: %v", err)
	}
	return b
}

func outcome(id int64, score int, success bool, pnl float64, fp []byte) *database.SignalOutcome {
	outcomeType := database.OutcomeLoss
	if success {
		outcomeType = database.OutcomeWin
	}
	return &database.SignalOutcome{
		ID:          id,
		Ticker:      "TEST",
		SignalType:  "bullish",
		SmartScore:  score,
		PnLPercent:  pnl,
		OutcomeType: outcomeType,
		Success:     success,
		Indicators:  fp,
		ClosedAt:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

// TestAnalyzeSkipsSmallSample tests the global minimum threshold
func TestAnalyzeSkipsSmallSample(t *testing.T) {
	reader := &mockOutcomes{outcomes: []*database.SignalOutcome{
		outcome(1, 80, true, 5, nil),
	}}
	engine := NewEngine(reader, 10, 500, zerolog.Nop())

	_, err := engine.Analyze(context.Background())
	if !errors.Is(err, ErrInsufficientOutcomes) {
		t.Errorf("Small sample should return ErrInsufficientOutcomes, got %v", err)
	}
}

// TestSampleConfidence tests the log-scaled confidence curve
func TestSampleConfidence(t *testing.T) {
	if got := SampleConfidence(9); math.Abs(got-20) > 0.01 {
		t.Errorf("SampleConfidence(9) should be 20, got %.2f", got)
	}
	if got := SampleConfidence(99); math.Abs(got-40) > 0.01 {
		t.Errorf("SampleConfidence(99) should be 40, got %.2f", got)
	}
	if got := SampleConfidence(1000000); got != 100 {
		t.Errorf("SampleConfidence should cap at 100, got %.2f", got)
	}
}

// TestDampedRate tests the pull toward 50 on small samples
func TestDampedRate(t *testing.T) {
	// 3-for-3 should not read as a 100% edge
	got := DampedRate(100, 3)
	want := (100.0*3 + 50*5) / 8
	if math.Abs(got-want) > 0.01 {
		t.Errorf("DampedRate(100, 3) should be %.2f, got %.2f", want, got)
	}

	// Large samples barely move
	got = DampedRate(70, 1000)
	if math.Abs(got-70) > 0.2 {
		t.Errorf("DampedRate on a large sample should stay near 70, got %.2f", got)
	}
}

// TestAnalyzeIndicatorPerformance tests grouping by contributing indicator
func TestAnalyzeIndicatorPerformance(t *testing.T) {
	fp := fingerprintJSON(t, Fingerprint{
		"rsi:1d":  {RawValue: 25, Contribution: 20},
		"macd:1d": {RawValue: -1, Contribution: -5},
	})

	var outcomes []*database.SignalOutcome
	for i := 0; i < 12; i++ {
		outcomes = append(outcomes, outcome(int64(i), 80, i < 9, 2, fp))
	}
	engine := NewEngine(&mockOutcomes{outcomes: outcomes}, 10, 500, zerolog.Nop())

	insights, err := engine.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(insights.IndicatorPerformance) != 1 {
		t.Fatalf("Only the contributing indicator should group, got %d groups", len(insights.IndicatorPerformance))
	}

	perf := insights.IndicatorPerformance[0]
	if perf.Indicator != "rsi" || perf.Timeframe != "1d" {
		t.Errorf("Expected rsi/1d group, got %s/%s", perf.Indicator, perf.Timeframe)
	}
	if perf.Samples != 12 {
		t.Errorf("Expected 12 samples, got %d", perf.Samples)
	}
	if math.Abs(perf.SuccessRate-75) > 0.01 {
		t.Errorf("Expected 75%% success rate, got %.2f", perf.SuccessRate)
	}
	if perf.DampedSuccessRate >= perf.SuccessRate {
		t.Error("A 75% rate on 12 samples should damp downward toward 50")
	}
}

// TestAnalyzeCalibration tests the overconfidence detection
func TestAnalyzeCalibration(t *testing.T) {
	// 10 outcomes scored in the 80s but only 3 wins: heavily overconfident
	var outcomes []*database.SignalOutcome
	for i := 0; i < 10; i++ {
		outcomes = append(outcomes, outcome(int64(i), 85, i < 3, -1, nil))
	}
	engine := NewEngine(&mockOutcomes{outcomes: outcomes}, 10, 500, zerolog.Nop())

	insights, err := engine.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(insights.Calibration) != 1 {
		t.Fatalf("Expected 1 calibration bucket, got %d", len(insights.Calibration))
	}

	bucket := insights.Calibration[0]
	if bucket.Bucket != "80-89" {
		t.Errorf("Expected bucket 80-89, got %s", bucket.Bucket)
	}
	// Actual 30% against predicted 85 gives a factor well below 0.9
	if bucket.Recommendation != RecommendDecrease {
		t.Errorf("Overconfident bucket should recommend decrease, got %s", bucket.Recommendation)
	}

	// The inverse: modest scores that win almost always
	outcomes = nil
	for i := 0; i < 10; i++ {
		outcomes = append(outcomes, outcome(int64(i), 55, i < 9, 4, nil))
	}
	engine = NewEngine(&mockOutcomes{outcomes: outcomes}, 10, 500, zerolog.Nop())

	insights, err = engine.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if insights.Calibration[0].Recommendation != RecommendIncrease {
		t.Errorf("Underconfident bucket should recommend increase, got %s", insights.Calibration[0].Recommendation)
	}
}

// TestAnalyzeConditionsRequiresSnapshot tests that unlabeled outcomes drop out
func TestAnalyzeConditionsRequiresSnapshot(t *testing.T) {
	regime := "uptrend"
	vol := "low"

	var outcomes []*database.SignalOutcome
	for i := 0; i < 12; i++ {
		o := outcome(int64(i), 75, true, 3, nil)
		if i < 6 {
			o.MarketRegime = &regime
			o.VolatilityBucket = &vol
		}
		outcomes = append(outcomes, o)
	}
	engine := NewEngine(&mockOutcomes{outcomes: outcomes}, 10, 500, zerolog.Nop())

	insights, err := engine.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(insights.MarketConditions) != 1 {
		t.Fatalf("Expected 1 condition group, got %d", len(insights.MarketConditions))
	}
	if insights.MarketConditions[0].Samples != 6 {
		t.Errorf("Only labeled outcomes should count, got %d samples", insights.MarketConditions[0].Samples)
	}
}

// TestAnalyzePatternsGroupsBySignature tests the signature grouping
func TestAnalyzePatternsGroupsBySignature(t *testing.T) {
	fpA := fingerprintJSON(t, Fingerprint{
		"rsi:1d":          {RawValue: 25, Contribution: 20},
		"macd:1d":         {RawValue: 2, Contribution: 15},
		"bollinger_b:1d":  {RawValue: 0.1, Contribution: 15},
		"volume_ratio:1d": {RawValue: 2.1, Contribution: 10},
	})
	fpB := fingerprintJSON(t, Fingerprint{
		"stochastic_k:1d": {RawValue: 10, Contribution: 8},
	})

	var outcomes []*database.SignalOutcome
	for i := 0; i < 8; i++ {
		outcomes = append(outcomes, outcome(int64(i), 80, true, 3, fpA))
	}
	for i := 8; i < 12; i++ {
		outcomes = append(outcomes, outcome(int64(i), 70, false, -2, fpB))
	}
	engine := NewEngine(&mockOutcomes{outcomes: outcomes}, 10, 500, zerolog.Nop())

	insights, err := engine.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(insights.Patterns) != 2 {
		t.Fatalf("Expected 2 pattern groups, got %d", len(insights.Patterns))
	}
	// Sorted by damped success, the winning pattern leads
	if insights.Patterns[0].Samples != 8 {
		t.Errorf("Winning pattern should have 8 samples, got %d", insights.Patterns[0].Samples)
	}
}

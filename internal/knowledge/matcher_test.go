package knowledge

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"equity-signal-engine/internal/database"
)

// mockIndicators serves a canned breakdown per signal
type mockIndicators struct {
	records map[int64][]*database.IndicatorRecord
}

func (m *mockIndicators) GetIndicatorsBySignalID(ctx context.Context, signalID int64) ([]*database.IndicatorRecord, error) {
	return m.records[signalID], nil
}

func record(indicator, tf string, raw, contribution float64) *database.IndicatorRecord {
	return &database.IndicatorRecord{
		Indicator:     indicator,
		Timeframe:     tf,
		RawValue:      &raw,
		Contribution:  contribution,
		DataAvailable: true,
	}
}

// TestSignatureOfPicksTopFour tests the top-contribution selection
func TestSignatureOfPicksTopFour(t *testing.T) {
	fp := Fingerprint{
		"rsi:1d":                {RawValue: 25, Contribution: 20},
		"macd:1d":               {RawValue: 2, Contribution: 15},
		"bollinger_b:1d":        {RawValue: 0.1, Contribution: 15},
		"stochastic_k:1d":       {RawValue: 10, Contribution: 8},
		"williams_r:1d":         {RawValue: -85, Contribution: 7},
		"volume_ratio:1d":       {RawValue: 1.0, Contribution: 0},
		"support_resistance:1d": {RawValue: 98, Contribution: 5},
	}

	sig := SignatureOf(fp)

	if len(sig) != 4 {
		t.Fatalf("Signature should have 4 indicators, got %d", len(sig))
	}

	want := map[string]bool{"rsi:1d": true, "macd:1d": true, "bollinger_b:1d": true, "stochastic_k:1d": true}
	for _, key := range sig {
		if !want[key] {
			t.Errorf("Unexpected signature member %s", key)
		}
	}
}

// TestSignatureOfNegativeContributions tests magnitude-based selection
func TestSignatureOfNegativeContributions(t *testing.T) {
	fp := Fingerprint{
		"rsi:1d":  {RawValue: 85, Contribution: -10},
		"macd:1d": {RawValue: 0.5, Contribution: 5},
	}

	sig := SignatureOf(fp)

	if len(sig) != 2 {
		t.Fatalf("Expected both indicators in the signature, got %d", len(sig))
	}
}

// TestSimilarityRSIZones tests zone-membership comparison
func TestSimilarityRSIZones(t *testing.T) {
	oversoldA := Fingerprint{"rsi:1d": {RawValue: 22, Contribution: 20}}
	oversoldB := Fingerprint{"rsi:1d": {RawValue: 28, Contribution: 20}}
	overbought := Fingerprint{"rsi:1d": {RawValue: 82, Contribution: -10}}

	sim, compared := Similarity(oversoldA, oversoldB)
	if compared != 1 || sim != 100 {
		t.Errorf("Same RSI zone should score 100, got %.2f over %d indicators", sim, compared)
	}

	sim, _ = Similarity(oversoldA, overbought)
	if sim != 0 {
		t.Errorf("Opposite RSI zones should score 0, got %.2f", sim)
	}
}

// TestSimilarityMACDSignAndMagnitude tests the sign-plus-magnitude rule
func TestSimilarityMACDSignAndMagnitude(t *testing.T) {
	a := Fingerprint{"macd:1d": {RawValue: 2.0, Contribution: 15}}
	same := Fingerprint{"macd:1d": {RawValue: 2.0, Contribution: 15}}
	weaker := Fingerprint{"macd:1d": {RawValue: 1.0, Contribution: 15}}
	opposite := Fingerprint{"macd:1d": {RawValue: -2.0, Contribution: -5}}

	if sim, _ := Similarity(a, same); sim != 100 {
		t.Errorf("Identical MACD should score 100, got %.2f", sim)
	}
	if sim, _ := Similarity(a, weaker); sim != 85 {
		t.Errorf("Half magnitude same sign should score 85, got %.2f", sim)
	}
	if sim, _ := Similarity(a, opposite); sim != 0 {
		t.Errorf("Opposite MACD sign should score 0, got %.2f", sim)
	}
}

// TestSimilarityNoCommonIndicators tests the incomparable case
func TestSimilarityNoCommonIndicators(t *testing.T) {
	a := Fingerprint{"rsi:1d": {RawValue: 25, Contribution: 20}}
	b := Fingerprint{"macd:1h": {RawValue: 1, Contribution: 15}}

	_, compared := Similarity(a, b)
	if compared != 0 {
		t.Errorf("Disjoint fingerprints should compare 0 indicators, got %d", compared)
	}
}

// TestMatchFloorAndAggregation tests the end-to-end match path
func TestMatchFloorAndAggregation(t *testing.T) {
	indicators := &mockIndicators{records: map[int64][]*database.IndicatorRecord{
		1: {
			record("rsi", "1d", 25, 20),
			record("macd", "1d", 2.0, 15),
		},
	}}

	similar := fingerprintJSON(t, Fingerprint{
		"rsi:1d":  {RawValue: 24, Contribution: 20},
		"macd:1d": {RawValue: 1.9, Contribution: 15},
	})
	dissimilar := fingerprintJSON(t, Fingerprint{
		"rsi:1d":  {RawValue: 85, Contribution: -10},
		"macd:1d": {RawValue: -2.0, Contribution: -5},
	})

	outcomes := &mockOutcomes{outcomes: []*database.SignalOutcome{
		outcome(10, 90, true, 6.0, similar),
		outcome(11, 80, true, 4.0, similar),
		outcome(12, 70, false, -3.0, dissimilar),
	}}

	matcher := NewMatcher(indicators, outcomes, 500, 60, 20, zerolog.Nop())

	report, err := matcher.Match(context.Background(), 1)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}

	if len(report.Matches) != 2 {
		t.Fatalf("Only similar outcomes should pass the floor, got %d matches", len(report.Matches))
	}
	if report.SuccessRate != 100 {
		t.Errorf("Both matches won, success rate should be 100, got %.2f", report.SuccessRate)
	}
	if report.AvgPnLPercent != 5.0 {
		t.Errorf("Average P&L should be 5.0, got %.2f", report.AvgPnLPercent)
	}

	// Higher-quality records rank first
	if report.Matches[0].SmartScore != 90 {
		t.Errorf("Highest weighted match should lead, got score %d", report.Matches[0].SmartScore)
	}
}

// TestMatchNoFingerprint tests the unmatched-signal error
func TestMatchNoFingerprint(t *testing.T) {
	indicators := &mockIndicators{records: map[int64][]*database.IndicatorRecord{}}
	matcher := NewMatcher(indicators, &mockOutcomes{}, 500, 60, 20, zerolog.Nop())

	if _, err := matcher.Match(context.Background(), 99); err != ErrNoFingerprint {
		t.Errorf("Expected ErrNoFingerprint, got %v", err)
	}
}

// TestMatchRespectsMaxMatches tests the top-N cut
func TestMatchRespectsMaxMatches(t *testing.T) {
	indicators := &mockIndicators{records: map[int64][]*database.IndicatorRecord{
		1: {record("rsi", "1d", 25, 20)},
	}}

	similar := fingerprintJSON(t, Fingerprint{"rsi:1d": {RawValue: 26, Contribution: 20}})
	var history []*database.SignalOutcome
	for i := int64(0); i < 30; i++ {
		history = append(history, outcome(i, 80, true, 2, similar))
	}

	matcher := NewMatcher(indicators, &mockOutcomes{outcomes: history}, 500, 60, 20, zerolog.Nop())

	report, err := matcher.Match(context.Background(), 1)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(report.Matches) != 20 {
		t.Errorf("Matches should cap at 20, got %d", len(report.Matches))
	}
}

package scoring

import (
	"math"
	"testing"

	"equity-signal-engine/internal/marketdata"
)

func tfScore(tf marketdata.Timeframe, score float64) TimeframeScore {
	return TimeframeScore{Timeframe: tf, Score: score}
}

// TestConfidencePerfectAgreement tests zero spread across timeframes
func TestConfidencePerfectAgreement(t *testing.T) {
	c := confidenceScore(
		tfScore(marketdata.TF1h, 80),
		tfScore(marketdata.TF4h, 80),
		tfScore(marketdata.TF1d, 80),
		tfScore(marketdata.TF1w, 80),
	)

	if c != 100 {
		t.Errorf("Identical scores should give confidence 100, got %.2f", c)
	}
}

// TestConfidenceWideSpread tests that disagreement lowers confidence
func TestConfidenceWideSpread(t *testing.T) {
	c := confidenceScore(
		tfScore(marketdata.TF1h, 90),
		tfScore(marketdata.TF4h, 40),
	)

	// std of {90,40} is 25, so confidence is 100 - (25/30)*100
	want := 100 - (25.0/30.0)*100
	if math.Abs(c-want) > 0.01 {
		t.Errorf("Expected confidence %.2f, got %.2f", want, c)
	}
}

// TestConfidenceSingleTimeframe tests the one-valid-score fallback
func TestConfidenceSingleTimeframe(t *testing.T) {
	c := confidenceScore(
		tfScore(marketdata.TF1h, 85),
		tfScore(marketdata.TF4h, 0),
		tfScore(marketdata.TF1d, 0),
		tfScore(marketdata.TF1w, 0),
	)

	if c != 40 {
		t.Errorf("One valid score should give confidence 40, got %.2f", c)
	}
}

// TestConfidenceNoData tests the all-invalid fallback
func TestConfidenceNoData(t *testing.T) {
	c := confidenceScore(
		tfScore(marketdata.TF1h, 0),
		tfScore(marketdata.TF4h, 0),
	)

	if c != 20 {
		t.Errorf("No valid scores should give confidence 20, got %.2f", c)
	}
}

// TestStrengthIgnoresInvalidScores tests that zeros do not drag the mean
func TestStrengthIgnoresInvalidScores(t *testing.T) {
	s := strengthScore(
		tfScore(marketdata.TF1h, 80),
		tfScore(marketdata.TF4h, 80),
		tfScore(marketdata.TF1d, 0),
		tfScore(marketdata.TF1w, 0),
	)

	if s != 80 {
		t.Errorf("Strength should be the mean of valid scores, got %.2f", s)
	}
}

// TestStrengthExcludesWeakScores tests that scores below 50 do not dilute the mean
func TestStrengthExcludesWeakScores(t *testing.T) {
	s := strengthScore(
		tfScore(marketdata.TF1h, 75),
		tfScore(marketdata.TF4h, 75),
		tfScore(marketdata.TF1d, 75),
		tfScore(marketdata.TF1w, 40),
	)

	// Only the three scores at or above 50 count: mean 75, not 66.25
	if s != 75 {
		t.Errorf("Strength should average only scores >= 50, got %.2f", s)
	}
}

// TestStrengthWeakBoard tests the raw-mean fallback when nothing reaches 50
func TestStrengthWeakBoard(t *testing.T) {
	s := strengthScore(
		tfScore(marketdata.TF1h, 30),
		tfScore(marketdata.TF4h, 0),
		tfScore(marketdata.TF1d, 0),
		tfScore(marketdata.TF1w, 0),
	)

	// No score reaches 50, so the raw mean 7.5 applies
	if s != 7.5 {
		t.Errorf("Weak board should fall back to the raw mean, got %.2f", s)
	}

	s = strengthScore(
		tfScore(marketdata.TF1h, 45),
		tfScore(marketdata.TF4h, 45),
		tfScore(marketdata.TF1d, 45),
		tfScore(marketdata.TF1w, 45),
	)
	if s != 45 {
		t.Errorf("All-weak board should read its raw mean 45, got %.2f", s)
	}
}

// TestQualityAlignment tests the timeframe ordering bonuses
func TestQualityAlignment(t *testing.T) {
	// Strictly descending short-to-long earns every ordering bonus, and the
	// 1H-1W gradient (85-40)/3 = 15 earns the momentum bonus; the 110 the
	// bonuses sum to caps at 100
	q := qualityScore(
		tfScore(marketdata.TF1h, 85),
		tfScore(marketdata.TF4h, 75),
		tfScore(marketdata.TF1d, 60),
		tfScore(marketdata.TF1w, 40),
	)

	if q != 100 {
		t.Errorf("Full alignment should cap quality at 100, got %.2f", q)
	}

	// Equal scores earn nothing beyond the base
	q = qualityScore(
		tfScore(marketdata.TF1h, 70),
		tfScore(marketdata.TF4h, 70),
		tfScore(marketdata.TF1d, 70),
		tfScore(marketdata.TF1w, 70),
	)
	if q != 60 {
		t.Errorf("Flat scores should give base quality 60, got %.2f", q)
	}
}

// TestQualitySkipsInvalidComparisons tests that missing timeframes earn nothing
func TestQualitySkipsInvalidComparisons(t *testing.T) {
	q := qualityScore(
		tfScore(marketdata.TF1h, 85),
		tfScore(marketdata.TF4h, 0),
		tfScore(marketdata.TF1d, 0),
		tfScore(marketdata.TF1w, 0),
	)

	if q != 60 {
		t.Errorf("Comparisons against invalid scores should be skipped, got %.2f", q)
	}
}

// TestRiskNeutralWithoutDailyData tests the missing-series fallback
func TestRiskNeutralWithoutDailyData(t *testing.T) {
	if r := riskScore(nil); r != 50 {
		t.Errorf("Risk without daily data should be neutral 50, got %.2f", r)
	}
}

// TestComputeCompositeAllSeventy tests the full blend on a flat strong board
func TestComputeCompositeAllSeventy(t *testing.T) {
	c := ComputeComposite(
		tfScore(marketdata.TF1h, 70),
		tfScore(marketdata.TF4h, 70),
		tfScore(marketdata.TF1d, 70),
		tfScore(marketdata.TF1w, 70),
		nil,
		DefaultWeights,
	)

	// Strength 70, confidence 100, quality 60, risk 50:
	// 0.30*70 + 0.35*100 + 0.25*60 + 0.10*50 = 76
	if c.SmartScore != 76 {
		t.Errorf("Expected smart score 76, got %d", c.SmartScore)
	}
	if c.Classification != ClassBuy {
		t.Errorf("Score 76 should classify as %s, got %s", ClassBuy, c.Classification)
	}
	if c.SignalType != TypeBullish {
		t.Errorf("Score 76 should be %s, got %s", TypeBullish, c.SignalType)
	}
}

// TestCompositeAcceleratingCascade tests that the best alignment outranks a
// flat board instead of being reset as malformed
func TestCompositeAcceleratingCascade(t *testing.T) {
	cascade := ComputeComposite(
		tfScore(marketdata.TF1h, 95),
		tfScore(marketdata.TF4h, 80),
		tfScore(marketdata.TF1d, 65),
		tfScore(marketdata.TF1w, 50),
		nil,
		DefaultWeights,
	)
	flat := ComputeComposite(
		tfScore(marketdata.TF1h, 70),
		tfScore(marketdata.TF4h, 70),
		tfScore(marketdata.TF1d, 70),
		tfScore(marketdata.TF1w, 70),
		nil,
		DefaultWeights,
	)

	if cascade.Quality != 100 {
		t.Errorf("Accelerating cascade should hold quality 100, got %.2f", cascade.Quality)
	}
	if cascade.Quality <= flat.Quality {
		t.Errorf("Cascade quality %.2f should exceed flat-board quality %.2f",
			cascade.Quality, flat.Quality)
	}
}

// TestClassify tests the classification bands
func TestClassify(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{95, ClassStrongBuy},
		{85, ClassStrongBuy},
		{84, ClassBuy},
		{75, ClassBuy},
		{70, ClassModerateBuy},
		{65, ClassModerateBuy},
		{50, ClassHold},
		{45, ClassModerateSell},
		{35, ClassSell},
		{29, ClassStrongSell},
		{0, ClassStrongSell},
	}

	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

// TestSignalType tests the direction bands
func TestSignalType(t *testing.T) {
	if SignalType(60) != TypeBullish {
		t.Error("Score 60 should be bullish")
	}
	if SignalType(59) != TypeNeutral {
		t.Error("Score 59 should be neutral")
	}
	if SignalType(39) != TypeBearish {
		t.Error("Score 39 should be bearish")
	}
}

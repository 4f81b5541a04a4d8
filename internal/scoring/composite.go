package scoring

import (
	"math"

	"equity-signal-engine/internal/indicators"
	"equity-signal-engine/internal/marketdata"
)

// Classification buckets for the final smart score.
const (
	ClassStrongBuy    = "STRONG_BUY"
	ClassBuy          = "BUY"
	ClassModerateBuy  = "MODERATE_BUY"
	ClassHold         = "HOLD"
	ClassModerateSell = "MODERATE_SELL"
	ClassSell         = "SELL"
	ClassStrongSell   = "STRONG_SELL"
)

// Signal direction labels.
const (
	TypeBullish = "bullish"
	TypeNeutral = "neutral"
	TypeBearish = "bearish"
)

// Weights controls the blend of the four composite dimensions. The four
// values should sum to 1.
type Weights struct {
	Strength   float64
	Confidence float64
	Quality    float64
	Risk       float64
}

// DefaultWeights favors cross-timeframe agreement over raw strength.
var DefaultWeights = Weights{Strength: 0.30, Confidence: 0.35, Quality: 0.25, Risk: 0.10}

// Composite is the final multi-dimensional rating for one stock.
type Composite struct {
	Strength       float64
	Confidence     float64
	Quality        float64
	Risk           float64
	SmartScore     int
	Classification string
	SignalType     string
}

// ComputeComposite folds the four timeframe scores and the daily series into
// the final rating. Timeframe scores of zero are treated as missing, not as
// minimum readings. dailySeries may be nil when no daily bars were fetched;
// risk then falls back to its neutral default.
func ComputeComposite(s1h, s4h, s1d, s1w TimeframeScore, dailySeries *marketdata.Series, weights Weights) Composite {
	strength := strengthScore(s1h, s4h, s1d, s1w)
	confidence := confidenceScore(s1h, s4h, s1d, s1w)
	quality := qualityScore(s1h, s4h, s1d, s1w)
	risk := riskScore(dailySeries)

	// Out-of-range or non-finite dimensions collapse to neutral rather than
	// poisoning the blend.
	strength = ClampToRange(strength, 50, 0, 100)
	confidence = ClampToRange(confidence, 50, 0, 100)
	quality = ClampToRange(quality, 50, 0, 100)
	risk = ClampToRange(risk, 50, 0, 100)

	smart := int(math.Round(
		weights.Strength*strength +
			weights.Confidence*confidence +
			weights.Quality*quality +
			weights.Risk*risk))

	return Composite{
		Strength:       strength,
		Confidence:     confidence,
		Quality:        quality,
		Risk:           risk,
		SmartScore:     smart,
		Classification: Classify(smart),
		SignalType:     SignalType(smart),
	}
}

// Classify maps a smart score onto its action bucket.
func Classify(score int) string {
	switch {
	case score >= 85:
		return ClassStrongBuy
	case score >= 75:
		return ClassBuy
	case score >= 65:
		return ClassModerateBuy
	case score >= 50:
		return ClassHold
	case score >= 40:
		return ClassModerateSell
	case score >= 30:
		return ClassSell
	default:
		return ClassStrongSell
	}
}

// SignalType reduces a smart score to its direction.
func SignalType(score int) string {
	switch {
	case score >= 60:
		return TypeBullish
	case score >= 40:
		return TypeNeutral
	default:
		return TypeBearish
	}
}

func strengthScore(scores ...TimeframeScore) float64 {
	strongSum, strongCount := 0.0, 0
	rawSum := 0.0
	for _, s := range scores {
		rawSum += s.Score
		if s.Valid() && s.Score >= 50 {
			strongSum += s.Score
			strongCount++
		}
	}
	// Strength reads the timeframes that actually show strength; one weak
	// timeframe should not drag down an otherwise strong board.
	if strongCount > 0 {
		return strongSum / float64(strongCount)
	}
	// Nothing reaches 50: average everything so a dead board reads as weak
	// rather than neutral.
	return rawSum / float64(len(scores))
}

func confidenceScore(scores ...TimeframeScore) float64 {
	valid := make([]float64, 0, len(scores))
	for _, s := range scores {
		if s.Valid() {
			valid = append(valid, s.Score)
		}
	}
	switch len(valid) {
	case 0:
		return 20
	case 1:
		return 40
	}

	mean := 0.0
	for _, v := range valid {
		mean += v
	}
	mean /= float64(len(valid))

	variance := 0.0
	for _, v := range valid {
		d := v - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(valid)))

	return math.Max(0, 100-(std/30)*100)
}

func qualityScore(s1h, s4h, s1d, s1w TimeframeScore) float64 {
	q := 60.0
	if s1h.Valid() && s4h.Valid() && s1h.Score > s4h.Score {
		q += 15
	}
	if s4h.Valid() && s1d.Valid() && s4h.Score > s1d.Score {
		q += 15
	}
	if s1d.Valid() && s1w.Valid() && s1d.Score > s1w.Score {
		q += 10
	}
	// Steep short-over-long gradient marks accelerating momentum.
	if s1h.Valid() && s1w.Valid() && (s1h.Score-s1w.Score)/3 > 10 {
		q += 10
	}
	// A full cascade plus the acceleration bonus sums past 100; cap it so the
	// best alignment reads as 100, not as malformed.
	return Clamp(q, 0, 100)
}

// riskVolWindow bounds how many daily returns feed the volatility estimate.
const riskVolWindow = 20

func riskScore(daily *marketdata.Series) float64 {
	if daily == nil || len(daily.Bars) < 2 {
		return 50
	}

	closes := daily.Closes()
	if len(closes) > riskVolWindow+1 {
		closes = closes[len(closes)-riskVolWindow-1:]
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	if len(returns) == 0 {
		return 50
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	volPct := math.Sqrt(variance / float64(len(returns)))

	stability := Clamp(100-10*volPct, 0, 100)
	score := (70 + stability) / 2

	// Heavy participation softens the risk read.
	volumes := daily.Volumes()
	if len(volumes) >= 2 {
		recent := volumes[:len(volumes)-1]
		if len(recent) > VolumeWindow {
			recent = recent[len(recent)-VolumeWindow:]
		}
		ratio := indicators.VolumeRatio(volumes[len(volumes)-1], recent)
		switch {
		case ratio >= 2.0:
			score += 15
		case ratio >= 1.5:
			score += 10
		case ratio >= 1.2:
			score += 5
		}
	}

	return Clamp(score, 0, 100)
}

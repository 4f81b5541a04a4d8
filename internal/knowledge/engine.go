package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"equity-signal-engine/internal/database"
)

// ErrInsufficientOutcomes means the history is too small for any analysis
// to say something defensible.
var ErrInsufficientOutcomes = errors.New("not enough outcomes recorded for analysis")

// Minimum group sizes per analysis. Looser for patterns since signatures
// fragment the sample space heavily.
const (
	minIndicatorSamples   = 10
	minConditionSamples   = 5
	minCalibrationSamples = 5
	minPatternSamples     = 3
)

// Damping pseudo-observations. Small groups are pulled toward a 50% success
// rate so a lucky 3-for-3 does not read as a 100% edge.
const (
	dampingPriorRate = 50.0
	dampingPriorN    = 5.0
)

// OutcomeReader is the slice of the repository the engine reads through.
type OutcomeReader interface {
	CountOutcomes(ctx context.Context) (int, error)
	GetRecentOutcomes(ctx context.Context, limit int) ([]*database.SignalOutcome, error)
}

// Engine runs the batch outcome analyses. It is read-only over the outcome
// history and safe to run while the pipeline writes signals.
type Engine struct {
	outcomes    OutcomeReader
	minOutcomes int
	scanLimit   int
	logger      zerolog.Logger
}

// NewEngine creates a knowledge engine.
func NewEngine(outcomes OutcomeReader, minOutcomes, scanLimit int, logger zerolog.Logger) *Engine {
	return &Engine{
		outcomes:    outcomes,
		minOutcomes: minOutcomes,
		scanLimit:   scanLimit,
		logger:      logger,
	}
}

// Analyze runs all four analyses over the recorded outcome history.
func (e *Engine) Analyze(ctx context.Context) (*Insights, error) {
	total, err := e.outcomes.CountOutcomes(ctx)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	if total < e.minOutcomes {
		e.logger.Info().
			Int("outcomes", total).
			Int("required", e.minOutcomes).
			Msg("Skipping knowledge analysis, sample too small")
		return nil, ErrInsufficientOutcomes
	}

	outcomes, err := e.outcomes.GetRecentOutcomes(ctx, e.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}

	insights := &Insights{
		GeneratedAt:          time.Now().UTC(),
		TotalOutcomes:        total,
		IndicatorPerformance: e.analyzeIndicators(outcomes),
		MarketConditions:     e.analyzeConditions(outcomes),
		Calibration:          e.analyzeCalibration(outcomes),
		Patterns:             e.analyzePatterns(outcomes),
	}

	e.logger.Info().
		Int("outcomes", len(outcomes)).
		Int("indicator_groups", len(insights.IndicatorPerformance)).
		Int("condition_groups", len(insights.MarketConditions)).
		Int("calibration_buckets", len(insights.Calibration)).
		Int("patterns", len(insights.Patterns)).
		Msg("Knowledge analysis complete")

	return insights, nil
}

// SampleConfidence converts a group size into a 0-100 confidence score.
func SampleConfidence(n int) float64 {
	return math.Min(100, 20*math.Log10(float64(n)+1))
}

// DampedRate pulls a raw success rate toward 50% in proportion to how few
// observations back it.
func DampedRate(rate float64, n int) float64 {
	return (rate*float64(n) + dampingPriorRate*dampingPriorN) / (float64(n) + dampingPriorN)
}

type groupAccum struct {
	samples   int
	successes int
	pnlSum    float64
}

func (g *groupAccum) add(o *database.SignalOutcome) {
	g.samples++
	if o.Success {
		g.successes++
	}
	g.pnlSum += o.PnLPercent
}

func (g *groupAccum) successRate() float64 {
	if g.samples == 0 {
		return 0
	}
	return float64(g.successes) / float64(g.samples) * 100
}

func (g *groupAccum) avgPnL() float64 {
	if g.samples == 0 {
		return 0
	}
	return g.pnlSum / float64(g.samples)
}

// analyzeIndicators groups outcomes by the indicators that voted for the
// signal. An indicator voted when its contribution was positive.
func (e *Engine) analyzeIndicators(outcomes []*database.SignalOutcome) []IndicatorPerformance {
	groups := make(map[string]*groupAccum)
	for _, o := range outcomes {
		fp := ParseFingerprint(o.Indicators)
		for key, entry := range fp {
			if entry.Contribution <= 0 {
				continue
			}
			g, ok := groups[key]
			if !ok {
				g = &groupAccum{}
				groups[key] = g
			}
			g.add(o)
		}
	}

	var results []IndicatorPerformance
	for key, g := range groups {
		if g.samples < minIndicatorSamples {
			continue
		}
		indicator, tf := splitFingerprintKey(key)
		rate := g.successRate()
		results = append(results, IndicatorPerformance{
			Indicator:         indicator,
			Timeframe:         tf,
			Samples:           g.samples,
			SuccessRate:       rate,
			DampedSuccessRate: DampedRate(rate, g.samples),
			Confidence:        SampleConfidence(g.samples),
			AvgPnLPercent:     g.avgPnL(),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DampedSuccessRate > results[j].DampedSuccessRate
	})
	return results
}

func (e *Engine) analyzeConditions(outcomes []*database.SignalOutcome) []ConditionPerformance {
	type conditionKey struct {
		regime string
		vol    string
	}
	groups := make(map[conditionKey]*groupAccum)
	for _, o := range outcomes {
		if o.MarketRegime == nil || o.VolatilityBucket == nil {
			continue
		}
		key := conditionKey{regime: *o.MarketRegime, vol: *o.VolatilityBucket}
		g, ok := groups[key]
		if !ok {
			g = &groupAccum{}
			groups[key] = g
		}
		g.add(o)
	}

	var results []ConditionPerformance
	for key, g := range groups {
		if g.samples < minConditionSamples {
			continue
		}
		rate := g.successRate()
		results = append(results, ConditionPerformance{
			Regime:            key.regime,
			VolatilityBucket:  key.vol,
			Samples:           g.samples,
			SuccessRate:       rate,
			DampedSuccessRate: DampedRate(rate, g.samples),
			Confidence:        SampleConfidence(g.samples),
			AvgPnLPercent:     g.avgPnL(),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DampedSuccessRate > results[j].DampedSuccessRate
	})
	return results
}

// scoreBuckets are the predicted-score bands calibration reasons over.
var scoreBuckets = []struct {
	label string
	low   int
	high  int
}{
	{"50-59", 50, 59},
	{"60-69", 60, 69},
	{"70-79", 70, 79},
	{"80-89", 80, 89},
	{"90-100", 90, 100},
}

// analyzeCalibration compares each score band's realized success rate
// against what the scores themselves implied.
func (e *Engine) analyzeCalibration(outcomes []*database.SignalOutcome) []CalibrationBucket {
	type calibAccum struct {
		groupAccum
		predictedSum float64
	}
	groups := make(map[string]*calibAccum)
	for _, o := range outcomes {
		for _, b := range scoreBuckets {
			if o.SmartScore >= b.low && o.SmartScore <= b.high {
				g, ok := groups[b.label]
				if !ok {
					g = &calibAccum{}
					groups[b.label] = g
				}
				g.add(o)
				g.predictedSum += float64(o.SmartScore)
				break
			}
		}
	}

	var results []CalibrationBucket
	for _, b := range scoreBuckets {
		g, ok := groups[b.label]
		if !ok || g.samples < minCalibrationSamples {
			continue
		}
		predicted := g.predictedSum / float64(g.samples)
		actual := g.successRate()
		factor := 0.0
		if predicted > 0 {
			factor = actual / predicted
		}
		recommendation := RecommendMaintain
		switch {
		case factor > 1.1:
			recommendation = RecommendIncrease
		case factor < 0.9:
			recommendation = RecommendDecrease
		}
		results = append(results, CalibrationBucket{
			Bucket:            b.label,
			Samples:           g.samples,
			PredictedRate:     predicted,
			ActualRate:        actual,
			CalibrationFactor: factor,
			Recommendation:    recommendation,
		})
	}
	return results
}

func (e *Engine) analyzePatterns(outcomes []*database.SignalOutcome) []PatternStat {
	groups := make(map[string]*groupAccum)
	for _, o := range outcomes {
		fp := ParseFingerprint(o.Indicators)
		sig := SignatureOf(fp)
		if len(sig) == 0 {
			continue
		}
		key := strings.Join(sig, "+")
		g, ok := groups[key]
		if !ok {
			g = &groupAccum{}
			groups[key] = g
		}
		g.add(o)
	}

	var results []PatternStat
	for key, g := range groups {
		if g.samples < minPatternSamples {
			continue
		}
		rate := g.successRate()
		results = append(results, PatternStat{
			Signature:         key,
			Samples:           g.samples,
			SuccessRate:       rate,
			DampedSuccessRate: DampedRate(rate, g.samples),
			Confidence:        SampleConfidence(g.samples),
			AvgPnLPercent:     g.avgPnL(),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].DampedSuccessRate > results[j].DampedSuccessRate
	})
	return results
}

func splitFingerprintKey(key string) (indicator, timeframe string) {
	if idx := strings.LastIndex(key, ":"); idx >= 0 {
		return key[:idx], key[idx+1:]
	}
	return key, ""
}

package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"equity-signal-engine/internal/database"
	"equity-signal-engine/internal/scoring"
)

// ErrNoFingerprint means the query signal has no real indicator readings to
// match against.
var ErrNoFingerprint = errors.New("signal has no usable indicator fingerprint")

// signatureSize is how many top-contribution indicators identify a pattern.
const signatureSize = 4

// IndicatorReader loads a signal's stored breakdown for matching.
type IndicatorReader interface {
	GetIndicatorsBySignalID(ctx context.Context, signalID int64) ([]*database.IndicatorRecord, error)
}

// Matcher searches the outcome history for signals whose indicator
// fingerprints resemble a query signal's.
type Matcher struct {
	indicators      IndicatorReader
	outcomes        OutcomeReader
	scanLimit       int
	similarityFloor float64
	maxMatches      int
	logger          zerolog.Logger
}

// NewMatcher creates a pattern matcher.
func NewMatcher(indicators IndicatorReader, outcomes OutcomeReader, scanLimit int, similarityFloor float64, maxMatches int, logger zerolog.Logger) *Matcher {
	return &Matcher{
		indicators:      indicators,
		outcomes:        outcomes,
		scanLimit:       scanLimit,
		similarityFloor: similarityFloor,
		maxMatches:      maxMatches,
		logger:          logger,
	}
}

// SignatureOf picks the highest-magnitude-contribution indicators from a
// fingerprint, sorted for a stable identity.
func SignatureOf(fp Fingerprint) []string {
	type entry struct {
		key string
		mag float64
	}
	entries := make([]entry, 0, len(fp))
	for key, e := range fp {
		if e.Contribution == 0 {
			continue
		}
		entries = append(entries, entry{key: key, mag: math.Abs(e.Contribution)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].mag != entries[j].mag {
			return entries[i].mag > entries[j].mag
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > signatureSize {
		entries = entries[:signatureSize]
	}
	sig := make([]string, len(entries))
	for i, e := range entries {
		sig[i] = e.key
	}
	sort.Strings(sig)
	return sig
}

// Match finds historical outcomes similar to the given signal and reports
// their aggregate performance.
func (m *Matcher) Match(ctx context.Context, signalID int64) (*MatchReport, error) {
	records, err := m.indicators.GetIndicatorsBySignalID(ctx, signalID)
	if err != nil {
		return nil, fmt.Errorf("load signal indicators: %w", err)
	}

	query := BuildFingerprint(records)
	if len(query) == 0 {
		return nil, ErrNoFingerprint
	}

	outcomes, err := m.outcomes.GetRecentOutcomes(ctx, m.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}

	report := &MatchReport{
		SignalID:  signalID,
		Signature: SignatureOf(query),
	}

	var matches []PatternMatch
	for _, o := range outcomes {
		fp := ParseFingerprint(o.Indicators)
		if fp == nil {
			continue
		}
		similarity, compared := Similarity(query, fp)
		if compared == 0 || similarity < m.similarityFloor {
			continue
		}
		matches = append(matches, PatternMatch{
			OutcomeID:      o.ID,
			Ticker:         o.Ticker,
			Similarity:     similarity,
			WeightedScore:  similarity * float64(o.SmartScore) / 100,
			Success:        o.Success,
			PnLPercent:     o.PnLPercent,
			HoldingHours:   o.HoldingHours,
			SmartScore:     o.SmartScore,
			Classification: o.Classification,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].WeightedScore > matches[j].WeightedScore
	})
	if len(matches) > m.maxMatches {
		matches = matches[:m.maxMatches]
	}
	report.Matches = matches

	if len(matches) > 0 {
		successes := 0
		for _, match := range matches {
			if match.Success {
				successes++
			}
			report.AvgPnLPercent += match.PnLPercent
			report.AvgHoldingHours += match.HoldingHours
		}
		report.SuccessRate = float64(successes) / float64(len(matches)) * 100
		report.AvgPnLPercent /= float64(len(matches))
		report.AvgHoldingHours /= float64(len(matches))
	}

	m.logger.Debug().
		Int64("signal_id", signalID).
		Int("matches", len(matches)).
		Float64("success_rate", report.SuccessRate).
		Msg("Pattern match complete")

	return report, nil
}

// Similarity scores two fingerprints over their common indicators, 0-100.
// Returns the number of indicators actually compared; zero common indicators
// means no similarity claim can be made.
func Similarity(a, b Fingerprint) (float64, int) {
	total := 0.0
	compared := 0
	for key, ea := range a {
		eb, ok := b[key]
		if !ok {
			continue
		}
		total += indicatorSimilarity(key, ea, eb)
		compared++
	}
	if compared == 0 {
		return 0, 0
	}
	return total / float64(compared), compared
}

// indicatorSimilarity applies per-indicator comparison rules. Oscillators
// compare zone membership or bounded distance, MACD compares sign and
// relative magnitude, volume compares ratio closeness.
func indicatorSimilarity(key string, a, b FingerprintEntry) float64 {
	indicator, _ := splitFingerprintKey(key)
	switch indicator {
	case scoring.IndRSI:
		return zoneSimilarity(rsiZone(a.RawValue), rsiZone(b.RawValue))
	case scoring.IndMACD:
		return macdSimilarity(a.RawValue, b.RawValue)
	case scoring.IndVolume:
		return ratioSimilarity(a.RawValue, b.RawValue)
	case scoring.IndStochastic:
		return boundedSimilarity(a.RawValue, b.RawValue, 100)
	case scoring.IndWilliams:
		return boundedSimilarity(a.RawValue, b.RawValue, 100)
	case scoring.IndBollinger:
		return boundedSimilarity(a.RawValue, b.RawValue, 1)
	default:
		// Levels are absolute prices and not comparable across stocks.
		// Agreement on the direction of the contribution is the signal.
		if sameSign(a.Contribution, b.Contribution) {
			return 100
		}
		return 0
	}
}

func rsiZone(v float64) int {
	switch {
	case v < 30:
		return 0
	case v > 70:
		return 2
	default:
		return 1
	}
}

func zoneSimilarity(za, zb int) float64 {
	switch diff := za - zb; {
	case diff == 0:
		return 100
	case diff == 1 || diff == -1:
		return 40
	default:
		return 0
	}
}

func macdSimilarity(a, b float64) float64 {
	if !sameSign(a, b) {
		return 0
	}
	absA, absB := math.Abs(a), math.Abs(b)
	if absA == 0 && absB == 0 {
		return 100
	}
	larger := math.Max(absA, absB)
	smaller := math.Min(absA, absB)
	// Same sign earns most of the score; relative magnitude earns the rest.
	return 70 + 30*(smaller/larger)
}

func ratioSimilarity(a, b float64) float64 {
	larger := math.Max(a, b)
	if larger <= 0 {
		return 0
	}
	return math.Max(0, 100*(1-math.Abs(a-b)/larger))
}

func boundedSimilarity(a, b, rangeWidth float64) float64 {
	return math.Max(0, 100*(1-math.Abs(a-b)/rangeWidth))
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}

// DescribeSignature renders a signature for logs and API payloads.
func DescribeSignature(sig []string) string {
	return strings.Join(sig, "+")
}

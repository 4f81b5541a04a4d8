// Package indicators implements the technical indicator battery. Every
// function tolerates short input by returning its documented neutral value;
// none of them panics or errors on insufficient history.
package indicators

import "math"

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// RSI calculates the Relative Strength Index over the trailing period.
// Returns 50 (neutral) with fewer than period+1 prices, 100 when there are
// gains and no losses, and 50 when the series is flat.
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50.0
	}

	gains := 0.0
	losses := 0.0

	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain > 0 {
			return 100.0
		}
		return 50.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// MACD (Moving Average Convergence Divergence)
// ============================================================================

// MACD calculates the difference between the short and long simple moving
// averages of the most recent prices. Returns 0 with fewer than longPeriod
// prices.
func MACD(prices []float64, shortPeriod, longPeriod int) float64 {
	if len(prices) < longPeriod {
		return 0
	}

	return sma(prices, shortPeriod) - sma(prices, longPeriod)
}

func sma(prices []float64, period int) float64 {
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period)
}

// ============================================================================
// BOLLINGER %B
// ============================================================================

// BollingerPercentB calculates the position of the last price within the
// Bollinger Bands, 0 at the lower band and 1 at the upper. Returns 0.5
// (band center) with insufficient data or when the bands collapse.
func BollingerPercentB(prices []float64, period int, multiplier float64) float64 {
	if len(prices) < period {
		return 0.5
	}

	middle := sma(prices, period)

	variance := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		diff := prices[i] - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	upper := middle + stdDev*multiplier
	lower := middle - stdDev*multiplier
	if upper == lower {
		return 0.5
	}

	current := prices[len(prices)-1]
	return (current - lower) / (upper - lower)
}

// ============================================================================
// VOLUME RATIO
// ============================================================================

// VolumeRatio compares current volume against the mean of recent volumes.
// Returns 1.0 (average activity) with no history or a zero mean.
func VolumeRatio(currentVolume float64, recentVolumes []float64) float64 {
	if len(recentVolumes) == 0 {
		return 1.0
	}

	sum := 0.0
	for _, v := range recentVolumes {
		sum += v
	}
	mean := sum / float64(len(recentVolumes))
	if mean == 0 {
		return 1.0
	}

	return currentVolume / mean
}

// ============================================================================
// STOCHASTIC %K
// ============================================================================

// StochasticK calculates the position of the last close within the period's
// high/low range as a percentage. Returns 50 with insufficient data or a
// zero range.
func StochasticK(prices, highs, lows []float64, period int) float64 {
	if len(prices) < period || len(highs) < period || len(lows) < period {
		return 50.0
	}

	highestHigh, lowestLow := rangeExtremes(highs, lows, period)
	if highestHigh == lowestLow {
		return 50.0
	}

	current := prices[len(prices)-1]
	return ((current - lowestLow) / (highestHigh - lowestLow)) * 100
}

// ============================================================================
// WILLIAMS %R
// ============================================================================

// WilliamsR calculates the inverted range position scaled to [-100, 0].
// Returns -50 on the same edge cases as StochasticK.
func WilliamsR(prices, highs, lows []float64, period int) float64 {
	if len(prices) < period || len(highs) < period || len(lows) < period {
		return -50.0
	}

	highestHigh, lowestLow := rangeExtremes(highs, lows, period)
	if highestHigh == lowestLow {
		return -50.0
	}

	current := prices[len(prices)-1]
	return ((highestHigh - current) / (highestHigh - lowestLow)) * -100
}

func rangeExtremes(highs, lows []float64, period int) (float64, float64) {
	highestHigh := highs[len(highs)-period]
	lowestLow := lows[len(lows)-period]
	for i := len(highs) - period; i < len(highs); i++ {
		if highs[i] > highestHigh {
			highestHigh = highs[i]
		}
		if lows[i] < lowestLow {
			lowestLow = lows[i]
		}
	}
	return highestHigh, lowestLow
}

// ============================================================================
// SUPPORT AND RESISTANCE
// ============================================================================

// LevelKind classifies a nearby price level relative to current price.
type LevelKind string

const (
	LevelSupport    LevelKind = "support"
	LevelResistance LevelKind = "resistance"
	LevelNeutral    LevelKind = "neutral"
)

// Level is a prior swing level close enough to the current price to act on.
type Level struct {
	Price    float64
	Kind     LevelKind
	Distance float64 // absolute distance from current price
}

// SupportResistance finds the nearest prior swing high or swing low within
// proximityDistance of the current price. Levels further away are not
// tradable and are filtered out; with none in range it returns nil.
func SupportResistance(prices, highs, lows []float64, lookback int, proximityDistance float64) *Level {
	if len(prices) < 3 || len(highs) != len(prices) || len(lows) != len(prices) {
		return nil
	}

	start := len(prices) - lookback
	if start < 1 {
		start = 1
	}
	// Exclude the current bar; a swing needs a bar on each side.
	end := len(prices) - 1

	current := prices[len(prices)-1]
	var nearest *Level

	consider := func(level float64) {
		distance := math.Abs(level - current)
		if distance > proximityDistance {
			return
		}
		if nearest != nil && distance >= nearest.Distance {
			return
		}
		kind := LevelNeutral
		switch {
		case level < current:
			kind = LevelSupport
		case level > current:
			kind = LevelResistance
		}
		nearest = &Level{Price: level, Kind: kind, Distance: distance}
	}

	for i := start; i < end; i++ {
		if highs[i] > highs[i-1] && highs[i] > highs[i+1] {
			consider(highs[i])
		}
		if lows[i] < lows[i-1] && lows[i] < lows[i+1] {
			consider(lows[i])
		}
	}

	return nearest
}

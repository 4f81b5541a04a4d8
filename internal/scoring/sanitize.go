package scoring

import "math"

// ClampToRange sanitizes a dimensional input before weighting. Non-numeric
// values (NaN, ±Inf) and values outside [min, max] are replaced with the
// neutral default so a single malformed indicator cannot skew or crash the
// composite computation.
func ClampToRange(value, def, min, max float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return def
	}
	if value < min || value > max {
		return def
	}
	return value
}

// Clamp bounds a computed score to [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

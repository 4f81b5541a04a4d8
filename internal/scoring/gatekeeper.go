package scoring

// PassesGate applies the minimum-alignment filter before a composite score is
// worth computing. The short timeframes must both clear the threshold and at
// least one long timeframe must confirm.
func PassesGate(s1h, s4h, s1d, s1w, threshold float64) bool {
	if s1h < threshold || s4h < threshold {
		return false
	}
	return s1d >= threshold || s1w >= threshold
}

package scoring

import (
	"math"
	"testing"
)

// TestClampToRange tests the reset-to-default sanitization
func TestClampToRange(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		want  float64
	}{
		{"in range", 72.5, 72.5},
		{"at lower bound", 0, 0},
		{"at upper bound", 100, 100},
		{"above range", 110, 50},
		{"below range", -3, 50},
		{"NaN", math.NaN(), 50},
		{"positive infinity", math.Inf(1), 50},
		{"negative infinity", math.Inf(-1), 50},
	}

	for _, tc := range cases {
		if got := ClampToRange(tc.value, 50, 0, 100); got != tc.want {
			t.Errorf("%s: ClampToRange(%v) = %v, want %v", tc.name, tc.value, got, tc.want)
		}
	}
}

// TestClamp tests hard bounding
func TestClamp(t *testing.T) {
	if got := Clamp(110, 0, 100); got != 100 {
		t.Errorf("Clamp(110) = %v, want 100", got)
	}
	if got := Clamp(-5, 0, 100); got != 0 {
		t.Errorf("Clamp(-5) = %v, want 0", got)
	}
	if got := Clamp(42, 0, 100); got != 42 {
		t.Errorf("Clamp(42) = %v, want 42", got)
	}
}

package scoring

import "math"

// Normalize maps a raw aggregate onto [0,1] relative to its saturation target:
// min(raw/target, 1), clamped below at 0. ok is false when target is not
// positive, in which case the sub-metric must not participate at all.
func Normalize(raw, target float64) (contribution float64, ok bool) {
	if !(target > 0) || math.IsInf(target, 0) {
		return 0, false
	}
	if math.IsNaN(raw) {
		return 0, true
	}
	return clamp(raw/target, 0, 1), true
}

// RoundScore rounds a presentation score to one decimal place.
func RoundScore(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

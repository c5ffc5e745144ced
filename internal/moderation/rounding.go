package moderation

import "math"

// RoundHalfUp rounds x to places decimal places, halves away from zero.
// All percentages and rates in this package go through it.
func RoundHalfUp(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	// nudge by a tiny epsilon so 0.5 boundaries survive float error (e.g. 1.005)
	v := x * pow
	if v < 0 {
		return -math.Floor(-v+0.5+1e-9) / pow
	}
	return math.Floor(v+0.5+1e-9) / pow
}

// Percent is 100*part/whole rounded to one decimal; 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return RoundHalfUp(100*float64(part)/float64(whole), 1)
}

// WholePercent is 100*part/whole rounded to an integer; 0 when whole is 0.
func WholePercent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(RoundHalfUp(100*float64(part)/float64(whole), 0))
}

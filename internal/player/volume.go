package player

import (
	"math"
)

func clampVolume(v int) int {
	return max(0, min(100, v))
}

// levelToVolume converts a 0-100 level to beep's Volume value.
// beep uses a logarithmic scale where Volume is in "decibels" with base 2.
// Volume = 0 means no change, -1 = half volume, -2 = quarter, etc.
// We map: 100 -> 0, 50 -> -1, 25 -> -2, 0 -> -10 (essentially silent)
func levelToVolume(v int) float64 {
	if v <= 0 {
		return -10
	}
	if v >= 100 {
		return 0
	}
	return math.Log2(float64(v) / 100)
}

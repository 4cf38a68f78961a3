package utils

import "math"

// Clamp returns v limited to [lo, hi]. NaN is mapped to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApproxEqual reports whether a and b differ by at most eps.
func ApproxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

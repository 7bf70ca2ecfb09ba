package signals

import (
	"math"
	"strconv"
)

// Round rounds value to places decimals using the exact decimal expansion
// of the float, ties to even. This matches decimal formatting of the result
// (Round(0.12345, 4) is 0.1235 or 0.1234 depending on the binary value, not
// on a scaled multiply).
func Round(value float64, places int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	out, err := strconv.ParseFloat(strconv.FormatFloat(value, 'f', places, 64), 64)
	if err != nil {
		return value
	}
	return out
}

// Clamp restricts value to [lo, hi]. NaN maps to lo.
func Clamp(value, lo, hi float64) float64 {
	if math.IsNaN(value) || value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Finite returns v when it is present and finite, else nil
func Finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

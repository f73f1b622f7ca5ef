package dataprocessing

import (
	"math"
	"strconv"
)

// RoundHalfEven rounds v to places decimals, sending ties to the even
// neighbour: 12.5 becomes 12 and 13.5 becomes 14.
func RoundHalfEven(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(places))
	r := math.RoundToEven(v*p) / p
	if r == 0 {
		// drop negative zero
		return 0
	}
	return r
}

// FormatNumber renders v with the fewest digits that read back exactly,
// after rounding to places decimals.
func FormatNumber(v float64, places int) string {
	return strconv.FormatFloat(RoundHalfEven(v, places), 'f', -1, 64)
}

// FormatPercent renders v as "12%" or, with places > 0, "12.5%"
func FormatPercent(v float64, places int) string {
	return FormatNumber(v, places) + "%"
}

// SignPrefix returns "+" for positive values and "" otherwise
func SignPrefix(v float64) string {
	if v > 0 {
		return "+"
	}
	return ""
}

// Package output renders analysis results deterministically: identical
// inputs produce byte-identical bytes across runs.
package output

import (
	"math"
	"strconv"
	"strings"
)

// RoundFloat rounds to 6 decimal places so encoding noise from float
// arithmetic never leaks into the output.
func RoundFloat(f float64) float64 {
	multiplier := math.Pow(10, 6)
	return math.Round(f*multiplier) / multiplier
}

// FormatFloat formats a float with up to 6 decimals and no trailing
// zeros.
func FormatFloat(f float64) string {
	str := strconv.FormatFloat(RoundFloat(f), 'f', 6, 64)
	str = strings.TrimRight(str, "0")
	return strings.TrimRight(str, ".")
}

package utils

import (
	"math"
	"strconv"
)

// SafeFloat guards values sourced from gateway feeds, which report missing
// numbers as NaN or infinity.
func SafeFloat(value float64, fallback float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}

	return value
}

// ParseFloat converts the gateway's string-typed numerics, falling back on
// empty or malformed input.
func ParseFloat(value string, fallback float64) float64 {
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}

	return SafeFloat(parsed, fallback)
}

// SafeInt truncates a feed value to an int, treating NaN/Inf as fallback.
func SafeInt(value float64, fallback int) int {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fallback
	}

	return int(value)
}

// RoundTo rounds to the given number of decimals. Strike keys are rounded
// before use so float noise cannot split one strike into two.
func RoundTo(value float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(value*pow) / pow
}

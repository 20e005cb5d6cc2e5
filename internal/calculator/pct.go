package calculator

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds v to two decimal places, half away from zero. Non-finite
// values collapse to 0 so they never reach a JSON document.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// PercentChange returns (to - from) / from * 100 rounded to two decimals,
// or 0 when from is zero.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return Round2((to - from) / from * 100)
}

// Mean returns the arithmetic mean rounded to two decimals.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return Round2(sum / float64(len(values)))
}

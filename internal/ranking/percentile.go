package ranking

import (
	"math"
	"sort"
)

// RawPercentile returns the standing of value within values as an integer 0-100,
// where 100 is the largest raw value. values need not be sorted and are not modified.
//
//	index = first position in ascending order with values[i] >= value
//	percentile = round(index / n * 100)
//
// The population minimum maps to round(1/n*100) rather than 0 when n > 1, and any
// value at or above the maximum maps to 100. An empty population yields 0.
func RawPercentile(value float64, values []float64) int {
	n := len(values)
	if n == 0 || math.IsNaN(value) {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if value >= sorted[n-1] {
		return 100
	}

	idx := sort.SearchFloat64s(sorted, value)
	if idx == 0 && n > 1 {
		return roundPercent(1, n)
	}
	return roundPercent(idx, n)
}

// Percentile orients the raw percentile so that higher always means better:
// when negative is set the result is 100 minus the raw percentile.
func Percentile(value float64, values []float64, negative bool) int {
	if len(values) == 0 || math.IsNaN(value) {
		return 0
	}
	return Orient(RawPercentile(value, values), negative)
}

// Orient applies the "lower is better" inversion to a raw percentile.
func Orient(raw int, negative bool) int {
	if negative {
		return 100 - raw
	}
	return raw
}

// EntityPercentile computes the oriented percentile of e's metric value against the
// numeric values in the population. A non-numeric target yields 0.
func EntityPercentile(e Entity, m Metric, pop Population) int {
	v, ok := e.Value(m.Key)
	if !ok {
		return 0
	}
	return Percentile(v, pop.Values(m.Key), m.IsNegative)
}

// roundPercent rounds i/n*100 half up.
func roundPercent(i, n int) int {
	return int(math.Floor(float64(i)/float64(n)*100 + 0.5))
}

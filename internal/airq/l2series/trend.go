package l2series

import (
	"gonum.org/v1/gonum/stat"
)

// DefaultTrendWindow is the centred window width used by Trend.
const DefaultTrendWindow = 5

// Trend returns a local slope per point of a series on the output grid.
// For index i the window [i-w/2, i+w/2] is clipped to the series bounds
// and fitted by ordinary least squares against the position inside the
// window. Units are value per grid step. Series shorter than three points
// have zero trend everywhere.
func Trend(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if len(values) < 3 {
		return out
	}
	if window < 1 {
		window = DefaultTrendWindow
	}
	half := window / 2

	x := make([]float64, 0, 2*half+1)
	for i := range values {
		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + half + 1
		if end > len(values) {
			end = len(values)
		}
		if end-start < 2 {
			continue
		}
		x = x[:0]
		for p := 0; p < end-start; p++ {
			x = append(x, float64(p))
		}
		_, slope := stat.LinearRegression(x, values[start:end], nil, false)
		out[i] = slope
	}
	return out
}

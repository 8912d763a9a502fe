package l5frames

import (
	"fmt"
	"math"
)

// DefaultTrendLabelThreshold is the trend magnitude that earns an arrow.
const DefaultTrendLabelThreshold = 500.0

// FormatValue renders a pollution value for a sensor marker: thousands as
// "12.3K", smaller values as whole numbers.
func FormatValue(v float64) string {
	if v >= 1000 {
		return fmt.Sprintf("%.1fK", v/1000)
	}
	return fmt.Sprintf("%.0f", v)
}

// TrendSymbol returns an up or down arrow when |trend| exceeds threshold.
func TrendSymbol(trend, threshold float64) string {
	switch {
	case trend > threshold:
		return "↑"
	case trend < -threshold:
		return "↓"
	default:
		return ""
	}
}

// SensorLabel is FormatValue followed by TrendSymbol.
func SensorLabel(value, trend, threshold float64) string {
	return FormatValue(value) + TrendSymbol(trend, threshold)
}

// Stats is the pollution range over a set of frames, used by renderers for
// a fixed colour scale across a day.
type Stats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultStats is returned when there are no sensor values.
var DefaultStats = Stats{Min: 0, Max: 100000}

// PollutionStats returns the min and max sensor pollution across frames.
func PollutionStats(frames []AnalysisFrame) Stats {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, f := range frames {
		for _, s := range f.Sensors {
			lo = math.Min(lo, s.Pollution)
			hi = math.Max(hi, s.Pollution)
		}
	}
	if math.IsInf(lo, 1) {
		return DefaultStats
	}
	return Stats{Min: lo, Max: hi}
}

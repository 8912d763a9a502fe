package l1observations

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// CleanOptions controls outlier screening of a day's observations.
type CleanOptions struct {
	// Percentile caps pollution at this percentile of the day's values,
	// interpolated linearly between order statistics. Zero disables the cap.
	Percentile float64
	// SpikeRatioMax drops readings whose ratio to the per-sensor rolling
	// median exceeds this value. Zero disables spike removal.
	SpikeRatioMax float64
	// SpikeWindow is the centred rolling-median window length.
	SpikeWindow int
	// WindSpeedCap drops readings with wind speed above the cap. Readings
	// without wind are kept. Zero disables the cap.
	WindSpeedCap float64
}

// DefaultCleanOptions returns the screening used by the batch pipeline.
// The percentile cap and spike screen are off; they are opt-in through
// the analysis config.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{SpikeWindow: 5}
}

// ScreenedCleanOptions returns the P99 cap and spike screen settings.
func ScreenedCleanOptions() CleanOptions {
	return CleanOptions{
		Percentile:    99,
		SpikeRatioMax: 50,
		SpikeWindow:   5,
	}
}

// CleanStats summarises what Clean removed.
type CleanStats struct {
	Input           int
	PercentileCap   float64
	AbovePercentile int
	Spikes          int
	WindOverCap     int
	Kept            int
}

// Rejected returns the total number of rows dropped.
func (s CleanStats) Rejected() int {
	return s.Input - s.Kept
}

// String implements fmt.Stringer for log lines.
func (s CleanStats) String() string {
	return fmt.Sprintf("input=%d kept=%d p_cap=%.2f above_p=%d spikes=%d wind_over_cap=%d",
		s.Input, s.Kept, s.PercentileCap, s.AbovePercentile, s.Spikes, s.WindOverCap)
}

// Clean applies the percentile cap, the rolling-median spike screen and
// the wind-speed cap. Input rows are expected to be Valid. The returned
// slice preserves input order.
func Clean(obs []Observation, opts CleanOptions) ([]Observation, CleanStats, error) {
	st := CleanStats{Input: len(obs)}
	if len(obs) == 0 {
		return nil, st, nil
	}

	keep := make([]bool, len(obs))
	for i := range keep {
		keep[i] = true
	}

	st.PercentileCap = math.Inf(1)
	if opts.Percentile > 0 && opts.Percentile < 100 {
		values := make([]float64, len(obs))
		for i, o := range obs {
			values[i] = o.Pollution
		}
		st.PercentileCap = quantile(values, opts.Percentile/100)
	}

	var medians []float64
	if opts.SpikeRatioMax > 0 {
		var err error
		medians, err = rollingMedians(obs, opts.SpikeWindow)
		if err != nil {
			return nil, st, err
		}
	}

	for i, o := range obs {
		if o.Pollution > st.PercentileCap {
			keep[i] = false
			st.AbovePercentile++
			continue
		}
		if medians != nil {
			if o.Pollution/math.Max(medians[i], 1) > opts.SpikeRatioMax {
				keep[i] = false
				st.Spikes++
				continue
			}
		}
		if opts.WindSpeedCap > 0 && isFinite(o.WindSpeed) && o.WindSpeed > opts.WindSpeedCap {
			keep[i] = false
			st.WindOverCap++
		}
	}

	out := make([]Observation, 0, len(obs))
	for i, o := range obs {
		if keep[i] {
			out = append(out, o)
		}
	}
	st.Kept = len(out)
	return out, st, nil
}

// quantile returns the q-quantile of values with linear interpolation
// between the two bracketing order statistics at position (n-1)*q.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// rollingMedians computes, for every row, the centred rolling median of
// pollution over the same sensor's time-ordered readings. Windows are
// clipped at the series ends (minimum one sample).
func rollingMedians(obs []Observation, window int) ([]float64, error) {
	if window < 1 {
		window = 1
	}
	half := window / 2

	bySensor := make(map[string][]int)
	for i, o := range obs {
		bySensor[o.SensorID] = append(bySensor[o.SensorID], i)
	}

	out := make([]float64, len(obs))
	for _, idx := range bySensor {
		sort.SliceStable(idx, func(a, b int) bool {
			return obs[idx[a]].Timestamp.Before(obs[idx[b]].Timestamp)
		})
		buf := make([]float64, 0, window)
		for pos := range idx {
			start := pos - half
			if start < 0 {
				start = 0
			}
			end := pos + half + 1
			if end > len(idx) {
				end = len(idx)
			}
			buf = buf[:0]
			for _, j := range idx[start:end] {
				buf = append(buf, obs[j].Pollution)
			}
			m, err := stats.Median(buf)
			if err != nil {
				return nil, fmt.Errorf("failed to compute rolling median: %w", err)
			}
			out[idx[pos]] = m
		}
	}
	return out, nil
}

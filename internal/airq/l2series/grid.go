package l2series

import (
	"fmt"
	"time"
)

// DefaultFrameInterval is the spacing of output frames.
const DefaultFrameInterval = 5 * time.Minute

// TimeGrid is an ordered, fixed-spacing sequence of output instants.
type TimeGrid struct {
	Interval time.Duration
	Times    []time.Time
}

// NewTimeGrid spans [ceil(start, interval), floor(end, interval)] at the
// given interval. The grid is empty when the rounded bounds cross, which
// happens for spans shorter than one interval that do not straddle a
// boundary.
func NewTimeGrid(start, end time.Time, interval time.Duration) (TimeGrid, error) {
	if interval <= 0 {
		return TimeGrid{}, fmt.Errorf("frame interval must be positive, got %s", interval)
	}
	if end.Before(start) {
		return TimeGrid{}, fmt.Errorf("grid end %s is before start %s", end, start)
	}

	first := ceilTime(start, interval)
	last := end.Truncate(interval)

	g := TimeGrid{Interval: interval}
	for t := first; !t.After(last); t = t.Add(interval) {
		g.Times = append(g.Times, t.In(start.Location()))
	}
	return g, nil
}

func ceilTime(t time.Time, d time.Duration) time.Time {
	f := t.Truncate(d)
	if f.Equal(t) {
		return f
	}
	return f.Add(d)
}

// Len returns the number of grid points.
func (g TimeGrid) Len() int {
	return len(g.Times)
}

// Seconds returns the grid instants as fractional unix seconds, the time
// axis used by the resamplers.
func (g TimeGrid) Seconds() []float64 {
	out := make([]float64, len(g.Times))
	for i, t := range g.Times {
		out[i] = float64(t.UnixNano()) / 1e9
	}
	return out
}

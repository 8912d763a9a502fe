package l2series

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultSigmaMinutes is the default Gaussian smoothing width.
const DefaultSigmaMinutes = 10.0

// cutoffSigmas is the hard support of the kernel. Samples at or beyond
// this many standard deviations are excluded, not down-weighted.
const cutoffSigmas = 3.0

// ErrEmptySeries is returned when a resampler is given no samples.
var ErrEmptySeries = errors.New("cannot resample an empty series")

// Kernel is a Gaussian smoothing kernel with a hard 3-sigma cutoff.
type Kernel struct {
	sigma float64 // seconds
}

// NewKernel builds a kernel with the given width in minutes.
func NewKernel(sigmaMinutes float64) (Kernel, error) {
	if !(sigmaMinutes > 0) || math.IsInf(sigmaMinutes, 0) {
		return Kernel{}, fmt.Errorf("smoothing sigma must be positive and finite, got %v", sigmaMinutes)
	}
	return Kernel{sigma: sigmaMinutes * 60}, nil
}

// SigmaSeconds returns the kernel width in seconds.
func (k Kernel) SigmaSeconds() float64 {
	return k.sigma
}

// window fills idx and w with the samples inside the cutoff around t. The
// buffers are reused across calls.
func (k Kernel) window(t float64, times []float64, idx []int, w []float64) ([]int, []float64) {
	idx, w = idx[:0], w[:0]
	limit := cutoffSigmas * k.sigma
	for i, ti := range times {
		d := math.Abs(t - ti)
		if d < limit {
			z := d / k.sigma
			idx = append(idx, i)
			w = append(w, math.Exp(-0.5*z*z))
		}
	}
	return idx, w
}

// nearest returns the index of the sample closest to t; ties go to the
// earlier index.
func nearest(t float64, times []float64) int {
	best, bestD := 0, math.Inf(1)
	for i, ti := range times {
		if d := math.Abs(t - ti); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func checkSamples(times, values []float64) error {
	if len(values) == 0 {
		return ErrEmptySeries
	}
	if len(times) != len(values) {
		return fmt.Errorf("times and values differ in length: %d != %d", len(times), len(values))
	}
	return nil
}

// Smooth resamples (times, values) at targets with a weighted average over
// the samples inside the kernel support. When no sample is in range the
// nearest sample's value is used, so the result never contains NaN for
// finite input. Times need not be sorted.
func (k Kernel) Smooth(times, values, targets []float64) ([]float64, error) {
	if err := checkSamples(times, values); err != nil {
		return nil, err
	}

	out := make([]float64, len(targets))
	idx := make([]int, 0, len(times))
	w := make([]float64, 0, len(times))
	sel := make([]float64, 0, len(times))
	for j, t := range targets {
		idx, w = k.window(t, times, idx, w)
		if len(idx) == 0 {
			out[j] = values[nearest(t, times)]
			continue
		}
		sel = sel[:0]
		for _, i := range idx {
			sel = append(sel, values[i])
		}
		out[j] = stat.Mean(sel, w)
	}
	return out, nil
}

// SmoothDirection is Smooth for angles in degrees. It returns the weighted
// circular mean atan2(sum w*sin, sum w*cos) normalised to [0, 360), so 350
// and 10 average to 0 rather than 180.
func (k Kernel) SmoothDirection(times, degrees, targets []float64) ([]float64, error) {
	if err := checkSamples(times, degrees); err != nil {
		return nil, err
	}

	sin := make([]float64, len(degrees))
	cos := make([]float64, len(degrees))
	for i, d := range degrees {
		r := d * math.Pi / 180
		sin[i], cos[i] = math.Sin(r), math.Cos(r)
	}

	out := make([]float64, len(targets))
	idx := make([]int, 0, len(times))
	w := make([]float64, 0, len(times))
	ss := make([]float64, 0, len(times))
	cs := make([]float64, 0, len(times))
	for j, t := range targets {
		idx, w = k.window(t, times, idx, w)
		if len(idx) == 0 {
			out[j] = NormalizeDegrees(degrees[nearest(t, times)])
			continue
		}
		ss, cs = ss[:0], cs[:0]
		for _, i := range idx {
			ss = append(ss, sin[i])
			cs = append(cs, cos[i])
		}
		s := floats.Dot(w, ss)
		c := floats.Dot(w, cs)
		out[j] = NormalizeDegrees(math.Atan2(s, c) * 180 / math.Pi)
	}
	return out, nil
}

// NormalizeDegrees maps any finite angle into [0, 360).
func NormalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

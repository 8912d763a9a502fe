package l4transport

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// minProjectionSpread is the projection range below which sensors are
// treated as coincident along the wind.
const minProjectionSpread = 1e-10

// Upwindness scores each sensor's position along the wind: +1 is the most
// upwind sensor, -1 the most downwind. Positions are taken relative to the
// sensor centroid, projected onto the unit wind vector, negated and divided
// by the largest absolute projection, so the score is relative to this
// frame only. Calm wind, a single sensor or zero spread give all zeros.
func Upwindness(lons, lats []float64, w Wind) []float64 {
	out := make([]float64, len(lons))
	if len(lons) < 2 || len(lons) != len(lats) || w.Calm() {
		return out
	}

	cLon := stat.Mean(lons, nil)
	cLat := stat.Mean(lats, nil)
	speed := w.Speed()
	ux, uy := w.U/speed, w.V/speed

	proj := make([]float64, len(lons))
	for i := range lons {
		proj[i] = (lons[i]-cLon)*ux + (lats[i]-cLat)*uy
	}
	hi, lo := floats.Max(proj), floats.Min(proj)
	if hi-lo <= minProjectionSpread {
		return out
	}
	scale := math.Max(math.Abs(hi), math.Abs(lo))
	for i, p := range proj {
		out[i] = -p / scale
	}
	return out
}

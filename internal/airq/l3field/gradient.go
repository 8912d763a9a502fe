package l3field

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// minGradient is the magnitude below which a plane fit is treated as flat.
const minGradient = 1e-10

// rankTolerance is the singular-value cutoff, relative to the largest
// singular value, for the plane fit and the RBF polynomial tail.
const rankTolerance = 1e-10

// Gradient is the direction and rate of steepest pollution increase.
type Gradient struct {
	// Bearing is a compass bearing in degrees: 0 north, 90 east.
	Bearing float64
	// Magnitude is in value units per degree.
	Magnitude float64
}

// Usable reports whether the fit produced a non-zero gradient.
func (g Gradient) Usable() bool {
	return g.Magnitude > 0
}

// EstimateGradient fits value = a*lon + b*lat + c by least squares and
// returns the bearing atan2(a, b) and magnitude hypot(a, b). Fewer than two
// points, a failed fit, or a near-flat plane give the zero Gradient.
//
// The fit is rank-revealing, so collinear or underdetermined layouts
// return the minimum-norm solution.
func EstimateGradient(points []Point) Gradient {
	n := len(points)
	if n < 2 {
		return Gradient{}
	}

	var lon0, lat0 float64
	for _, p := range points {
		lon0 += p.Lon
		lat0 += p.Lat
	}
	lon0 /= float64(n)
	lat0 /= float64(n)

	a := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i, p := range points {
		a.Set(i, 0, p.Lon-lon0)
		a.Set(i, 1, p.Lat-lat0)
		a.Set(i, 2, 1)
		y.Set(i, 0, p.Value)
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return Gradient{}
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return Gradient{}
	}
	var coef mat.Dense
	svd.SolveTo(&coef, y, rank)

	ga, gb := coef.At(0, 0), coef.At(1, 0)
	mag := math.Hypot(ga, gb)
	if math.IsNaN(mag) || mag < minGradient {
		return Gradient{}
	}
	bearing := math.Atan2(ga, gb) * 180 / math.Pi
	if bearing < 0 {
		bearing += 360
	}
	return Gradient{Bearing: bearing, Magnitude: mag}
}

package l3field

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultSmoothing is added to the kernel diagonal so the surface need not
// pass exactly through every sensor.
const DefaultSmoothing = 0.1

// errTooFewPoints means the linear tail of the spline is underdetermined.
var errTooFewPoints = errors.New("thin-plate spline needs at least 3 non-collinear points")

// tps is the thin-plate-spline radial basis r^2 log r, with tps(0) = 0.
func tps(r float64) float64 {
	if r == 0 {
		return 0
	}
	return r * r * math.Log(r)
}

// rbfModel is a fitted thin-plate spline with a degree-one polynomial tail
// in coordinates centred on the sensor mean.
type rbfModel struct {
	lon0, lat0 float64
	centres    []Point // centred positions
	weights    []float64
	poly       [3]float64 // constant, lon, lat
}

// fitRBF solves
//
//	[K + sI  P] [w]   [y]
//	[P^T     0] [c] = [0]
//
// for the spline weights w and polynomial coefficients c.
func fitRBF(points []Point, smoothing float64) (*rbfModel, error) {
	n := len(points)
	if n < 3 {
		return nil, errTooFewPoints
	}

	m := &rbfModel{centres: make([]Point, n)}
	for _, p := range points {
		m.lon0 += p.Lon
		m.lat0 += p.Lat
	}
	m.lon0 /= float64(n)
	m.lat0 /= float64(n)
	for i, p := range points {
		m.centres[i] = Point{Lon: p.Lon - m.lon0, Lat: p.Lat - m.lat0, Value: p.Value}
	}

	if polyRank(m.centres) < 3 {
		return nil, errTooFewPoints
	}

	size := n + 3
	a := mat.NewDense(size, size, nil)
	b := mat.NewVecDense(size, nil)
	for i, pi := range m.centres {
		for j, pj := range m.centres {
			v := tps(math.Hypot(pi.Lon-pj.Lon, pi.Lat-pj.Lat))
			if i == j {
				v += smoothing
			}
			a.Set(i, j, v)
		}
		a.Set(i, n, 1)
		a.Set(i, n+1, pi.Lon)
		a.Set(i, n+2, pi.Lat)
		a.Set(n, i, 1)
		a.Set(n+1, i, pi.Lon)
		a.Set(n+2, i, pi.Lat)
		b.SetVec(i, pi.Value)
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("thin-plate spline system: %w", err)
	}

	m.weights = make([]float64, n)
	for i := range m.weights {
		m.weights[i] = x.AtVec(i)
	}
	m.poly = [3]float64{x.AtVec(n), x.AtVec(n + 1), x.AtVec(n + 2)}
	return m, nil
}

func (m *rbfModel) at(lon, lat float64) float64 {
	lon -= m.lon0
	lat -= m.lat0
	v := m.poly[0] + m.poly[1]*lon + m.poly[2]*lat
	for i, c := range m.centres {
		v += m.weights[i] * tps(math.Hypot(lon-c.Lon, lat-c.Lat))
	}
	return v
}

// RBF fills a field from a smoothed thin-plate spline through points and
// clips it to [0.5*min, 1.5*max] of the point values. It returns an error
// when the system cannot be solved or the surface is not finite.
func RBF(points []Point, extent Extent, resolution int, smoothing float64) (Field, error) {
	if distinctLocations(points) < 2 {
		return Field{}, errTooFewPoints
	}
	m, err := fitRBF(points, smoothing)
	if err != nil {
		return Field{}, err
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	lo *= 0.5
	hi *= 1.5

	f := newField(extent, resolution)
	lons := f.Lons()
	lats := f.Lats()
	for r, lat := range lats {
		for c, lon := range lons {
			v := m.at(lon, lat)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Field{}, fmt.Errorf("thin-plate spline produced non-finite value at (%.6f, %.6f)", lon, lat)
			}
			f.Values[r][c] = math.Min(math.Max(v, lo), hi)
		}
	}
	return f, nil
}

func distinctLocations(points []Point) int {
	type key struct{ lon, lat float64 }
	seen := make(map[key]struct{}, len(points))
	for _, p := range points {
		seen[key{p.Lon, p.Lat}] = struct{}{}
	}
	return len(seen)
}

// polyRank is the rank of the [1 lon lat] design matrix. Below 3 the
// sensors are coincident or collinear and the tail is not identifiable.
func polyRank(centres []Point) int {
	p := mat.NewDense(len(centres), 3, nil)
	for i, c := range centres {
		p.Set(i, 0, 1)
		p.Set(i, 1, c.Lon)
		p.Set(i, 2, c.Lat)
	}
	var svd mat.SVD
	if !svd.Factorize(p, mat.SVDNone) {
		return 0
	}
	return svd.Rank(rankTolerance)
}

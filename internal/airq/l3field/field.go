package l3field

import (
	"math"
)

// DefaultResolution is the number of grid points per axis.
const DefaultResolution = 40

// Point is a sensor location with the value observed there.
type Point struct {
	Lon   float64
	Lat   float64
	Value float64
}

// Field is a dense resolution x resolution grid over Extent. Rows run over
// latitude ascending and columns over longitude ascending; both axes
// include the extent bounds.
type Field struct {
	Extent     Extent      `json:"extent"`
	Resolution int         `json:"resolution"`
	Values     [][]float64 `json:"values"`
}

// Lons returns the column coordinates.
func (f Field) Lons() []float64 {
	return linspace(f.Extent.LonMin, f.Extent.LonMax, f.Resolution)
}

// Lats returns the row coordinates.
func (f Field) Lats() []float64 {
	return linspace(f.Extent.LatMin, f.Extent.LatMax, f.Resolution)
}

// Range returns the smallest and largest cell values.
func (f Field) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range f.Values {
		for _, v := range row {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

func newField(e Extent, resolution int) Field {
	values := make([][]float64, resolution)
	for i := range values {
		values[i] = make([]float64, resolution)
	}
	return Field{Extent: e, Resolution: resolution, Values: values}
}

// linspace returns n evenly spaced values over [lo, hi] inclusive.
func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	switch n {
	case 0:
		return out
	case 1:
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

package l3field

import (
	"fmt"
	"math"
)

// DefaultPadding is the margin, in degrees, added around the sensor
// bounding box when a site has no fixed extent.
const DefaultPadding = 0.015

// Extent is a lon/lat rectangle.
type Extent struct {
	LonMin float64 `json:"lon_min" yaml:"lon_min"`
	LonMax float64 `json:"lon_max" yaml:"lon_max"`
	LatMin float64 `json:"lat_min" yaml:"lat_min"`
	LatMax float64 `json:"lat_max" yaml:"lat_max"`
}

// Validate checks the bounds are finite and ordered.
func (e Extent) Validate() error {
	for _, v := range []float64{e.LonMin, e.LonMax, e.LatMin, e.LatMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("extent has non-finite bound: %+v", e)
		}
	}
	if e.LonMin > e.LonMax {
		return fmt.Errorf("extent lon_min %.6f > lon_max %.6f", e.LonMin, e.LonMax)
	}
	if e.LatMin > e.LatMax {
		return fmt.Errorf("extent lat_min %.6f > lat_max %.6f", e.LatMin, e.LatMax)
	}
	return nil
}

// Center returns the midpoint of the extent.
func (e Extent) Center() (lon, lat float64) {
	return (e.LonMin + e.LonMax) / 2, (e.LatMin + e.LatMax) / 2
}

// Contains reports whether p lies inside or on the boundary.
func (e Extent) Contains(p Point) bool {
	return p.Lon >= e.LonMin && p.Lon <= e.LonMax && p.Lat >= e.LatMin && p.Lat <= e.LatMax
}

// BoundingExtent returns the bounding box of points grown by padding
// degrees on every side. It returns an error when points is empty.
func BoundingExtent(points []Point, padding float64) (Extent, error) {
	if len(points) == 0 {
		return Extent{}, fmt.Errorf("cannot compute extent of zero sensors")
	}
	e := Extent{
		LonMin: math.Inf(1), LonMax: math.Inf(-1),
		LatMin: math.Inf(1), LatMax: math.Inf(-1),
	}
	for _, p := range points {
		e.LonMin = math.Min(e.LonMin, p.Lon)
		e.LonMax = math.Max(e.LonMax, p.Lon)
		e.LatMin = math.Min(e.LatMin, p.Lat)
		e.LatMax = math.Max(e.LatMax, p.Lat)
	}
	e.LonMin -= padding
	e.LonMax += padding
	e.LatMin -= padding
	e.LatMax += padding
	return e, e.Validate()
}

package l3field

import (
	"math"
)

// coincident is the distance below which a cell takes a sensor's value
// directly.
const coincident = 1e-10

// idwPower is the inverse-distance exponent.
const idwPower = 2.0

// IDW fills a field by inverse-distance weighting of points. A cell that
// coincides with a sensor takes that sensor's exact value. With a single
// point the field is constant.
func IDW(points []Point, extent Extent, resolution int) Field {
	f := newField(extent, resolution)
	lons := f.Lons()
	lats := f.Lats()
	for r, lat := range lats {
		for c, lon := range lons {
			f.Values[r][c] = idwAt(points, lon, lat)
		}
	}
	return f
}

func idwAt(points []Point, lon, lat float64) float64 {
	nearest, nearestD := 0, math.Inf(1)
	for i, p := range points {
		if d := math.Hypot(p.Lon-lon, p.Lat-lat); d < nearestD {
			nearest, nearestD = i, d
		}
	}
	if nearestD < coincident {
		return points[nearest].Value
	}

	var num, den float64
	for _, p := range points {
		w := 1 / math.Pow(math.Hypot(p.Lon-lon, p.Lat-lat), idwPower)
		num += w * p.Value
		den += w
	}
	return num / den
}

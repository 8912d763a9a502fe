package l4transport

import (
	"math"

	"github.com/banshee-data/airquality.report/internal/airq/l2series"
)

// calmComponent is the per-component magnitude below which wind is calm.
const calmComponent = 0.01

// Wind is a horizontal wind vector in m/s. U is eastward and V northward
// motion of the air.
type Wind struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// FromDirection converts a meteorological direction (where the wind comes
// from, clockwise from north) and speed into components.
func FromDirection(dirDeg, speed float64) Wind {
	r := dirDeg * math.Pi / 180
	return Wind{U: -speed * math.Sin(r), V: -speed * math.Cos(r)}
}

// Speed returns the vector magnitude.
func (w Wind) Speed() float64 {
	return math.Hypot(w.U, w.V)
}

// Calm reports whether both components are negligible.
func (w Wind) Calm() bool {
	return math.Abs(w.U) < calmComponent && math.Abs(w.V) < calmComponent
}

// Bearing returns the compass bearing the wind blows toward, in [0, 360).
func (w Wind) Bearing() float64 {
	return l2series.NormalizeDegrees(math.Atan2(w.U, w.V) * 180 / math.Pi)
}

// MeteorologicalDirection returns where the wind comes from, in [0, 360).
func (w Wind) MeteorologicalDirection() float64 {
	return l2series.NormalizeDegrees(math.Atan2(-w.U, -w.V) * 180 / math.Pi)
}

// MeanWind averages components. It returns the zero Wind for no input.
func MeanWind(ws []Wind) Wind {
	if len(ws) == 0 {
		return Wind{}
	}
	var sum Wind
	for _, w := range ws {
		sum.U += w.U
		sum.V += w.V
	}
	n := float64(len(ws))
	return Wind{U: sum.U / n, V: sum.V / n}
}

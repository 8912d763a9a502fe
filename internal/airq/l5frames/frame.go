package l5frames

import (
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l3field"
	"github.com/banshee-data/airquality.report/internal/airq/l4transport"
)

// SensorSnapshot is one sensor's state in a frame.
type SensorSnapshot struct {
	SensorID   string  `json:"sensor_id"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	Pollution  float64 `json:"pollution"`
	Label      string  `json:"label"`
	Trend      float64 `json:"trend"`
	Upwindness float64 `json:"upwindness"`
	// Wind is set only under the per-sensor wind policy when the sensor
	// reported wind that day.
	Wind *WindVector `json:"wind,omitempty"`
}

// WindVector is a smoothed wind reading. Direction is meteorological
// (where the wind comes from).
type WindVector struct {
	U         float64 `json:"u"`
	V         float64 `json:"v"`
	Speed     float64 `json:"speed"`
	Direction float64 `json:"direction"`
}

func newWindVector(w l4transport.Wind, speed float64) WindVector {
	return WindVector{U: w.U, V: w.V, Speed: speed, Direction: w.MeteorologicalDirection()}
}

// Components returns the vector as an l4transport.Wind.
func (w WindVector) Components() l4transport.Wind {
	return l4transport.Wind{U: w.U, V: w.V}
}

// AnalysisFrame is the full analysis at one output instant. Frames are
// built once and not modified afterwards.
type AnalysisFrame struct {
	Index             int                   `json:"index"`
	Timestamp         time.Time             `json:"timestamp"`
	TimeLabel         string                `json:"time_label"`
	Sensors           []SensorSnapshot      `json:"sensors"`
	Wind              WindVector            `json:"wind"`
	GradientBearing   float64               `json:"gradient_bearing"`
	GradientMagnitude float64               `json:"gradient_magnitude"`
	Alignment         float64               `json:"alignment"`
	Transport         l4transport.Indicator `json:"transport"`
	Field             l3field.Field         `json:"field"`
	FieldMethod       l3field.Method        `json:"field_method"`
}

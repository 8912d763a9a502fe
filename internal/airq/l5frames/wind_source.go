package l5frames

import (
	"fmt"
	"sort"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
)

// WindPolicy selects where frame wind comes from.
type WindPolicy string

const (
	// WindPerSensor smooths each sensor's own wind. The frame wind is the
	// mean of the sensors that reported wind.
	WindPerSensor WindPolicy = "per_sensor"
	// WindStation uses one shared wind time series for every sensor.
	WindStation WindPolicy = "station"
)

// WindSource is the explicit wind selection handed to the assembler.
type WindSource struct {
	Policy WindPolicy
	// StationID names the sensor whose readings are the station wind. When
	// empty under WindStation, all wind readings are pooled and the first
	// reading per timestamp (by sensor ID) is kept.
	StationID string
}

// Validate checks the policy is known.
func (w WindSource) Validate() error {
	switch w.Policy {
	case WindPerSensor:
		if w.StationID != "" {
			return fmt.Errorf("wind station %q set with per_sensor policy", w.StationID)
		}
		return nil
	case WindStation:
		return nil
	default:
		return fmt.Errorf("unknown wind policy %q (want %q or %q)", w.Policy, WindPerSensor, WindStation)
	}
}

// stationSamples returns the time-ordered wind samples for the station
// policy as unix seconds, u, v and speed.
func (w WindSource) stationSamples(obs []l1observations.Observation) (times, u, v, speed []float64) {
	rows := make([]l1observations.Observation, 0, len(obs))
	for _, o := range obs {
		if !o.HasWind() {
			continue
		}
		if w.StationID != "" && o.SensorID != w.StationID {
			continue
		}
		rows = append(rows, o)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		}
		return rows[i].SensorID < rows[j].SensorID
	})

	var last float64
	for i, o := range rows {
		ts := o.UnixSeconds()
		if i > 0 && ts == last {
			continue
		}
		last = ts
		wind := windFromObservation(o)
		times = append(times, ts)
		u = append(u, wind.U)
		v = append(v, wind.V)
		speed = append(speed, o.WindSpeed)
	}
	return times, u, v, speed
}

package l1observations

import (
	"errors"
	"math"
	"time"
)

// Input shape errors. These are surfaced to the caller and never retried.
var (
	// ErrNoRows is returned when the requested day has no observations.
	ErrNoRows = errors.New("no observations for requested day")
	// ErrNoValidRows is returned when every row for the day is missing
	// pollution, coordinates or a sensor ID.
	ErrNoValidRows = errors.New("no valid observations after dropping rows with missing pollution or coordinates")
)

// Observation is a single sensor reading. Missing numeric values are
// represented as NaN; use the Has* helpers rather than comparing directly.
type Observation struct {
	Timestamp time.Time
	SensorID  string
	Lat       float64
	Lon       float64
	Pollution float64
	// WindDirDeg is the meteorological wind direction in [0, 360):
	// 0 means wind from the north, measured clockwise.
	WindDirDeg float64
	// WindSpeed is in m/s once normalised by the ingest layer.
	WindSpeed float64
}

// Missing is the sentinel for an absent numeric field.
var Missing = math.NaN()

// HasPollution reports whether a finite pollution value is present.
func (o Observation) HasPollution() bool {
	return isFinite(o.Pollution)
}

// HasCoordinates reports whether both latitude and longitude are finite.
func (o Observation) HasCoordinates() bool {
	return isFinite(o.Lat) && isFinite(o.Lon)
}

// HasWind reports whether both wind direction and speed are present.
func (o Observation) HasWind() bool {
	return isFinite(o.WindDirDeg) && isFinite(o.WindSpeed)
}

// Valid reports whether the row carries everything the engine requires:
// a sensor ID, coordinates and a pollution value. Wind is optional.
func (o Observation) Valid() bool {
	return o.SensorID != "" && o.HasCoordinates() && o.HasPollution()
}

// UnixSeconds returns the timestamp as fractional seconds since the epoch.
func (o Observation) UnixSeconds() float64 {
	return float64(o.Timestamp.UnixNano()) / 1e9
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// DropInvalid returns the rows that pass Valid. It returns ErrNoValidRows
// when input was non-empty but nothing survived, and ErrNoRows when the
// input was empty.
func DropInvalid(obs []Observation) ([]Observation, error) {
	if len(obs) == 0 {
		return nil, ErrNoRows
	}
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.Valid() {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoValidRows
	}
	return out, nil
}

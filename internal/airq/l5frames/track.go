package l5frames

import (
	"fmt"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/airq/l2series"
	"github.com/banshee-data/airquality.report/internal/airq/l4transport"
)

// SensorTrack is one sensor's smoothed state over the day's time grid. It
// is built once and only read afterwards; the slices are never exposed.
type SensorTrack struct {
	id       string
	lon, lat float64

	pollution []float64
	trend     []float64
	// wind and windSpeed are nil when the sensor carries no wind series.
	wind      []l4transport.Wind
	windSpeed []float64
}

// TrackPoint is a SensorTrack read at one grid index.
type TrackPoint struct {
	Pollution float64
	Trend     float64
	Wind      l4transport.Wind
	WindSpeed float64
	HasWind   bool
}

// ID returns the sensor ID.
func (t SensorTrack) ID() string { return t.id }

// Position returns the sensor location.
func (t SensorTrack) Position() (lon, lat float64) { return t.lon, t.lat }

// Len returns the number of grid points.
func (t SensorTrack) Len() int { return len(t.pollution) }

// HasWind reports whether the track carries its own wind.
func (t SensorTrack) HasWind() bool { return t.wind != nil }

// At returns the track state at grid index i.
func (t SensorTrack) At(i int) TrackPoint {
	p := TrackPoint{Pollution: t.pollution[i], Trend: t.trend[i]}
	if t.wind != nil {
		p.Wind = t.wind[i]
		p.WindSpeed = t.windSpeed[i]
		p.HasWind = true
	}
	return p
}

// PollutionSeries returns a copy of the smoothed pollution values.
func (t SensorTrack) PollutionSeries() []float64 {
	return append([]float64(nil), t.pollution...)
}

// buildTrack smooths one sensor's series onto the grid. Wind is smoothed
// only when withWind is set: direction by circular mean, speed linearly.
func buildTrack(s l1observations.SensorSeries, targets []float64, k l2series.Kernel, trendWindow int, withWind bool) (SensorTrack, error) {
	pollution, err := k.Smooth(s.Times(), s.Pollution(), targets)
	if err != nil {
		return SensorTrack{}, fmt.Errorf("sensor %s: %w", s.SensorID, err)
	}
	t := SensorTrack{
		id:        s.SensorID,
		lon:       s.Lon,
		lat:       s.Lat,
		pollution: pollution,
		trend:     l2series.Trend(pollution, trendWindow),
	}
	if !withWind {
		return t, nil
	}

	times, dirs, speeds := s.Wind()
	if len(times) == 0 {
		return t, nil
	}
	dir, err := k.SmoothDirection(times, dirs, targets)
	if err != nil {
		return SensorTrack{}, fmt.Errorf("sensor %s wind direction: %w", s.SensorID, err)
	}
	speed, err := k.Smooth(times, speeds, targets)
	if err != nil {
		return SensorTrack{}, fmt.Errorf("sensor %s wind speed: %w", s.SensorID, err)
	}
	t.wind = make([]l4transport.Wind, len(targets))
	for i := range targets {
		t.wind[i] = l4transport.FromDirection(dir[i], speed[i])
	}
	t.windSpeed = speed
	return t, nil
}

func windFromObservation(o l1observations.Observation) l4transport.Wind {
	return l4transport.FromDirection(o.WindDirDeg, o.WindSpeed)
}

// Package synth generates reproducible synthetic observation days for
// demos and tests: a single plume source whose downwind footprint swings
// with a slowly veering wind.
package synth

import (
	"math"
	"math/rand"
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/config"
)

// Sensor is a fixed monitoring position.
type Sensor struct {
	ID  string
	Lat float64
	Lon float64
}

// DefaultSensors is a four-sensor layout around a harbour.
var DefaultSensors = []Sensor{
	{ID: "pier", Lat: 42.350, Lon: -71.040},
	{ID: "depot", Lat: 42.360, Lon: -71.060},
	{ID: "school", Lat: 42.342, Lon: -71.055},
	{ID: "park", Lat: 42.366, Lon: -71.045},
}

// SensorsFromSite returns the site's configured sensor positions.
func SensorsFromSite(site *config.SiteConfig) []Sensor {
	out := make([]Sensor, 0, len(site.Sensors))
	for _, s := range site.Sensors {
		out = append(out, Sensor{ID: s.ID, Lat: s.Lat, Lon: s.Lon})
	}
	return out
}

// Generator produces one reading per sensor per Interval.
type Generator struct {
	Sensors  []Sensor
	Interval time.Duration

	// Configuration
	Background  float64 // pollution far from the plume
	Amplitude   float64 // extra pollution on the plume axis at noon
	SourceLat   float64
	SourceLon   float64
	PlumeWidth  float64 // degrees, crosswind sigma at the source
	Spread      float64 // plume widening per degree downwind
	MeanWindDir float64 // degrees, meteorological
	WindSwing   float64 // degrees, amplitude of the daily veer
	MeanWindMPS float64
	Noise       float64 // sigma of additive pollution noise
	MissingRate float64 // fraction of rows with missing pollution
	WindStation string  // when set only this sensor reports wind
	StartHour   int
	EndHour     int

	rng *rand.Rand
}

// NewGenerator creates a generator seeded for reproducible output. The
// plume source sits at the centre of the sensors.
func NewGenerator(seed int64, sensors []Sensor) *Generator {
	if len(sensors) == 0 {
		sensors = DefaultSensors
	}
	var lat, lon float64
	for _, s := range sensors {
		lat += s.Lat
		lon += s.Lon
	}
	n := float64(len(sensors))
	return &Generator{
		Sensors:     sensors,
		Interval:    5 * time.Minute,
		Background:  12,
		Amplitude:   60,
		SourceLat:   lat / n,
		SourceLon:   lon / n,
		PlumeWidth:  0.004,
		Spread:      0.25,
		MeanWindDir: 225,
		WindSwing:   70,
		MeanWindMPS: 3,
		Noise:       1.5,
		MissingRate: 0.01,
		StartHour:   0,
		EndHour:     24,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Day generates the readings for day in loc, ordered by time then sensor.
func (g *Generator) Day(day l1observations.Day, loc *time.Location) []l1observations.Observation {
	start := day.Start(loc).Add(time.Duration(g.StartHour) * time.Hour)
	end := day.Start(loc).Add(time.Duration(g.EndHour) * time.Hour)

	var out []l1observations.Observation
	for ts := start; ts.Before(end); ts = ts.Add(g.Interval) {
		hour := float64(ts.Sub(day.Start(loc))) / float64(time.Hour)
		dir, speed := g.wind(hour)
		for _, s := range g.Sensors {
			o := l1observations.Observation{
				Timestamp:  ts,
				SensorID:   s.ID,
				Lat:        s.Lat,
				Lon:        s.Lon,
				Pollution:  g.pollution(s, hour, dir),
				WindDirDeg: l1observations.Missing,
				WindSpeed:  l1observations.Missing,
			}
			if g.WindStation == "" || g.WindStation == s.ID {
				o.WindDirDeg = math.Mod(dir+g.rng.NormFloat64()*5+360, 360)
				o.WindSpeed = math.Max(0, speed+g.rng.NormFloat64()*0.3)
			}
			if g.rng.Float64() < g.MissingRate {
				o.Pollution = l1observations.Missing
			}
			out = append(out, o)
		}
	}
	return out
}

// wind returns the meteorological direction and speed at hour.
func (g *Generator) wind(hour float64) (dir, speed float64) {
	phase := 2 * math.Pi * hour / 24
	dir = math.Mod(g.MeanWindDir+g.WindSwing*math.Sin(phase)+360, 360)
	speed = g.MeanWindMPS * (1 + 0.4*math.Sin(phase-math.Pi/2))
	return dir, speed
}

// pollution evaluates the plume at s. The wind blows towards dir+180.
func (g *Generator) pollution(s Sensor, hour, dir float64) float64 {
	coslat := math.Cos(g.SourceLat * math.Pi / 180)
	x := (s.Lon - g.SourceLon) * coslat
	y := s.Lat - g.SourceLat

	b := (dir + 180) * math.Pi / 180
	ux, uy := math.Sin(b), math.Cos(b)
	along := x*ux + y*uy
	cross := x*uy - y*ux

	plume := 0.1
	if along > 0 {
		sigma := g.PlumeWidth + g.Spread*along
		plume = math.Exp(-cross * cross / (2 * sigma * sigma))
	}
	diurnal := 0.5 + 0.5*math.Max(0, math.Sin(math.Pi*(hour-6)/12))
	v := g.Background + g.Amplitude*diurnal*plume + g.rng.NormFloat64()*g.Noise
	return math.Max(0, v)
}

package l1observations

import (
	"sort"
)

// MinObservationsForSmoothing is the smallest per-sensor sample count that
// the smoothing layer accepts. Sensors below it are dropped for the day.
const MinObservationsForSmoothing = 3

// SensorSeries is the time-ordered set of observations for one sensor on
// one analysis day. Lat and Lon are taken from the earliest observation.
type SensorSeries struct {
	SensorID     string
	Lat          float64
	Lon          float64
	Observations []Observation
}

// Len returns the number of observations.
func (s SensorSeries) Len() int {
	return len(s.Observations)
}

// Times returns observation times as unix seconds.
func (s SensorSeries) Times() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.UnixSeconds()
	}
	return out
}

// Pollution returns the pollution values in time order.
func (s SensorSeries) Pollution() []float64 {
	out := make([]float64, len(s.Observations))
	for i, o := range s.Observations {
		out[i] = o.Pollution
	}
	return out
}

// Wind returns times, directions and speeds for the observations that
// carry both wind fields. All three slices are empty when the sensor has
// no wind data.
func (s SensorSeries) Wind() (times, dirs, speeds []float64) {
	for _, o := range s.Observations {
		if !o.HasWind() {
			continue
		}
		times = append(times, o.UnixSeconds())
		dirs = append(dirs, o.WindDirDeg)
		speeds = append(speeds, o.WindSpeed)
	}
	return times, dirs, speeds
}

// GroupResult is the outcome of grouping a day's observations by sensor.
type GroupResult struct {
	// Eligible holds sensors with at least the minimum sample count,
	// ordered by sensor ID.
	Eligible []SensorSeries
	// Dropped lists sensor IDs excluded for insufficient samples.
	Dropped []string
}

// GroupBySensor splits observations into per-sensor series sorted by time.
// Sensors with fewer than minObs observations are reported in Dropped
// rather than failing the day. A minObs below MinObservationsForSmoothing
// is raised to it.
func GroupBySensor(obs []Observation, minObs int) GroupResult {
	if minObs < MinObservationsForSmoothing {
		minObs = MinObservationsForSmoothing
	}

	bySensor := make(map[string][]Observation)
	for _, o := range obs {
		bySensor[o.SensorID] = append(bySensor[o.SensorID], o)
	}

	ids := make([]string, 0, len(bySensor))
	for id := range bySensor {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var res GroupResult
	for _, id := range ids {
		rows := bySensor[id]
		if len(rows) < minObs {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		})
		res.Eligible = append(res.Eligible, SensorSeries{
			SensorID:     id,
			Lat:          rows[0].Lat,
			Lon:          rows[0].Lon,
			Observations: rows,
		})
	}
	return res
}

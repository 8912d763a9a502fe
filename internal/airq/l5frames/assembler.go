package l5frames

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/airq/l2series"
	"github.com/banshee-data/airquality.report/internal/airq/l3field"
	"github.com/banshee-data/airquality.report/internal/airq/l4transport"
	"github.com/banshee-data/airquality.report/internal/monitoring"
)

// Input is one day of clean observations plus the choices the assembler
// must not make for itself.
type Input struct {
	Observations []l1observations.Observation
	Wind         WindSource
	// WindObservations, when non-nil, supplies the station wind readings.
	// It lets a met station without pollution data feed the station
	// policy. Nil means Observations.
	WindObservations []l1observations.Observation
	// Extent fixes the field area. Nil means the sensor bounding box
	// grown by Config.MapPadding.
	Extent *l3field.Extent
}

// Result is the assembler output for one day.
type Result struct {
	Grid   l2series.TimeGrid
	Frames []AnalysisFrame
	Tracks []SensorTrack
	// Dropped lists sensors excluded for too few observations.
	Dropped []string
	// FieldFallbacks counts frames that used IDW instead of the spline.
	FieldFallbacks int
}

// Assembler builds analysis frames. It holds no per-day state and is safe
// for concurrent use.
type Assembler struct {
	cfg        Config
	kernel     l2series.Kernel
	interp     l3field.Interpolator
	classifier l4transport.Classifier
}

// NewAssembler validates cfg and prepares the layer components.
func NewAssembler(cfg Config) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k, err := l2series.NewKernel(cfg.SigmaMinutes)
	if err != nil {
		return nil, err
	}
	c, err := l4transport.NewClassifier(cfg.AlignmentThreshold)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		cfg:        cfg,
		kernel:     k,
		interp:     l3field.Interpolator{Resolution: cfg.Resolution, Smoothing: cfg.RBFSmoothing},
		classifier: c,
	}, nil
}

// Config returns the assembler configuration.
func (a *Assembler) Config() Config {
	return a.cfg
}

// Assemble runs the full day. A day with no eligible sensor or an empty
// time grid returns a Result with no frames and a nil error.
func (a *Assembler) Assemble(in Input) (Result, error) {
	if err := in.Wind.Validate(); err != nil {
		return Result{}, err
	}
	var res Result
	if len(in.Observations) == 0 {
		return res, nil
	}

	groups := l1observations.GroupBySensor(in.Observations, a.cfg.MinObservations)
	res.Dropped = groups.Dropped
	for _, id := range groups.Dropped {
		monitoring.Diagf("frames: sensor %s dropped: fewer than %d observations", id, a.cfg.MinObservations)
	}
	if len(groups.Eligible) == 0 {
		return res, nil
	}

	start, end := timeBounds(in.Observations)
	grid, err := l2series.NewTimeGrid(start, end, a.cfg.FrameInterval)
	if err != nil {
		return Result{}, err
	}
	res.Grid = grid
	if grid.Len() == 0 {
		return res, nil
	}

	extent, err := a.extent(in.Extent, groups.Eligible)
	if err != nil {
		return Result{}, err
	}

	targets := grid.Seconds()
	tracks, err := a.buildTracks(groups.Eligible, targets, in.Wind.Policy == WindPerSensor)
	if err != nil {
		return Result{}, err
	}
	res.Tracks = tracks

	windObs := in.WindObservations
	if windObs == nil {
		windObs = in.Observations
	}
	station, err := a.stationWind(in.Wind, windObs, targets)
	if err != nil {
		return Result{}, err
	}

	frames := make([]AnalysisFrame, grid.Len())
	fallback := make([]bool, grid.Len())
	var g errgroup.Group
	g.SetLimit(a.cfg.workers())
	for i := range frames {
		g.Go(func() error {
			f, err := a.frame(i, grid, tracks, station, extent)
			if err != nil {
				return err
			}
			frames[i] = f
			fallback[i] = f.FieldMethod == l3field.MethodIDW
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	for _, fb := range fallback {
		if fb {
			res.FieldFallbacks++
		}
	}
	res.Frames = frames
	return res, nil
}

func (a *Assembler) buildTracks(series []l1observations.SensorSeries, targets []float64, perSensorWind bool) ([]SensorTrack, error) {
	tracks := make([]SensorTrack, len(series))
	var g errgroup.Group
	g.SetLimit(a.cfg.workers())
	for i, s := range series {
		g.Go(func() error {
			t, err := buildTrack(s, targets, a.kernel, a.cfg.TrendWindow, perSensorWind)
			if err != nil {
				return err
			}
			tracks[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tracks, nil
}

// stationWind smooths the station series onto the grid. It returns nil
// under the per-sensor policy. A station with no wind readings yields
// zero wind, which classifies as calm.
func (a *Assembler) stationWind(src WindSource, obs []l1observations.Observation, targets []float64) ([]WindVector, error) {
	if src.Policy != WindStation {
		return nil, nil
	}
	out := make([]WindVector, len(targets))
	times, u, v, speed := src.stationSamples(obs)
	if len(times) == 0 {
		monitoring.Diagf("frames: no station wind readings (station=%q); using calm wind", src.StationID)
		return out, nil
	}

	su, err := a.kernel.Smooth(times, u, targets)
	if err != nil {
		return nil, fmt.Errorf("station wind u: %w", err)
	}
	sv, err := a.kernel.Smooth(times, v, targets)
	if err != nil {
		return nil, fmt.Errorf("station wind v: %w", err)
	}
	ss, err := a.kernel.Smooth(times, speed, targets)
	if err != nil {
		return nil, fmt.Errorf("station wind speed: %w", err)
	}
	for i := range targets {
		out[i] = newWindVector(l4transport.Wind{U: su[i], V: sv[i]}, ss[i])
	}
	return out, nil
}

func (a *Assembler) extent(fixed *l3field.Extent, series []l1observations.SensorSeries) (l3field.Extent, error) {
	if fixed != nil {
		return *fixed, fixed.Validate()
	}
	pts := make([]l3field.Point, len(series))
	for i, s := range series {
		pts[i] = l3field.Point{Lon: s.Lon, Lat: s.Lat}
	}
	return l3field.BoundingExtent(pts, a.cfg.MapPadding)
}

// frame assembles grid index i. It reads tracks and station wind but
// writes nothing shared.
func (a *Assembler) frame(i int, grid l2series.TimeGrid, tracks []SensorTrack, station []WindVector, extent l3field.Extent) (AnalysisFrame, error) {
	n := len(tracks)
	pts := make([]l3field.Point, n)
	lons := make([]float64, n)
	lats := make([]float64, n)
	points := make([]TrackPoint, n)
	for j, t := range tracks {
		p := t.At(i)
		points[j] = p
		lons[j], lats[j] = t.Position()
		pts[j] = l3field.Point{Lon: lons[j], Lat: lats[j], Value: p.Pollution}
	}

	var wind WindVector
	if station != nil {
		wind = station[i]
	} else {
		wind = meanSensorWind(points)
	}
	comps := wind.Components()

	grad := l3field.EstimateGradient(pts)
	alignment, indicator := a.classifier.Classify(comps, grad)
	upwind := l4transport.Upwindness(lons, lats, comps)

	field, method, err := a.interp.Interpolate(pts, extent)
	if err != nil {
		return AnalysisFrame{}, fmt.Errorf("frame %d field: %w", i, err)
	}

	sensors := make([]SensorSnapshot, n)
	for j, t := range tracks {
		p := points[j]
		sensors[j] = SensorSnapshot{
			SensorID:   t.ID(),
			Lon:        lons[j],
			Lat:        lats[j],
			Pollution:  p.Pollution,
			Label:      SensorLabel(p.Pollution, p.Trend, a.cfg.TrendLabelThreshold),
			Trend:      p.Trend,
			Upwindness: upwind[j],
		}
		if p.HasWind {
			w := newWindVector(p.Wind, p.WindSpeed)
			sensors[j].Wind = &w
		}
	}

	ts := grid.Times[i].In(a.cfg.location())
	monitoring.Tracef("frames: %s sensors=%d transport=%s alignment=%.3f field=%s",
		ts.Format("15:04"), n, indicator, alignment, method)
	return AnalysisFrame{
		Index:             i,
		Timestamp:         ts,
		TimeLabel:         ts.Format("15:04"),
		Sensors:           sensors,
		Wind:              wind,
		GradientBearing:   grad.Bearing,
		GradientMagnitude: grad.Magnitude,
		Alignment:         alignment,
		Transport:         indicator,
		Field:             field,
		FieldMethod:       method,
	}, nil
}

// meanSensorWind averages the sensors that carry wind. Speed is the mean
// smoothed speed, not the magnitude of the mean vector.
func meanSensorWind(points []TrackPoint) WindVector {
	var ws []l4transport.Wind
	var speed float64
	for _, p := range points {
		if p.HasWind {
			ws = append(ws, p.Wind)
			speed += p.WindSpeed
		}
	}
	if len(ws) == 0 {
		return WindVector{}
	}
	return newWindVector(l4transport.MeanWind(ws), speed/float64(len(ws)))
}

func timeBounds(obs []l1observations.Observation) (start, end time.Time) {
	start, end = obs[0].Timestamp, obs[0].Timestamp
	for _, o := range obs[1:] {
		if o.Timestamp.Before(start) {
			start = o.Timestamp
		}
		if o.Timestamp.After(end) {
			end = o.Timestamp
		}
	}
	return start, end
}

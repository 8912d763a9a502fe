package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/airq/l3field"
	"github.com/banshee-data/airquality.report/internal/airq/l5frames"
	"github.com/banshee-data/airquality.report/internal/monitoring"
	"github.com/banshee-data/airquality.report/internal/timeutil"
)

// Options configures a DayProcessor.
type Options struct {
	Engine l5frames.Config
	Clean  l1observations.CleanOptions
	Wind   l5frames.WindSource
	// Extent fixes the field area for every day. Nil follows the sensors.
	Extent *l3field.Extent
	// Metrics is optional.
	Metrics *monitoring.Metrics
	// Clock times each day. Nil means the real clock.
	Clock timeutil.Clock
}

// DayResult is the outcome of processing one day.
type DayResult struct {
	Day      l1observations.Day
	Result   l5frames.Result
	Invalid  int
	Clean    l1observations.CleanStats
	Duration time.Duration
}

// Sensors returns the number of sensors that made it into the frames.
func (r DayResult) Sensors() int {
	return len(r.Result.Tracks)
}

// Rejected returns the rows removed before smoothing.
func (r DayResult) Rejected() int {
	return r.Invalid + r.Clean.Rejected()
}

// DayProcessor turns raw observations into frames one day at a time.
type DayProcessor struct {
	assembler *l5frames.Assembler
	opts      Options
	loc       *time.Location
	clock     timeutil.Clock
}

// NewDayProcessor validates opts and builds the assembler.
func NewDayProcessor(opts Options) (*DayProcessor, error) {
	if err := opts.Wind.Validate(); err != nil {
		return nil, err
	}
	a, err := l5frames.NewAssembler(opts.Engine)
	if err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	loc := opts.Engine.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &DayProcessor{assembler: a, opts: opts, loc: loc, clock: clock}, nil
}

// ProcessDay filters obs to day, drops invalid rows, screens outliers and
// assembles the frames. ErrNoRows and ErrNoValidRows from the
// observations layer stay matchable with errors.Is.
func (p *DayProcessor) ProcessDay(obs []l1observations.Observation, day l1observations.Day) (DayResult, error) {
	start := p.clock.Now()
	out := DayResult{Day: day}

	dayRows, err := l1observations.FilterDay(obs, day, p.loc)
	if err != nil {
		return out, err
	}
	valid, err := l1observations.DropInvalid(dayRows)
	if err != nil {
		return out, fmt.Errorf("%s: %w", day, err)
	}
	out.Invalid = len(dayRows) - len(valid)

	cleaned, st, err := l1observations.Clean(valid, p.opts.Clean)
	if err != nil {
		return out, fmt.Errorf("%s: failed to clean observations: %w", day, err)
	}
	out.Clean = st
	monitoring.Diagf("pipeline: %s rows=%d invalid=%d %s", day, len(dayRows), out.Invalid, st)

	res, err := p.assembler.Assemble(l5frames.Input{
		Observations:     cleaned,
		Wind:             p.opts.Wind,
		WindObservations: p.windRows(dayRows),
		Extent:           p.opts.Extent,
	})
	if err != nil {
		return out, fmt.Errorf("%s: failed to assemble frames: %w", day, err)
	}
	out.Result = res
	out.Duration = p.clock.Since(start)

	p.record(out)
	return out, nil
}

// windRows selects the station wind readings from the unscreened day. A
// met station usually lacks pollution, so these rows skip DropInvalid and
// only the wind-speed cap applies.
func (p *DayProcessor) windRows(dayRows []l1observations.Observation) []l1observations.Observation {
	if p.opts.Wind.Policy != l5frames.WindStation {
		return nil
	}
	out := make([]l1observations.Observation, 0)
	for _, o := range dayRows {
		if o.SensorID == "" || !o.HasWind() {
			continue
		}
		if p.opts.Clean.WindSpeedCap > 0 && o.WindSpeed > p.opts.Clean.WindSpeedCap {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (p *DayProcessor) record(r DayResult) {
	m := p.opts.Metrics
	if m == nil {
		return
	}
	m.FramesBuilt.Add(float64(len(r.Result.Frames)))
	m.SensorsDropped.Add(float64(len(r.Result.Dropped)))
	m.FieldFallbacks.Add(float64(r.Result.FieldFallbacks))
	m.ObservationsRejected.WithLabelValues("invalid").Add(float64(r.Invalid))
	m.ObservationsRejected.WithLabelValues("percentile").Add(float64(r.Clean.AbovePercentile))
	m.ObservationsRejected.WithLabelValues("spike").Add(float64(r.Clean.Spikes))
	m.ObservationsRejected.WithLabelValues("wind_speed").Add(float64(r.Clean.WindOverCap))
	m.DaySeconds.Observe(r.Duration.Seconds())
}

// Outcome labels for the days counter.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Run processes each day in order. Days without rows, without valid rows
// or without frames are skipped and logged. Any other error stops the run.
// Cancellation is honoured between days.
func (p *DayProcessor) Run(ctx context.Context, obs []l1observations.Observation, days []l1observations.Day) ([]DayResult, error) {
	var results []DayResult
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		r, err := p.ProcessDay(obs, day)
		switch {
		case errors.Is(err, l1observations.ErrNoRows), errors.Is(err, l1observations.ErrNoValidRows):
			monitoring.Opsf("pipeline: skipping %s: %v", day, err)
			p.countDay(OutcomeSkipped)
			continue
		case err != nil:
			p.countDay(OutcomeFailed)
			return results, err
		}

		if len(r.Result.Frames) == 0 {
			monitoring.Opsf("pipeline: skipping %s: no frames (sensors dropped: %v)", day, r.Result.Dropped)
			p.countDay(OutcomeSkipped)
			continue
		}
		monitoring.Logf("pipeline: %s frames=%d sensors=%d fallbacks=%d in %s",
			day, len(r.Result.Frames), r.Sensors(), r.Result.FieldFallbacks, r.Duration)
		p.countDay(OutcomeProcessed)
		results = append(results, r)
	}
	return results, nil
}

func (p *DayProcessor) countDay(outcome string) {
	if p.opts.Metrics != nil {
		p.opts.Metrics.DaysProcessed.WithLabelValues(outcome).Inc()
	}
}

package l5frames

import (
	"fmt"
	"runtime"
	"time"

	"github.com/banshee-data/airquality.report/internal/airq/l1observations"
	"github.com/banshee-data/airquality.report/internal/airq/l2series"
	"github.com/banshee-data/airquality.report/internal/airq/l3field"
	"github.com/banshee-data/airquality.report/internal/airq/l4transport"
)

// Config holds the assembler's scalar parameters.
type Config struct {
	FrameInterval       time.Duration
	SigmaMinutes        float64
	Resolution          int
	TrendWindow         int
	RBFSmoothing        float64
	AlignmentThreshold  float64
	TrendLabelThreshold float64
	MinObservations     int
	MapPadding          float64
	// Workers bounds parallel per-sensor and per-frame work. Zero means
	// GOMAXPROCS.
	Workers int
	// Location is used for time labels. Nil means UTC.
	Location *time.Location
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		FrameInterval:       l2series.DefaultFrameInterval,
		SigmaMinutes:        l2series.DefaultSigmaMinutes,
		Resolution:          l3field.DefaultResolution,
		TrendWindow:         l2series.DefaultTrendWindow,
		RBFSmoothing:        l3field.DefaultSmoothing,
		AlignmentThreshold:  l4transport.DefaultAlignmentThreshold,
		TrendLabelThreshold: DefaultTrendLabelThreshold,
		MinObservations:     l1observations.MinObservationsForSmoothing,
		MapPadding:          l3field.DefaultPadding,
	}
}

// Validate checks the parameters the layers do not already check.
func (c Config) Validate() error {
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %s", c.FrameInterval)
	}
	if c.Resolution < 2 {
		return fmt.Errorf("field resolution must be at least 2, got %d", c.Resolution)
	}
	if c.TrendWindow < 1 {
		return fmt.Errorf("trend window must be at least 1, got %d", c.TrendWindow)
	}
	if c.RBFSmoothing < 0 {
		return fmt.Errorf("rbf smoothing must be non-negative, got %v", c.RBFSmoothing)
	}
	if c.TrendLabelThreshold < 0 {
		return fmt.Errorf("trend label threshold must be non-negative, got %v", c.TrendLabelThreshold)
	}
	if c.MapPadding < 0 {
		return fmt.Errorf("map padding must be non-negative, got %v", c.MapPadding)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.UTC
}

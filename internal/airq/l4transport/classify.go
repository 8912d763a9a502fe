package l4transport

import (
	"fmt"
	"math"

	"github.com/banshee-data/airquality.report/internal/airq/l3field"
)

// DefaultAlignmentThreshold separates accumulating and dispersing from
// mixing. It is a visualisation parameter.
const DefaultAlignmentThreshold = 0.5

// Indicator labels how wind relates to the pollution gradient.
type Indicator string

const (
	Calm         Indicator = "calm"
	Accumulating Indicator = "accumulating"
	Dispersing   Indicator = "dispersing"
	Mixing       Indicator = "mixing"
)

// Classifier compares wind bearing with gradient bearing.
type Classifier struct {
	Threshold float64
}

// NewClassifier returns a classifier. Threshold must be in [0, 1].
func NewClassifier(threshold float64) (Classifier, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return Classifier{}, fmt.Errorf("alignment threshold must be in [0, 1], got %v", threshold)
	}
	return Classifier{Threshold: threshold}, nil
}

// Classify returns alignment = cos(gradient bearing - wind bearing) and the
// matching indicator. Calm wind wins over everything else. Without a usable
// gradient the result is neutral: alignment 0, Mixing.
func (c Classifier) Classify(w Wind, g l3field.Gradient) (float64, Indicator) {
	if w.Calm() {
		return 0, Calm
	}
	if !g.Usable() {
		return 0, Mixing
	}
	alignment := math.Cos((g.Bearing - w.Bearing()) * math.Pi / 180)
	switch {
	case alignment > c.Threshold:
		return alignment, Accumulating
	case alignment < -c.Threshold:
		return alignment, Dispersing
	default:
		return alignment, Mixing
	}
}

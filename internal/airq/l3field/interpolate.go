package l3field

import (
	"fmt"

	"github.com/banshee-data/airquality.report/internal/monitoring"
)

// Method names the algorithm that produced a field.
type Method string

const (
	MethodRBF Method = "rbf"
	MethodIDW Method = "idw"
)

// Interpolator turns one instant's sensor values into a dense field.
type Interpolator struct {
	Resolution int
	Smoothing  float64
}

// NewInterpolator returns an interpolator with default settings.
func NewInterpolator() Interpolator {
	return Interpolator{Resolution: DefaultResolution, Smoothing: DefaultSmoothing}
}

// Interpolate tries the thin-plate spline first and falls back to IDW on
// any failure, so it only errors on unusable arguments. The method that
// produced the field is returned alongside it.
func (in Interpolator) Interpolate(points []Point, extent Extent) (Field, Method, error) {
	if len(points) == 0 {
		return Field{}, "", fmt.Errorf("cannot interpolate a field from zero sensors")
	}
	if in.Resolution < 2 {
		return Field{}, "", fmt.Errorf("field resolution must be at least 2, got %d", in.Resolution)
	}
	if err := extent.Validate(); err != nil {
		return Field{}, "", err
	}

	f, err := RBF(points, extent, in.Resolution, in.Smoothing)
	if err == nil {
		return f, MethodRBF, nil
	}
	monitoring.Diagf("field: falling back to IDW for %d sensors: %v", len(points), err)
	return IDW(points, extent, in.Resolution), MethodIDW, nil
}

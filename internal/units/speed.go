// Package units provides shared constants, validation and conversion for
// wind speed units and site timezones.
package units

import (
	"fmt"
	"strings"
)

// Unit constants
const (
	MPS   = "mps"
	MPH   = "mph"
	KMPH  = "kmph"
	KPH   = "kph"
	Knots = "kt"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH, Knots}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// metresPerSecond is the m/s value of one unit.
var metresPerSecond = map[string]float64{
	MPS:   1,
	MPH:   1 / 2.2369362920544,
	KMPH:  1 / 3.6,
	KPH:   1 / 3.6,
	Knots: 1852.0 / 3600.0,
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Unknown units return the input unchanged.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	f, ok := metresPerSecond[targetUnits]
	if !ok {
		return speedMPS
	}
	return speedMPS / f
}

// ToMPS converts a speed in the given units to meters per second. The
// engine works in m/s throughout.
func ToMPS(speed float64, fromUnits string) (float64, error) {
	f, ok := metresPerSecond[fromUnits]
	if !ok {
		return 0, fmt.Errorf("unknown speed unit %q (valid: %s)", fromUnits, GetValidUnitsString())
	}
	return speed * f, nil
}

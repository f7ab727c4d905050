// Package units provides shared constants and validation for acceleration units
package units

import "strings"

// Unit constants
const (
	MPS2   = "mps2" // metres per second squared
	G      = "g"    // standard gravity
	MilliG = "mg"
	Gal    = "gal" // centimetres per second squared
)

// StandardGravity is one g in m/s^2.
const StandardGravity = 9.80665

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS2, G, MilliG, Gal}

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

// ConvertAcceleration converts an acceleration from m/s^2 to the target units.
// Samples are stored in m/s^2.
func ConvertAcceleration(mps2 float64, targetUnits string) float64 {
	switch targetUnits {
	case G:
		return mps2 / StandardGravity
	case MilliG:
		return mps2 / StandardGravity * 1000
	case Gal:
		return mps2 * 100
	default:
		return mps2 // default to m/s^2 if unknown unit
	}
}

// ToMPS2 converts a value in the given units back to m/s^2.
func ToMPS2(value float64, fromUnits string) float64 {
	switch fromUnits {
	case G:
		return value * StandardGravity
	case MilliG:
		return value * StandardGravity / 1000
	case Gal:
		return value / 100
	default:
		return value
	}
}

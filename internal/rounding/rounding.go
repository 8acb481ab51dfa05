// Package rounding holds the monetary rounding primitives shared by the billing engine.
//
// Every function assumes finite input. Callers coerce missing or non-numeric values to zero
// before they reach this package.
package rounding

import (
	"math"
	"strings"
)

// Policy selects how a figure is rounded for presentation or payment.
type Policy string

const (
	// Standard rounds half away from zero to two decimals.
	Standard Policy = "round"
	// Ceil rounds up to two decimals.
	Ceil Policy = "ceil"
	// Floor rounds down to two decimals.
	Floor Policy = "floor"
	// Nearest005 rounds to the nearest 0.05.
	Nearest005 Policy = "nearest_0_05"
	// Nearest050 rounds to the nearest 0.50.
	Nearest050 Policy = "nearest_0_50"
	// NearestWhole rounds to the nearest whole unit.
	NearestWhole Policy = "nearest_1"
)

// MoneyDecimals is the resolution of every monetary amount.
const MoneyDecimals = 2

// QuantityDecimals is the resolution of sold and free quantities.
const QuantityDecimals = 3

// epsilon is relative to the magnitude of the scaled value; it absorbs binary
// representation error such as 1.005 being stored as 1.00499999999999989.
const epsilon = 1e-12

func factor(decimals int) float64 {
	if decimals <= 0 {
		return 1
	}
	return math.Pow(10, float64(decimals))
}

func nudge(scaled float64) float64 {
	return epsilon * math.Max(1, math.Abs(scaled))
}

// Round rounds value to the given number of decimals, half away from zero.
func Round(value float64, decimals int) float64 {
	f := factor(decimals)
	scaled := value * f
	scaled += math.Copysign(nudge(scaled), scaled)
	return math.Round(scaled) / f
}

// Money rounds value to the monetary resolution.
func Money(value float64) float64 {
	return Round(value, MoneyDecimals)
}

// RoundUp rounds value towards positive infinity at the given number of decimals.
func RoundUp(value float64, decimals int) float64 {
	f := factor(decimals)
	scaled := value * f
	return math.Ceil(scaled-nudge(scaled)) / f
}

// RoundDown rounds value towards negative infinity at the given number of decimals.
func RoundDown(value float64, decimals int) float64 {
	f := factor(decimals)
	scaled := value * f
	return math.Floor(scaled+nudge(scaled)) / f
}

// RoundToNearest rounds value to the closest multiple of increment. A non-positive
// increment falls back to standard two-decimal rounding.
func RoundToNearest(value, increment float64) float64 {
	if increment <= 0 {
		return Money(value)
	}
	steps := Round(value/increment, 0)
	return Money(steps * increment)
}

// ApplyPolicy rounds value according to policy. Unknown policies use Standard.
func ApplyPolicy(value float64, policy Policy) float64 {
	switch policy {
	case Ceil:
		return RoundUp(value, MoneyDecimals)
	case Floor:
		return RoundDown(value, MoneyDecimals)
	case Nearest005:
		return RoundToNearest(value, 0.05)
	case Nearest050:
		return RoundToNearest(value, 0.50)
	case NearestWhole:
		return Round(value, 0)
	default:
		return Money(value)
	}
}

// ParsePolicy maps a configuration string onto a Policy. Empty or unknown
// values resolve to fallback.
func ParsePolicy(value string, fallback Policy) Policy {
	switch p := Policy(strings.ToLower(strings.TrimSpace(value))); p {
	case Standard, Ceil, Floor, Nearest005, Nearest050, NearestWhole:
		return p
	default:
		return fallback
	}
}

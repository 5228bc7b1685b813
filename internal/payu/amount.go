package payu

import (
	"errors"
	"math"
	"strconv"
)

// ErrInvalidAmount is returned for negative, NaN or infinite amounts.
var ErrInvalidAmount = errors.New("invalid amount")

// ToMinorUnits converts a decimal amount to integer minor units (grosze),
// rounding half away from zero.
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, ErrInvalidAmount
	}
	// Round the scaled value at a precision finer than a grosz first, so
	// 1.005 (stored as 1.00499999...) still rounds up like the decimal does.
	scaled, err := strconv.ParseFloat(strconv.FormatFloat(amount*100, 'f', 6, 64), 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// float64(math.MaxInt64) is 2^63, one past the largest int64.
	scaled = math.Round(scaled)
	if scaled >= math.MaxInt64 {
		return 0, ErrInvalidAmount
	}
	return int64(scaled), nil
}

// FromMinorUnits is the decimal view of a minor-unit amount.
func FromMinorUnits(minor int64) float64 { return float64(minor) / 100.0 }

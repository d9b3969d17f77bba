package gateway

import (
	"errors"
	"math"
)

var ErrAmountOutOfRange = errors.New("amount out of range")

// minorPerMajor is the subunit factor for every supported currency.
const minorPerMajor = 100

// ToMinor converts a major-unit amount to the provider's minor units.
func ToMinor(major int64) (int64, error) {
	if major < 0 || major > math.MaxInt64/minorPerMajor {
		return 0, ErrAmountOutOfRange
	}
	return major * minorPerMajor, nil
}

// ToMajor converts minor units back, rejecting amounts that carry a fraction.
func ToMajor(minor int64) (int64, error) {
	if minor < 0 || minor%minorPerMajor != 0 {
		return 0, ErrAmountOutOfRange
	}
	return minor / minorPerMajor, nil
}

package lookup

import (
	"errors"

	"fuel-price-lab/internal/timeseries"
)

// ErrNoPriceData is returned when the series holds no observations.
var ErrNoPriceData = errors.New("no price data available")

// PriceAt returns the price at or before target.
// Prices are a step function: an observation holds until the next one.
// If no observation precedes target, the first observation is returned.
func PriceAt(s *timeseries.Series, target int64) (float32, error) {
	if s == nil || s.IsEmpty() {
		return 0, ErrNoPriceData
	}

	if v, ok := s.ValueAsOf(target); ok {
		return v, nil
	}

	return s.At(0), nil
}

// PriceBefore returns the last price strictly before target, using the
// lower-bound position of target. ok is false if nothing precedes target.
func PriceBefore(s *timeseries.Series, target int64) (v float32, ok bool) {
	if s == nil {
		return 0, false
	}
	i := s.NearestIndexOf(target) - 1
	if i < 0 {
		return 0, false
	}
	return s.At(i), true
}

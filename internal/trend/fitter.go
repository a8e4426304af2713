// Package trend fits a least-squares line through a price series and reduces
// it to the two endpoint samples that charts draw as a straight segment.
package trend

import "fuel-price-lab/internal/timeseries"

// Line is a fitted linear function v = Slope*t + Intercept.
type Line struct {
	Slope     float64
	Intercept float64
}

// At evaluates the line at timestamp ts.
func (l Line) At(ts int64) float32 {
	return float32(float64(ts)*l.Slope + l.Intercept)
}

// CanFit reports whether s has at least two distinct timestamps.
// Fit and Endpoints must only be called when CanFit is true.
func CanFit(s *timeseries.Series) bool {
	return s != nil && s.Len() >= 2
}

// Fit computes the least-squares line through all points of s.
// With fewer than two points the variance is zero and the result is NaN.
func Fit(s *timeseries.Series) Line {
	keys := s.Keys()
	values := s.Values()

	meanT := meanKeys(keys)
	meanV := meanValues(values)

	var cov, variance float64
	for i, k := range keys {
		dt := float64(k) - meanT
		cov += dt * (float64(values[i]) - meanV)
		variance += dt * dt
	}

	m := cov / variance
	return Line{
		Slope:     m,
		Intercept: meanV - m*meanT,
	}
}

// Endpoints returns the fitted line sampled at the first and last timestamp
// of s.
func Endpoints(s *timeseries.Series) *timeseries.Series {
	line := Fit(s)
	first, last := s.FirstKey(), s.LastKey()

	out := timeseries.NewWithCapacity(2)
	out.Put(first, line.At(first))
	out.Put(last, line.At(last))
	return out
}

func meanKeys(keys []int64) float64 {
	var sum float64
	for _, k := range keys {
		sum += float64(k)
	}
	return sum / float64(len(keys))
}

func meanValues(values []float32) float64 {
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

// Package resample folds a price series onto a canonical day or week axis and
// averages the folded values per time-of-day bucket.
//
// The walk advances in fixed steps of one hour divided by the step
// resolution. Daylight saving transitions are compensated so that every
// bucket stays aligned with local wall-clock time: a skipped hour is filled
// with the current value and a repeated hour is accumulated once.
package resample

import (
	"errors"
	"fmt"
	"time"

	"fuel-price-lab/internal/calendar"
	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/lookup"
	"fuel-price-lab/internal/timeseries"
)

// DefaultStepsPerHour gives 15 minute buckets.
const DefaultStepsPerHour = 4

const hourMillis = int64(time.Hour / time.Millisecond)

var (
	// ErrInsufficientData is returned when the window contains no complete
	// qualifying day, or the series is empty.
	ErrInsufficientData = errors.New("insufficient data for average")

	// ErrInvalidMode is returned when a method is called with a mode it does
	// not handle.
	ErrInvalidMode = errors.New("invalid average mode")
)

// Resampler averages series over canonical days in one time zone.
// It holds no mutable state and may be shared between goroutines.
type Resampler struct {
	cal          calendar.Calendar
	stepsPerHour int
}

// Option configures a Resampler.
type Option func(*Resampler)

// WithStepsPerHour sets the step resolution. Values that do not divide an
// hour into whole milliseconds are ignored.
func WithStepsPerHour(n int) Option {
	return func(r *Resampler) {
		if n > 0 && hourMillis%int64(n) == 0 {
			r.stepsPerHour = n
		}
	}
}

// New creates a resampler for loc. A nil loc means UTC.
func New(loc *time.Location, opts ...Option) *Resampler {
	r := &Resampler{
		cal:          calendar.New(loc),
		stepsPerHour: DefaultStepsPerHour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location returns the time zone buckets are aligned to.
func (r *Resampler) Location() *time.Location {
	return r.cal.Location()
}

// StepsPerHour returns the step resolution.
func (r *Resampler) StepsPerHour() int {
	return r.stepsPerHour
}

// Step returns the bucket width in milliseconds.
func (r *Resampler) Step() int64 {
	return hourMillis / int64(r.stepsPerHour)
}

// BucketsPerDay returns the number of buckets on the canonical day axis.
func (r *Resampler) BucketsPerDay() int {
	return 24 * r.stepsPerHour
}

// Bounds returns the canonical window for mode inside [start, end]: from the
// first qualifying local midnight at or after start to the last qualifying
// local end of day at or before end.
func (r *Resampler) Bounds(mode domain.AverageMode, start, end int64) (from, to int64, err error) {
	if !mode.IsValid() {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}

	from = r.cal.StartOfDay(start)
	if from < start {
		from = r.cal.StartOfDay(r.cal.AddDays(from, 1))
	}
	to = r.cal.EndOfDay(end)
	if to > end {
		to = r.cal.StartOfDay(end) - 1
	}

	first, last, filtered := time.Weekday(0), time.Weekday(0), false
	switch {
	case mode.IsWeek():
		first, last, filtered = time.Monday, time.Sunday, true
	default:
		if wd, ok := mode.Weekday(); ok {
			first, last, filtered = wd, wd, true
		}
	}

	if filtered {
		for i := 0; i < 7 && from <= to && r.cal.Weekday(from) != first; i++ {
			from = r.cal.StartOfDay(r.cal.AddDays(from, 1))
		}
		for i := 0; i < 7 && from <= to && r.cal.Weekday(to) != last; i++ {
			to = r.cal.StartOfDay(to) - 1
		}
	}

	if from > to {
		return 0, 0, ErrInsufficientData
	}
	return from, to, nil
}

// Resample dispatches to Day or Week depending on mode.
func (r *Resampler) Resample(s *timeseries.Series, mode domain.AverageMode, start, end int64) (*timeseries.Series, error) {
	if mode.IsWeek() {
		return r.Week(s, start, end)
	}
	return r.Day(s, mode, start, end)
}

// Day averages s over every day (AverageDay) or over one weekday in
// [start, end]. The result has one point per bucket keyed by its offset in
// the canonical day, plus a closing point at 24h equal to the first.
func (r *Resampler) Day(s *timeseries.Series, mode domain.AverageMode, start, end int64) (*timeseries.Series, error) {
	if mode.IsWeek() || !mode.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	if s == nil || s.IsEmpty() {
		return nil, ErrInsufficientData
	}

	from, to, err := r.Bounds(mode, start, end)
	if err != nil {
		return nil, err
	}

	wd, filtered := mode.Weekday()
	buckets, err := r.accumulate(s, from, to, wd, filtered)
	if err != nil {
		return nil, err
	}

	step := r.Step()
	out := timeseries.NewWithCapacity(len(buckets) + 1)
	for j, v := range buckets {
		out.Put(int64(j)*step, v)
	}
	out.Put(calendar.DayMillis, buckets[0])
	return out, nil
}

// Week averages each weekday of s over complete Monday to Sunday weeks in
// [start, end] and lays the seven days out on a week axis, Monday first.
// The closing point at 7*24h repeats the very first value.
func (r *Resampler) Week(s *timeseries.Series, start, end int64) (*timeseries.Series, error) {
	if s == nil || s.IsEmpty() {
		return nil, ErrInsufficientData
	}

	from, to, err := r.Bounds(domain.AverageWeek, start, end)
	if err != nil {
		return nil, err
	}

	step := r.Step()
	out := timeseries.NewWithCapacity(7*r.BucketsPerDay() + 1)
	var first float32
	for d := 0; d < 7; d++ {
		wd := time.Weekday((int(time.Monday) + d) % 7)
		buckets, err := r.accumulate(s, from, to, wd, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", wd, err)
		}
		if d == 0 {
			first = buckets[0]
		}
		offset := int64(d) * calendar.DayMillis
		for j, v := range buckets {
			out.Put(offset+int64(j)*step, v)
		}
	}
	out.Put(7*calendar.DayMillis, first)
	return out, nil
}

// accumulate walks [from, to] and returns the per-bucket averages. When
// filtered is set only steps on weekday wd contribute.
func (r *Resampler) accumulate(s *timeseries.Series, from, to int64, wd time.Weekday, filtered bool) ([]float32, error) {
	step := r.Step()
	sph := r.stepsPerHour
	perDay := r.BucketsPerDay()
	sums := make([]float64, perDay)

	i, skip := 0, 0
	prevDST := r.cal.InDST(from)
	prevMatched := false

	for t := from; t <= to; t += step {
		dst := r.cal.InDST(t)
		matched := !filtered || r.cal.Weekday(t) == wd
		if !matched {
			prevDST, prevMatched = dst, false
			continue
		}

		v, err := lookup.PriceAt(s, t)
		if err != nil {
			return nil, ErrInsufficientData
		}

		if prevMatched && dst != prevDST {
			if dst {
				// Clocks jumped forward: the skipped hour takes the current value.
				for k := 0; k < sph; k++ {
					sums[i%perDay] += float64(v)
					i++
				}
			} else {
				// Clocks fell back: the repeated hour is counted once.
				i -= sph
				skip = sph
			}
		}
		prevDST, prevMatched = dst, true

		if skip > 0 {
			skip--
			i++
			continue
		}
		sums[i%perDay] += float64(v)
		i++
	}

	cycles := i / perDay
	if cycles == 0 {
		return nil, ErrInsufficientData
	}

	out := make([]float32, perDay)
	for j, sum := range sums {
		out[j] = float32(sum / float64(cycles))
	}
	return out, nil
}

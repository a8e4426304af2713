// Package aggregate turns station price series into ordered chart traces:
// name filtering, transform selection (raw, trend, average) and global time
// bounds for axis scaling and captions.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/resample"
	"fuel-price-lab/internal/timeseries"
	"fuel-price-lab/internal/trend"
)

// ErrNoData is returned when no series yields any points.
var ErrNoData = errors.New("no price data found")

// Axis describes what trace keys mean.
type Axis string

const (
	AxisTime Axis = "time" // epoch milliseconds
	AxisDay  Axis = "day"  // offset in a canonical day
	AxisWeek Axis = "week" // offset in a canonical week, Monday first
)

// Request selects filter and transform.
type Request struct {
	Transform domain.Transform
	Mode      domain.AverageMode // used when Transform is average
	Pattern   *regexp.Regexp     // optional, must match the whole display name
	Begin     int64              // optional window start (ms), 0 = unbounded
	End       int64              // optional window end (ms), 0 = unbounded
}

// Trace is one named, colored series ready for presentation.
type Trace struct {
	Name   string
	Color  domain.Color
	Series *timeseries.Series
}

// Result is an ordered collection of traces plus presentation bounds.
type Result struct {
	Title   string
	Traces  []Trace
	MinTime int64 // smallest real timestamp contributing to any trace
	MaxTime int64 // largest real timestamp contributing to any trace
	Caption string
	Axis    Axis
	Skipped []string // names dropped for insufficient data
}

// Aggregator builds Results. It only reads series and may be used
// concurrently.
type Aggregator struct {
	resampler   *resample.Resampler
	concurrency int
	logger      *log.Logger
}

// Options configures an Aggregator.
type Options struct {
	Resampler   *resample.Resampler // default: UTC, 4 steps per hour
	Concurrency int                 // default: 4
	Logger      *log.Logger
}

// New creates an aggregator.
func New(opts Options) *Aggregator {
	r := opts.Resampler
	if r == nil {
		r = resample.New(time.UTC)
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		resampler:   r,
		concurrency: concurrency,
		logger:      logger,
	}
}

type source struct {
	name   string
	color  domain.Color
	series *timeseries.Series
}

// ForStation builds one trace per fuel type of station, colored by fuel.
func (a *Aggregator) ForStation(ctx context.Context, station *domain.Station, req Request) (*Result, error) {
	if station == nil {
		return nil, ErrNoData
	}
	var sources []source
	for _, fuel := range station.FuelTypes() {
		sources = append(sources, source{
			name:   fuel.Name(),
			color:  fuel.Color(),
			series: station.Prices(fuel),
		})
	}
	return a.build(ctx, station.Name, sources, req)
}

// ForFuel builds one trace per station holding prices for fuel, colored by
// station.
func (a *Aggregator) ForFuel(ctx context.Context, fuel domain.FuelType, stations []*domain.Station, req Request) (*Result, error) {
	var sources []source
	for _, st := range stations {
		if s := st.Prices(fuel); s != nil && !s.IsEmpty() {
			sources = append(sources, source{name: st.Name, color: st.Color, series: s})
		}
	}
	return a.build(ctx, fuel.Name(), sources, req)
}

func (a *Aggregator) build(ctx context.Context, title string, sources []source, req Request) (*Result, error) {
	transform := req.Transform
	if transform == "" {
		transform = domain.TransformRaw
	}
	if !transform.IsValid() {
		return nil, fmt.Errorf("unknown transform %q", transform)
	}
	if transform == domain.TransformAverage && !req.Mode.IsValid() {
		return nil, fmt.Errorf("%w: %d", resample.ErrInvalidMode, int(req.Mode))
	}

	if req.Pattern != nil {
		re := anchor(req.Pattern)
		filtered := sources[:0:0]
		for _, src := range sources {
			if re.MatchString(src.name) {
				filtered = append(filtered, src)
			}
		}
		sources = filtered
	}

	res := &Result{Title: title, Axis: axisFor(transform, req.Mode)}
	traces := make([]*Trace, len(sources))
	bounds := newBounds()
	var (
		mu      sync.Mutex
		skipped []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, from, to, err := a.apply(src.series, transform, req)
			if errors.Is(err, resample.ErrInsufficientData) || errors.Is(err, errNoTrend) || (err == nil && out.IsEmpty()) {
				mu.Lock()
				skipped = append(skipped, src.name)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", src.name, err)
			}
			bounds.add(from, to)
			traces[i] = &Trace{Name: src.name, Color: src.color, Series: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, tr := range traces {
		if tr != nil {
			res.Traces = append(res.Traces, *tr)
		}
	}
	sort.Strings(skipped)
	res.Skipped = skipped
	for _, name := range skipped {
		a.logger.Printf("%s: skipped %s (insufficient data)", title, name)
	}

	if len(res.Traces) == 0 {
		return nil, ErrNoData
	}

	sort.SliceStable(res.Traces, func(i, j int) bool {
		return strings.ToLower(res.Traces[i].Name) < strings.ToLower(res.Traces[j].Name)
	})

	res.MinTime, res.MaxTime = bounds.min, bounds.max
	res.Caption = caption(transform, req.Mode, res.MinTime, res.MaxTime, a.resampler)
	return res, nil
}

var errNoTrend = errors.New("fewer than two observations")

// apply runs the transform on one series and returns the real time span it
// covered.
func (a *Aggregator) apply(s *timeseries.Series, transform domain.Transform, req Request) (*timeseries.Series, int64, int64, error) {
	if s == nil || s.IsEmpty() {
		return timeseries.New(), 0, 0, nil
	}

	switch transform {
	case domain.TransformTrend:
		if !trend.CanFit(s) {
			return nil, 0, 0, errNoTrend
		}
		return trend.Endpoints(s), s.FirstKey(), s.LastKey(), nil

	case domain.TransformAverage:
		start, end := s.FirstKey(), s.LastKey()
		if req.Begin > start {
			start = req.Begin
		}
		if req.End > 0 && req.End < end {
			end = req.End
		}
		from, to, err := a.resampler.Bounds(req.Mode, start, end)
		if err != nil {
			return nil, 0, 0, err
		}
		out, err := a.resampler.Resample(s, req.Mode, start, end)
		if err != nil {
			return nil, 0, 0, err
		}
		return out, from, to, nil

	default:
		return s, s.FirstKey(), s.LastKey(), nil
	}
}

// anchor wraps re so that it only matches whole names.
func anchor(re *regexp.Regexp) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + re.String() + `)$`)
}

func axisFor(t domain.Transform, mode domain.AverageMode) Axis {
	if t != domain.TransformAverage {
		return AxisTime
	}
	if mode.IsWeek() {
		return AxisWeek
	}
	return AxisDay
}

const captionDate = "02.01.2006"

func caption(t domain.Transform, mode domain.AverageMode, from, to int64, r *resample.Resampler) string {
	var label string
	switch t {
	case domain.TransformTrend:
		label = "Trend"
	case domain.TransformAverage:
		switch {
		case mode == domain.AverageDay:
			label = "Day average"
		case mode.IsWeek():
			label = "Week average"
		default:
			label = mode.Name() + " average"
		}
	default:
		return ""
	}

	loc := r.Location()
	return fmt.Sprintf("%s: %s - %s", label,
		time.UnixMilli(from).In(loc).Format(captionDate),
		time.UnixMilli(to).In(loc).Format(captionDate))
}

type spanBounds struct {
	mu       sync.Mutex
	min, max int64
	seen     bool
}

func newBounds() *spanBounds {
	return &spanBounds{}
}

func (b *spanBounds) add(from, to int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.seen || from < b.min {
		b.min = from
	}
	if !b.seen || to > b.max {
		b.max = to
	}
	b.seen = true
}

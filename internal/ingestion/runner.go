// Package ingestion polls price sources and appends one observation per fuel
// type per station on every cycle.
package ingestion

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/lookup"
	"fuel-price-lab/internal/observability"
	"fuel-price-lab/internal/stations"
	"fuel-price-lab/internal/storage"
)

// Defaults for RunnerOptions.
const (
	DefaultConcurrency = 8
	DefaultLookback    = 30 * 24 * time.Hour
)

// Cycle summarizes one ingestion cycle.
type Cycle struct {
	TimestampMs  int64
	Stations     int
	Observations int
	Failed       []string // stations whose source failed, sorted
}

// Status is the runner state reported by the status endpoint.
type Status struct {
	Cycles           int64     `json:"cycles"`
	LastRun          time.Time `json:"last_run,omitempty"`
	LastSuccess      time.Time `json:"last_success,omitempty"`
	LastObservations int       `json:"last_observations"`
	LastError        string    `json:"last_error,omitempty"`
}

type priceKey struct {
	station int64
	fuel    domain.FuelType
}

// Runner runs ingestion cycles.
type Runner struct {
	repo        *stations.Repository
	source      Source
	metrics     *observability.Metrics
	concurrency int
	lookback    time.Duration
	now         func() time.Time
	logger      *log.Logger

	// serializes cycles
	cycleMu sync.Mutex
	// last known price per station and fuel, seeded from the store
	last   map[priceKey]float32
	seeded map[int64]bool

	statusMu sync.RWMutex
	status   Status
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Repository  *stations.Repository
	Source      Source
	Metrics     *observability.Metrics // Default: observability.DefaultMetrics
	Concurrency int                    // Default: 8 stations fetched in parallel
	Lookback    time.Duration          // Default: 30 days searched for a previous price
	Now         func() time.Time       // Default: time.Now
	Logger      *log.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		repo:        opts.Repository,
		source:      opts.Source,
		metrics:     metrics,
		concurrency: concurrency,
		lookback:    lookback,
		now:         now,
		logger:      logger,
		last:        make(map[priceKey]float32),
		seeded:      make(map[int64]bool),
	}
}

// Status returns a snapshot of the runner state.
func (r *Runner) Status() Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// RunOnce fetches the current prices of every station and stores one
// observation per fuel type, all stamped with the cycle time. A failing
// source skips its station; only listing or storing errors fail the cycle.
func (r *Runner) RunOnce(ctx context.Context) (*Cycle, error) {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	started := r.now()
	cycle, err := r.run(ctx, started.UnixMilli())

	elapsed := time.Since(started).Seconds()
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case len(cycle.Failed) > 0:
		status = "partial"
	}
	r.metrics.RecordCycle(status, elapsed)

	r.statusMu.Lock()
	r.status.Cycles++
	r.status.LastRun = started
	if err != nil {
		r.status.LastError = err.Error()
	} else {
		r.status.LastSuccess = started
		r.status.LastObservations = cycle.Observations
		r.status.LastError = ""
		r.metrics.LastSuccessfulIngestion.Set(float64(started.Unix()))
	}
	r.statusMu.Unlock()

	if err != nil {
		return nil, err
	}
	r.logger.Printf("cycle %d: %d stations, %d observations, %d failed",
		cycle.TimestampMs, cycle.Stations, cycle.Observations, len(cycle.Failed))
	return cycle, nil
}

func (r *Runner) run(ctx context.Context, ts int64) (*Cycle, error) {
	sts, err := r.repo.All(ctx)
	if err != nil {
		return &Cycle{TimestampMs: ts}, fmt.Errorf("list stations: %w", err)
	}
	r.metrics.StationsTracked.Set(float64(len(sts)))

	fetched := make([]Prices, len(sts))
	var (
		mu     sync.Mutex
		failed []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, st := range sts {
		g.Go(func() error {
			p, err := r.source.Fetch(gctx, st)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.logger.Printf("%s: %s: %v", r.source.Name(), st.Name, err)
				r.metrics.SourceErrors.WithLabelValues(r.source.Name()).Inc()
				mu.Lock()
				failed = append(failed, st.Name)
				mu.Unlock()
				return nil
			}
			fetched[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &Cycle{TimestampMs: ts}, err
	}
	sort.Strings(failed)

	var obs []*domain.PriceObservation
	for i, st := range sts {
		for _, fuel := range domain.FuelTypes() {
			price, ok := fetched[i][fuel]
			if !ok {
				continue
			}
			o := &domain.PriceObservation{StationID: st.ID, Fuel: fuel, TimestampMs: ts, Price: price}
			if err := storage.ValidateObservation(o); err != nil {
				r.logger.Printf("%s: dropping %s: %v", st.Name, fuel, err)
				continue
			}
			obs = append(obs, o)
			r.metrics.ObservationsFetched.WithLabelValues(fuel.String()).Inc()
		}
	}

	if err := r.trackChanges(ctx, obs); err != nil {
		// metrics only
		r.logger.Printf("load previous prices: %v", err)
	}

	if err := r.repo.SaveObservations(ctx, obs); err != nil {
		return &Cycle{TimestampMs: ts}, err
	}
	r.metrics.ObservationsStored.Add(float64(len(obs)))

	return &Cycle{
		TimestampMs:  ts,
		Stations:     len(sts),
		Observations: len(obs),
		Failed:       failed,
	}, nil
}

// trackChanges counts price moves against the last known price. A station
// seen for the first time is seeded from its stored history.
func (r *Runner) trackChanges(ctx context.Context, obs []*domain.PriceObservation) error {
	var firstErr error
	for _, o := range obs {
		if !r.seeded[o.StationID] {
			if err := r.seed(ctx, o.StationID, o.TimestampMs); err != nil && firstErr == nil {
				firstErr = err
			}
		}

		key := priceKey{station: o.StationID, fuel: o.Fuel}
		if prev, ok := r.last[key]; ok {
			r.metrics.RecordPriceChange(prev, o.Price)
		}
		r.last[key] = o.Price
	}
	return firstErr
}

func (r *Runner) seed(ctx context.Context, id int64, ts int64) error {
	r.seeded[id] = true

	st, err := r.repo.ByID(ctx, id, ts-r.lookback.Milliseconds(), ts)
	if err != nil {
		return err
	}
	for _, fuel := range st.FuelTypes() {
		if v, ok := lookup.PriceBefore(st.Prices(fuel), ts); ok {
			r.last[priceKey{station: id, fuel: fuel}] = v
		}
	}
	return nil
}

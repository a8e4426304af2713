// Package stations materializes stations with their price series from the
// station and price stores and writes ingested observations back.
package stations

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"strings"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

// DefaultBatchSize is the number of observations written per upsert.
const DefaultBatchSize = 1000

// Repository loads and saves stations.
type Repository struct {
	stations  storage.StationStore
	prices    storage.PriceStore
	history   storage.PriceStore
	batchSize int
	logger    *log.Logger
}

// Options contains configuration for creating a Repository.
type Options struct {
	Stations  storage.StationStore
	Prices    storage.PriceStore
	History   storage.PriceStore // optional mirror of every saved batch (e.g. ClickHouse)
	BatchSize int                // Default: 1000
	Logger    *log.Logger
}

// New creates a repository.
func New(opts Options) *Repository {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Repository{
		stations:  opts.Stations,
		prices:    opts.Prices,
		history:   opts.History,
		batchSize: batchSize,
		logger:    logger,
	}
}

// All returns every station without prices, ordered by id.
func (r *Repository) All(ctx context.Context) ([]*domain.Station, error) {
	return r.stations.GetAll(ctx)
}

// ByID returns the station with its prices in [begin, end].
func (r *Repository) ByID(ctx context.Context, id int64, begin, end int64) (*domain.Station, error) {
	st, err := r.stations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("station %d: %w", id, err)
	}
	return st, r.load(ctx, st, begin, end)
}

// ByName returns the station with exactly this name (ignoring case) and its
// prices in [begin, end].
func (r *Repository) ByName(ctx context.Context, name string, begin, end int64) (*domain.Station, error) {
	st, err := r.stations.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("station %q: %w", name, err)
	}
	return st, r.load(ctx, st, begin, end)
}

// MostSimilar returns the station whose name has the smallest edit distance
// to name, ignoring case, with its prices in [begin, end]. Ties go to the
// lower id. Returns storage.ErrNotFound when there are no stations.
func (r *Repository) MostSimilar(ctx context.Context, name string, begin, end int64) (*domain.Station, error) {
	all, err := r.stations.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var best *domain.Station
	bestDist := -1
	needle := strings.ToLower(name)
	for _, st := range all {
		d := Distance(needle, strings.ToLower(st.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = st, d
		}
	}
	if best == nil {
		return nil, fmt.Errorf("station like %q: %w", name, storage.ErrNotFound)
	}
	return best, r.load(ctx, best, begin, end)
}

// Lookup resolves ref as a numeric id first, then an exact name, then the
// most similar name.
func (r *Repository) Lookup(ctx context.Context, ref string, begin, end int64) (*domain.Station, error) {
	var id int64
	if _, err := fmt.Sscan(ref, &id); err == nil && fmt.Sprint(id) == ref {
		return r.ByID(ctx, id, begin, end)
	}
	st, err := r.ByName(ctx, ref, begin, end)
	if errors.Is(err, storage.ErrNotFound) {
		return r.MostSimilar(ctx, ref, begin, end)
	}
	return st, err
}

// ByFuel returns every station holding prices of fuel in [begin, end], each
// carrying only that fuel's series.
func (r *Repository) ByFuel(ctx context.Context, fuel domain.FuelType, begin, end int64) ([]*domain.Station, error) {
	all, err := r.stations.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	obs, err := r.prices.GetByFuel(ctx, fuel, begin, end)
	if err != nil {
		return nil, fmt.Errorf("prices of %s: %w", fuel, err)
	}

	byID := make(map[int64]*domain.Station, len(all))
	for _, st := range all {
		byID[st.ID] = st
	}

	var out []*domain.Station
	seen := make(map[int64]bool)
	for _, o := range obs {
		st, ok := byID[o.StationID]
		if !ok {
			continue
		}
		if !seen[st.ID] {
			seen[st.ID] = true
			out = append(out, st)
		}
		st.AddPrice(o.Fuel, o.TimestampMs, o.Price)
	}
	return out, nil
}

func (r *Repository) load(ctx context.Context, st *domain.Station, begin, end int64) error {
	obs, err := r.prices.GetByStation(ctx, st.ID, begin, end)
	if err != nil {
		return fmt.Errorf("prices of station %d: %w", st.ID, err)
	}
	for _, o := range obs {
		st.AddPrice(o.Fuel, o.TimestampMs, o.Price)
	}
	return nil
}

// Add stores a new station and assigns its id.
// Returns storage.ErrDuplicateKey if the name is taken.
func (r *Repository) Add(ctx context.Context, st *domain.Station) error {
	if err := r.stations.Insert(ctx, st); err != nil {
		return fmt.Errorf("add station %q: %w", st.Name, err)
	}
	r.logger.Printf("added station %d %q", st.ID, st.Name)
	return nil
}

// Update stores changed url, address and color of a station.
func (r *Repository) Update(ctx context.Context, st *domain.Station) error {
	if err := r.stations.Update(ctx, st); err != nil {
		return fmt.Errorf("update station %d: %w", st.ID, err)
	}
	return nil
}

// Remove deletes a station together with all of its prices.
func (r *Repository) Remove(ctx context.Context, id int64) error {
	if _, err := r.stations.GetByID(ctx, id); err != nil {
		return fmt.Errorf("remove station %d: %w", id, err)
	}
	if err := r.prices.DeleteByStation(ctx, id); err != nil {
		return fmt.Errorf("remove prices of station %d: %w", id, err)
	}
	if r.history != nil {
		if err := r.history.DeleteByStation(ctx, id); err != nil {
			r.logger.Printf("history: remove prices of station %d: %v", id, err)
		}
	}
	if err := r.stations.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove station %d: %w", id, err)
	}
	r.logger.Printf("removed station %d", id)
	return nil
}

// Save writes every price of the given stations.
func (r *Repository) Save(ctx context.Context, stations []*domain.Station) (int, error) {
	var obs []*domain.PriceObservation
	for _, st := range stations {
		obs = append(obs, st.Observations()...)
	}
	return len(obs), r.SaveObservations(ctx, obs)
}

// SaveObservations upserts obs in batches. History mirror failures are
// logged and do not fail the call.
func (r *Repository) SaveObservations(ctx context.Context, obs []*domain.PriceObservation) error {
	for start := 0; start < len(obs); start += r.batchSize {
		end := min(start+r.batchSize, len(obs))
		batch := obs[start:end]

		if err := r.prices.UpsertBulk(ctx, batch); err != nil {
			return fmt.Errorf("save prices [%d:%d]: %w", start, end, err)
		}
		if r.history != nil {
			if err := r.history.UpsertBulk(ctx, batch); err != nil {
				r.logger.Printf("history: save prices [%d:%d]: %v", start, end, err)
			}
		}
	}
	return nil
}

// Info returns the database summary.
func (r *Repository) Info(ctx context.Context) (*domain.PriceStats, error) {
	all, err := r.stations.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := r.prices.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats.Stations = len(all)
	stats.Revision = revision(all, stats)
	return stats, nil
}

// revision fingerprints the station rows and the price store summary.
// Any add, edit or removal of a station changes it, as does any write
// that moves the observation count or the update range.
func revision(all []*domain.Station, stats *domain.PriceStats) uint64 {
	h := fnv.New64a()
	for _, st := range all {
		fmt.Fprintf(h, "%d\x00%s\x00%s\x00%s\x00%s\x00", st.ID, st.Name, st.URL, st.Address, st.Color.Hex())
	}
	fmt.Fprintf(h, "%d|%d|%d", stats.Prices, stats.FirstUpdate, stats.LastUpdate)
	return h.Sum64()
}

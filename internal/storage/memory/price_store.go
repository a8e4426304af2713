package memory

import (
	"context"
	"sort"
	"sync"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

type priceKey struct {
	stationID   int64
	fuel        domain.FuelType
	timestampMs int64
}

// PriceStore is an in-memory implementation of storage.PriceStore.
type PriceStore struct {
	mu   sync.RWMutex
	data map[priceKey]float32
}

// NewPriceStore creates a new in-memory price store.
func NewPriceStore() *PriceStore {
	return &PriceStore{
		data: make(map[priceKey]float32),
	}
}

// UpsertBulk stores observations, overwriting existing prices.
// The batch is validated before anything is written.
func (s *PriceStore) UpsertBulk(_ context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if err := storage.ValidateObservation(o); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		s.data[priceKey{o.StationID, o.Fuel, o.TimestampMs}] = o.Price
	}
	return nil
}

// GetByStation retrieves observations of one station within [start, end].
func (s *PriceStore) GetByStation(_ context.Context, stationID int64, start, end int64) ([]*domain.PriceObservation, error) {
	result := s.collect(func(k priceKey) bool {
		return k.stationID == stationID && k.timestampMs >= start && k.timestampMs <= end
	})

	sort.Slice(result, func(i, j int) bool {
		if result[i].Fuel != result[j].Fuel {
			return result[i].Fuel < result[j].Fuel
		}
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByFuel retrieves observations of one fuel type within [start, end].
func (s *PriceStore) GetByFuel(_ context.Context, fuel domain.FuelType, start, end int64) ([]*domain.PriceObservation, error) {
	result := s.collect(func(k priceKey) bool {
		return k.fuel == fuel && k.timestampMs >= start && k.timestampMs <= end
	})

	sort.Slice(result, func(i, j int) bool {
		if result[i].StationID != result[j].StationID {
			return result[i].StationID < result[j].StationID
		}
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// DeleteByStation removes all observations of a station.
func (s *PriceStore) DeleteByStation(_ context.Context, stationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.data {
		if k.stationID == stationID {
			delete(s.data, k)
		}
	}
	return nil
}

// Stats returns the observation count and time range.
func (s *PriceStore) Stats(_ context.Context) (*domain.PriceStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.PriceStats{Prices: int64(len(s.data))}
	first := true
	for k := range s.data {
		if first || k.timestampMs < stats.FirstUpdate {
			stats.FirstUpdate = k.timestampMs
		}
		if first || k.timestampMs > stats.LastUpdate {
			stats.LastUpdate = k.timestampMs
		}
		first = false
	}
	return stats, nil
}

func (s *PriceStore) collect(match func(priceKey) bool) []*domain.PriceObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceObservation
	for k, price := range s.data {
		if match(k) {
			result = append(result, &domain.PriceObservation{
				StationID:   k.stationID,
				Fuel:        k.fuel,
				TimestampMs: k.timestampMs,
				Price:       price,
			})
		}
	}
	return result
}

var _ storage.PriceStore = (*PriceStore)(nil)

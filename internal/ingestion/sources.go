package ingestion

import (
	"context"
	"strings"
	"sync"

	"fuel-price-lab/internal/domain"
)

// Prices holds the current price of each fuel type a station sells.
type Prices map[domain.FuelType]float32

// Source provides current station prices from an external system.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Fetch returns the current prices of st. A station selling nothing
	// returns empty Prices and no error.
	Fetch(ctx context.Context, st *domain.Station) (Prices, error)
}

// StaticSource serves fixed prices keyed by station name. It is used for
// local runs and tests.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]Prices
}

// NewStaticSource creates an empty static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{prices: make(map[string]Prices)}
}

// Name implements Source.
func (s *StaticSource) Name() string { return "static" }

// Set replaces the prices of the named station.
func (s *StaticSource) Set(station string, p Prices) {
	cp := make(Prices, len(p))
	for f, v := range p {
		cp[f] = v
	}
	s.mu.Lock()
	s.prices[strings.ToLower(station)] = cp
	s.mu.Unlock()
}

// Fetch implements Source.
func (s *StaticSource) Fetch(_ context.Context, st *domain.Station) (Prices, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.prices[strings.ToLower(st.Name)]
	out := make(Prices, len(p))
	for f, v := range p {
		out[f] = v
	}
	return out, nil
}

var _ Source = (*StaticSource)(nil)

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

// StationStore is an in-memory implementation of storage.StationStore.
type StationStore struct {
	mu     sync.RWMutex
	data   map[int64]*domain.Station // keyed by id
	nextID int64
}

// NewStationStore creates a new in-memory station store.
func NewStationStore() *StationStore {
	return &StationStore{
		data:   make(map[int64]*domain.Station),
		nextID: 1,
	}
}

// Insert adds a new station and assigns its ID.
func (s *StationStore) Insert(_ context.Context, st *domain.Station) error {
	if st == nil || strings.TrimSpace(st.Name) == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data {
		if strings.EqualFold(existing.Name, st.Name) {
			return storage.ErrDuplicateKey
		}
	}

	st.ID = s.nextID
	s.nextID++
	s.data[st.ID] = st.Copy()
	return nil
}

// Update overwrites url, address and color of an existing station.
func (s *StationStore) Update(_ context.Context, st *domain.Station) error {
	if st == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[st.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.URL = st.URL
	existing.Address = st.Address
	existing.Color = st.Color
	return nil
}

// GetByID retrieves a station by its ID.
func (s *StationStore) GetByID(_ context.Context, id int64) (*domain.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return st.Copy(), nil
}

// GetByName retrieves a station by exact name, ignoring case.
func (s *StationStore) GetByName(_ context.Context, name string) (*domain.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, st := range s.data {
		if strings.EqualFold(st.Name, name) {
			return st.Copy(), nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetAll retrieves all stations ordered by id ASC.
func (s *StationStore) GetAll(_ context.Context) ([]*domain.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Station, 0, len(s.data))
	for _, st := range s.data {
		result = append(result, st.Copy())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Delete removes a station.
func (s *StationStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.StationStore = (*StationStore)(nil)

package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

// StationStore implements storage.StationStore using PostgreSQL.
type StationStore struct {
	pool *Pool
}

// NewStationStore creates a new StationStore.
func NewStationStore(pool *Pool) *StationStore {
	return &StationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StationStore = (*StationStore)(nil)

// Insert adds a new station and assigns its ID.
func (s *StationStore) Insert(ctx context.Context, st *domain.Station) error {
	if st == nil || strings.TrimSpace(st.Name) == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO stations (name, url, address, color)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query, st.Name, st.URL, st.Address, st.Color.RGB()).Scan(&st.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert station: %w", err)
	}
	return nil
}

// Update overwrites url, address and color of an existing station.
func (s *StationStore) Update(ctx context.Context, st *domain.Station) error {
	if st == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE stations SET url = $2, address = $3, color = $4
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, st.ID, st.URL, st.Address, st.Color.RGB())
	if err != nil {
		return fmt.Errorf("update station: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a station by its ID.
func (s *StationStore) GetByID(ctx context.Context, id int64) (*domain.Station, error) {
	query := `
		SELECT id, name, url, address, color
		FROM stations
		WHERE id = $1
	`

	st, err := scanStation(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get station by id: %w", err)
	}
	return st, nil
}

// GetByName retrieves a station by exact name, ignoring case.
func (s *StationStore) GetByName(ctx context.Context, name string) (*domain.Station, error) {
	query := `
		SELECT id, name, url, address, color
		FROM stations
		WHERE lower(name) = lower($1)
	`

	st, err := scanStation(s.pool.QueryRow(ctx, query, name))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get station by name: %w", err)
	}
	return st, nil
}

// GetAll retrieves all stations ordered by id ASC.
func (s *StationStore) GetAll(ctx context.Context) ([]*domain.Station, error) {
	query := `
		SELECT id, name, url, address, color
		FROM stations
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get stations: %w", err)
	}
	defer rows.Close()

	var stations []*domain.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan station row: %w", err)
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate station rows: %w", err)
	}
	return stations, nil
}

// Delete removes a station. Its prices are removed by ON DELETE CASCADE.
func (s *StationStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM stations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete station: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanStation scans a single row into a Station.
func scanStation(row pgx.Row) (*domain.Station, error) {
	var (
		st    domain.Station
		color int32
	)
	if err := row.Scan(&st.ID, &st.Name, &st.URL, &st.Address, &color); err != nil {
		return nil, err
	}
	st.Color = domain.ColorFromRGB(color)
	return &st, nil
}

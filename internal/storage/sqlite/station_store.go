package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

// StationStore implements storage.StationStore using SQLite.
type StationStore struct {
	db *DB
}

// NewStationStore creates a new StationStore.
func NewStationStore(db *DB) *StationStore {
	return &StationStore{db: db}
}

var _ storage.StationStore = (*StationStore)(nil)

// Insert adds a new station and assigns its ID.
func (s *StationStore) Insert(ctx context.Context, st *domain.Station) error {
	if st == nil || strings.TrimSpace(st.Name) == "" {
		return storage.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stations (name, url, address, color) VALUES (?, ?, ?, ?)`,
		st.Name, st.URL, st.Address, st.Color.RGB())
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert station: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("station id: %w", err)
	}
	st.ID = id
	return nil
}

// Update overwrites url, address and color of an existing station.
func (s *StationStore) Update(ctx context.Context, st *domain.Station) error {
	if st == nil {
		return storage.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE stations SET url = ?, address = ?, color = ? WHERE id = ?`,
		st.URL, st.Address, st.Color.RGB(), st.ID)
	if err != nil {
		return fmt.Errorf("update station: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a station by its ID.
func (s *StationStore) GetByID(ctx context.Context, id int64) (*domain.Station, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, address, color FROM stations WHERE id = ?`, id)
	return scanStation(row, "get station by id")
}

// GetByName retrieves a station by exact name, ignoring case.
func (s *StationStore) GetByName(ctx context.Context, name string) (*domain.Station, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, url, address, color FROM stations WHERE name = ? COLLATE NOCASE`, name)
	return scanStation(row, "get station by name")
}

// GetAll retrieves all stations ordered by id ASC.
func (s *StationStore) GetAll(ctx context.Context) ([]*domain.Station, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, url, address, color FROM stations ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("get stations: %w", err)
	}
	defer rows.Close()

	var stations []*domain.Station
	for rows.Next() {
		st, err := scanStation(rows, "scan station row")
		if err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate station rows: %w", err)
	}
	return stations, nil
}

// Delete removes a station and, through the foreign key, its prices.
func (s *StationStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete station: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(row scanner, op string) (*domain.Station, error) {
	var (
		st    domain.Station
		color int32
	)
	if err := row.Scan(&st.ID, &st.Name, &st.URL, &st.Address, &color); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	st.Color = domain.ColorFromRGB(color)
	return &st, nil
}

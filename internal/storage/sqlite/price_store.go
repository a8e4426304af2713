package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

// PriceStore implements storage.PriceStore using SQLite.
type PriceStore struct {
	db *DB
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(db *DB) *PriceStore {
	return &PriceStore{db: db}
}

var _ storage.PriceStore = (*PriceStore)(nil)

// UpsertBulk stores observations in one transaction.
func (s *PriceStore) UpsertBulk(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if err := storage.ValidateObservation(o); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices (station_id, fuel_id, timestamp_ms, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (station_id, fuel_id, timestamp_ms) DO UPDATE SET price = excluded.price
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx, o.StationID, int(o.Fuel), o.TimestampMs, o.Price); err != nil {
			if isForeignKeyError(err) {
				return fmt.Errorf("upsert prices: %w", storage.ErrInvalidInput)
			}
			return fmt.Errorf("upsert prices: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetByStation retrieves observations of one station within [start, end].
func (s *PriceStore) GetByStation(ctx context.Context, stationID int64, start, end int64) ([]*domain.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT station_id, fuel_id, timestamp_ms, price
		FROM prices
		WHERE station_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY fuel_id ASC, timestamp_ms ASC
	`, stationID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get prices by station: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByFuel retrieves observations of one fuel type within [start, end].
func (s *PriceStore) GetByFuel(ctx context.Context, fuel domain.FuelType, start, end int64) ([]*domain.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT station_id, fuel_id, timestamp_ms, price
		FROM prices
		WHERE fuel_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY station_id ASC, timestamp_ms ASC
	`, int(fuel), start, end)
	if err != nil {
		return nil, fmt.Errorf("get prices by fuel: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// DeleteByStation removes all observations of a station.
func (s *PriceStore) DeleteByStation(ctx context.Context, stationID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM prices WHERE station_id = ?`, stationID); err != nil {
		return fmt.Errorf("delete prices: %w", err)
	}
	return nil
}

// Stats returns the observation count and time range.
func (s *PriceStore) Stats(ctx context.Context) (*domain.PriceStats, error) {
	var stats domain.PriceStats
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*), COALESCE(min(timestamp_ms), 0), COALESCE(max(timestamp_ms), 0)
		FROM prices
	`).Scan(&stats.Prices, &stats.FirstUpdate, &stats.LastUpdate)
	if err != nil {
		return nil, fmt.Errorf("price stats: %w", err)
	}
	return &stats, nil
}

func scanObservations(rows *sql.Rows) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation
	for rows.Next() {
		var (
			o    domain.PriceObservation
			fuel int
			p    float64
		)
		if err := rows.Scan(&o.StationID, &fuel, &o.TimestampMs, &p); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		o.Fuel = domain.FuelType(fuel)
		o.Price = float32(p)
		result = append(result, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}
	return result, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

// PriceStore implements storage.PriceStore using PostgreSQL.
type PriceStore struct {
	pool *Pool
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(pool *Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceStore = (*PriceStore)(nil)

// UpsertBulk stores observations in one transaction.
// Returns ErrInvalidInput if a station does not exist.
func (s *PriceStore) UpsertBulk(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if err := storage.ValidateObservation(o); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO prices (station_id, fuel_id, timestamp_ms, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (station_id, fuel_id, timestamp_ms) DO UPDATE SET price = EXCLUDED.price
	`

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, o := range obs {
			batch.Queue(query, o.StationID, int16(o.Fuel), o.TimestampMs, o.Price)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("upsert prices: %w", storage.ErrInvalidInput)
		}
		return fmt.Errorf("upsert prices: %w", err)
	}
	return nil
}

// GetByStation retrieves observations of one station within [start, end].
func (s *PriceStore) GetByStation(ctx context.Context, stationID int64, start, end int64) ([]*domain.PriceObservation, error) {
	query := `
		SELECT station_id, fuel_id, timestamp_ms, price
		FROM prices
		WHERE station_id = $1 AND timestamp_ms >= $2 AND timestamp_ms <= $3
		ORDER BY fuel_id ASC, timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, stationID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get prices by station: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByFuel retrieves observations of one fuel type within [start, end].
func (s *PriceStore) GetByFuel(ctx context.Context, fuel domain.FuelType, start, end int64) ([]*domain.PriceObservation, error) {
	query := `
		SELECT station_id, fuel_id, timestamp_ms, price
		FROM prices
		WHERE fuel_id = $1 AND timestamp_ms >= $2 AND timestamp_ms <= $3
		ORDER BY station_id ASC, timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, int16(fuel), start, end)
	if err != nil {
		return nil, fmt.Errorf("get prices by fuel: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// DeleteByStation removes all observations of a station.
func (s *PriceStore) DeleteByStation(ctx context.Context, stationID int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM prices WHERE station_id = $1`, stationID); err != nil {
		return fmt.Errorf("delete prices: %w", err)
	}
	return nil
}

// Stats returns the observation count and time range.
func (s *PriceStore) Stats(ctx context.Context) (*domain.PriceStats, error) {
	query := `
		SELECT count(*), COALESCE(min(timestamp_ms), 0), COALESCE(max(timestamp_ms), 0)
		FROM prices
	`

	var stats domain.PriceStats
	if err := s.pool.QueryRow(ctx, query).Scan(&stats.Prices, &stats.FirstUpdate, &stats.LastUpdate); err != nil {
		return nil, fmt.Errorf("price stats: %w", err)
	}
	return &stats, nil
}

// scanObservations scans multiple rows into observations.
func scanObservations(rows pgx.Rows) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation

	for rows.Next() {
		var (
			o    domain.PriceObservation
			fuel int16
		)
		if err := rows.Scan(&o.StationID, &fuel, &o.TimestampMs, &o.Price); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		o.Fuel = domain.FuelType(fuel)
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}

	return result, nil
}

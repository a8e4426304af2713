package clickhouse

import (
	"context"
	"fmt"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

// PriceStore implements storage.PriceStore using ClickHouse.
//
// The prices table is a ReplacingMergeTree keyed by
// (station_id, fuel_id, timestamp_ms): an upsert is a plain insert and reads
// use FINAL so that only the latest version of a key is returned.
type PriceStore struct {
	conn *Conn
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(conn *Conn) *PriceStore {
	return &PriceStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceStore = (*PriceStore)(nil)

// UpsertBulk appends observations in one batch.
func (s *PriceStore) UpsertBulk(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if err := storage.ValidateObservation(o); err != nil {
			return err
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO prices (station_id, fuel_id, timestamp_ms, price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		if err := batch.Append(uint64(o.StationID), uint8(o.Fuel), uint64(o.TimestampMs), o.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByStation retrieves observations of one station within [start, end].
func (s *PriceStore) GetByStation(ctx context.Context, stationID int64, start, end int64) ([]*domain.PriceObservation, error) {
	query := `
		SELECT station_id, fuel_id, timestamp_ms, price
		FROM prices FINAL
		WHERE station_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY fuel_id ASC, timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(stationID), clampTs(start), clampTs(end))
	if err != nil {
		return nil, fmt.Errorf("query by station: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByFuel retrieves observations of one fuel type within [start, end].
func (s *PriceStore) GetByFuel(ctx context.Context, fuel domain.FuelType, start, end int64) ([]*domain.PriceObservation, error) {
	query := `
		SELECT station_id, fuel_id, timestamp_ms, price
		FROM prices FINAL
		WHERE fuel_id = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY station_id ASC, timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uint8(fuel), clampTs(start), clampTs(end))
	if err != nil {
		return nil, fmt.Errorf("query by fuel: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// DeleteByStation removes all observations of a station with a lightweight
// delete.
func (s *PriceStore) DeleteByStation(ctx context.Context, stationID int64) error {
	if err := s.conn.Exec(ctx, `DELETE FROM prices WHERE station_id = ?`, uint64(stationID)); err != nil {
		return fmt.Errorf("delete prices: %w", err)
	}
	return nil
}

// Stats returns the observation count and time range.
func (s *PriceStore) Stats(ctx context.Context) (*domain.PriceStats, error) {
	query := `
		SELECT count(), min(timestamp_ms), max(timestamp_ms)
		FROM prices FINAL
	`

	var count, first, last uint64
	if err := s.conn.QueryRow(ctx, query).Scan(&count, &first, &last); err != nil {
		return nil, fmt.Errorf("price stats: %w", err)
	}
	return &domain.PriceStats{
		Prices:      int64(count),
		FirstUpdate: int64(first),
		LastUpdate:  int64(last),
	}, nil
}

// timestamps are unsigned in ClickHouse
func clampTs(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// scanObservations scans multiple rows.
func scanObservations(rows chRows) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation

	for rows.Next() {
		var (
			stationID, timestampMs uint64
			fuel                   uint8
			price                  float32
		)
		if err := rows.Scan(&stationID, &fuel, &timestampMs, &price); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		result = append(result, &domain.PriceObservation{
			StationID:   int64(stationID),
			Fuel:        domain.FuelType(fuel),
			TimestampMs: int64(timestampMs),
			Price:       price,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}

	return result, nil
}

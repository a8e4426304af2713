package storage

import (
	"context"

	"fuel-price-lab/internal/domain"
)

// StationStore provides access to stations storage.
// Returned stations carry identity only, never prices.
type StationStore interface {
	// Insert adds a new station and assigns its ID.
	// Returns ErrDuplicateKey if the name exists (case-insensitive).
	Insert(ctx context.Context, s *domain.Station) error

	// Update overwrites url, address and color of an existing station.
	// Returns ErrNotFound if the id does not exist.
	Update(ctx context.Context, s *domain.Station) error

	// GetByID retrieves a station by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.Station, error)

	// GetByName retrieves a station by exact name, ignoring case.
	// Returns ErrNotFound if not exists.
	GetByName(ctx context.Context, name string) (*domain.Station, error)

	// GetAll retrieves all stations ordered by id ASC.
	GetAll(ctx context.Context) ([]*domain.Station, error)

	// Delete removes a station. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id int64) error
}

// PriceStore provides access to prices storage.
type PriceStore interface {
	// UpsertBulk stores observations; an existing
	// (station_id, fuel_id, timestamp_ms) row gets the new price.
	UpsertBulk(ctx context.Context, obs []*domain.PriceObservation) error

	// GetByStation retrieves observations of one station within [start, end]
	// (inclusive), ordered by fuel ASC, timestamp ASC.
	GetByStation(ctx context.Context, stationID int64, start, end int64) ([]*domain.PriceObservation, error)

	// GetByFuel retrieves observations of one fuel type within [start, end]
	// (inclusive), ordered by station ASC, timestamp ASC.
	GetByFuel(ctx context.Context, fuel domain.FuelType, start, end int64) ([]*domain.PriceObservation, error)

	// DeleteByStation removes all observations of a station.
	DeleteByStation(ctx context.Context, stationID int64) error

	// Stats returns the number of stored observations and the first and last
	// timestamp. Stations is left zero; it is filled by the caller.
	Stats(ctx context.Context) (*domain.PriceStats, error)
}

// ValidateObservation checks the fields every store requires.
func ValidateObservation(o *domain.PriceObservation) error {
	if o == nil || o.StationID <= 0 || !o.Fuel.IsValid() || o.Price != o.Price {
		return ErrInvalidInput
	}
	return nil
}

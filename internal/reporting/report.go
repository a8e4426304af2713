package reporting

import (
	"time"

	"fuel-price-lab/internal/domain"
)

// Summary is the database summary report.
type Summary struct {
	GeneratedAt time.Time
	Location    *time.Location
	Stats       domain.PriceStats
	Stations    []StationRow // ordered by station id
}

// StationRow describes one station in the summary.
type StationRow struct {
	ID          int64
	Name        string
	Domain      string
	Fuels       []domain.FuelType
	Prices      int
	FirstUpdate int64 // Unix ms, 0 without prices
	LastUpdate  int64 // Unix ms, 0 without prices
	Latest      map[domain.FuelType]float32
}

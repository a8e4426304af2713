// Package stores opens the station and price stores selected by
// configuration.
package stores

import (
	"context"
	"fmt"
	"log"

	"fuel-price-lab/internal/config"
	"fuel-price-lab/internal/storage"
	"fuel-price-lab/internal/storage/clickhouse"
	"fuel-price-lab/internal/storage/memory"
	"fuel-price-lab/internal/storage/migrations"
	"fuel-price-lab/internal/storage/postgres"
	"fuel-price-lab/internal/storage/sqlite"
)

// Stores holds the opened stores.
type Stores struct {
	Stations storage.StationStore
	Prices   storage.PriceStore
	History  storage.PriceStore // nil unless a ClickHouse DSN is configured
}

// Open creates the stores for cfg and runs migrations. The returned cleanup
// closes every connection.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Stores, func(), error) {
	if logger == nil {
		logger = log.Default()
	}

	s := &Stores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		s.Stations = memory.NewStationStore()
		s.Prices = memory.NewPriceStore()

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)

		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		for _, name := range applied {
			logger.Printf("applied postgres migration %s", name)
		}
		s.Stations = postgres.NewStationStore(pool)
		s.Prices = postgres.NewPriceStore(pool)

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		closers = append(closers, func() { db.Close() })
		s.Stations = sqlite.NewStationStore(db)
		s.Prices = sqlite.NewPriceStore(db)

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, applied, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		for _, name := range applied {
			logger.Printf("applied clickhouse migration %s", name)
		}
		s.History = clickhouse.NewPriceStore(conn)
		logger.Printf("mirroring prices to clickhouse database %s", conn.Database())
	}

	return s, cleanup, nil
}

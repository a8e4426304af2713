package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage/migrations"
	"fuel-price-lab/internal/storage/postgres"
)

// setupTestDB starts a disposable PostgreSQL, applies the embedded schema and
// returns a pool plus its cleanup.
func setupTestDB(t *testing.T) (*postgres.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("fuelprices"),
		tcpostgres.WithUsername("fuel"),
		tcpostgres.WithPassword("fuel"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	require.NoError(t, err, "apply migrations")
	require.NotEmpty(t, applied)

	// A second run must be a no-op.
	again, err := migrations.RunPostgresMigrations(ctx, pool)
	require.NoError(t, err)
	require.Empty(t, again)

	return pool, func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
}

func insertStation(t *testing.T, store *postgres.StationStore, name string) *domain.Station {
	t.Helper()
	st := domain.NewStation(0, name, "https://www.example.com/"+name, "", domain.Color{R: 0x10})
	require.NoError(t, store.Insert(context.Background(), st))
	return st
}

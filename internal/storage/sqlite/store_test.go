package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "prices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStationStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewStationStore(db)
	ctx := context.Background()

	st := domain.NewStation(0, "Shell Berlin", "https://www.shell.de/berlin", "Alexanderplatz 1", domain.Color{R: 0xaa, G: 0xbb, B: 0xcc})
	require.NoError(t, store.Insert(ctx, st))
	assert.Equal(t, int64(1), st.ID)

	got, err := store.GetByName(ctx, "shell berlin")
	require.NoError(t, err)
	assert.Equal(t, st.Color, got.Color)
	assert.Equal(t, st.Address, got.Address)

	err = store.Insert(ctx, domain.NewStation(0, "SHELL BERLIN", "", "", domain.Color{}))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	st.URL = "https://www.shell.de/mitte"
	require.NoError(t, store.Update(ctx, st))
	got, err = store.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://www.shell.de/mitte", got.URL)
}

func TestPriceStore_UpsertQueryAndCascade(t *testing.T) {
	db := openTestDB(t)
	stations := NewStationStore(db)
	prices := NewPriceStore(db)
	ctx := context.Background()

	a := domain.NewStation(0, "a", "", "", domain.Color{})
	b := domain.NewStation(0, "b", "", "", domain.Color{})
	require.NoError(t, stations.Insert(ctx, a))
	require.NoError(t, stations.Insert(ctx, b))

	require.NoError(t, prices.UpsertBulk(ctx, []*domain.PriceObservation{
		{StationID: a.ID, Fuel: domain.FuelDiesel, TimestampMs: 2000, Price: 1.62},
		{StationID: a.ID, Fuel: domain.FuelDiesel, TimestampMs: 1000, Price: 1.60},
		{StationID: b.ID, Fuel: domain.FuelDiesel, TimestampMs: 1500, Price: 1.58},
	}))
	require.NoError(t, prices.UpsertBulk(ctx, []*domain.PriceObservation{
		{StationID: a.ID, Fuel: domain.FuelDiesel, TimestampMs: 2000, Price: 1.70},
	}))

	rows, err := prices.GetByStation(ctx, a.ID, 0, 5000)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1000), rows[0].TimestampMs)
	assert.InDelta(t, 1.70, rows[1].Price, 1e-6)

	diesel, err := prices.GetByFuel(ctx, domain.FuelDiesel, 0, 5000)
	require.NoError(t, err)
	assert.Len(t, diesel, 3)

	err = prices.UpsertBulk(ctx, []*domain.PriceObservation{
		{StationID: 42, Fuel: domain.FuelDiesel, TimestampMs: 1, Price: 1},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	require.NoError(t, stations.Delete(ctx, a.ID))
	stats, err := prices.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Prices)
	assert.Equal(t, int64(1500), stats.FirstUpdate)
}

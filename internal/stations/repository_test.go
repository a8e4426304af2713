package stations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/storage"
	"fuel-price-lab/internal/storage/memory"
)

func newRepo(t *testing.T, batchSize int) (*Repository, *memory.PriceStore) {
	t.Helper()
	prices := memory.NewPriceStore()
	return New(Options{
		Stations:  memory.NewStationStore(),
		Prices:    prices,
		BatchSize: batchSize,
	}), prices
}

func seed(t *testing.T, r *Repository, names ...string) []*domain.Station {
	t.Helper()
	var out []*domain.Station
	for _, n := range names {
		st := domain.NewStation(0, n, "https://www.example.com/"+n, "", domain.Color{})
		require.NoError(t, r.Add(context.Background(), st))
		out = append(out, st)
	}
	return out
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance("shell", "shell"))
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 5, Distance("", "aral!"))
	assert.Equal(t, 2, Distance("straße", "strasse"))
}

func TestRepository_SaveAndLoad(t *testing.T) {
	r, _ := newRepo(t, 2)
	ctx := context.Background()
	sts := seed(t, r, "Shell Berlin")

	st := sts[0]
	st.AddPrice(domain.FuelDiesel, 3000, 1.62)
	st.AddPrice(domain.FuelDiesel, 1000, 1.60)
	st.AddPrice(domain.FuelDiesel, 2000, 1.61)
	st.AddPrice(domain.FuelSuperE5, 1000, 1.80)
	st.AddPrice(domain.FuelSuperE5, 5000, 1.85)

	n, err := r.Save(ctx, []*domain.Station{st})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	loaded, err := r.ByID(ctx, st.ID, 0, 4000)
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 2000, 3000}, loaded.Prices(domain.FuelDiesel).Keys())
	assert.Equal(t, 1, loaded.Prices(domain.FuelSuperE5).Len())

	info, err := r.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Stations)
	assert.Equal(t, int64(5), info.Prices)
	assert.Equal(t, int64(5000), info.LastUpdate)
}

func TestRepository_LookupByNameAndSimilarity(t *testing.T) {
	r, _ := newRepo(t, 0)
	ctx := context.Background()
	seed(t, r, "Shell Berlin", "Aral Hamburg", "Esso Koeln")

	st, err := r.ByName(ctx, "aral hamburg", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Aral Hamburg", st.Name)

	st, err = r.MostSimilar(ctx, "shel berln", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Shell Berlin", st.Name)

	st, err = r.Lookup(ctx, "2", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Aral Hamburg", st.Name)

	st, err = r.Lookup(ctx, "Eso Köln", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "Esso Koeln", st.Name)

	_, err = r.ByID(ctx, 42, 0, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepository_MostSimilarWithoutStations(t *testing.T) {
	r, _ := newRepo(t, 0)

	_, err := r.MostSimilar(context.Background(), "x", 0, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRepository_AddDuplicate(t *testing.T) {
	r, _ := newRepo(t, 0)
	seed(t, r, "Shell Berlin")

	err := r.Add(context.Background(), domain.NewStation(0, "shell berlin", "", "", domain.Color{}))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRepository_ByFuel(t *testing.T) {
	r, _ := newRepo(t, 0)
	ctx := context.Background()
	sts := seed(t, r, "a", "b", "c")

	require.NoError(t, r.SaveObservations(ctx, []*domain.PriceObservation{
		{StationID: sts[0].ID, Fuel: domain.FuelDiesel, TimestampMs: 1, Price: 1.1},
		{StationID: sts[0].ID, Fuel: domain.FuelAutogas, TimestampMs: 1, Price: 0.9},
		{StationID: sts[2].ID, Fuel: domain.FuelDiesel, TimestampMs: 2, Price: 1.2},
	}))

	got, err := r.ByFuel(ctx, domain.FuelDiesel, 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
	assert.Equal(t, []domain.FuelType{domain.FuelDiesel}, got[0].FuelTypes())
}

func TestRepository_RemoveCascades(t *testing.T) {
	r, prices := newRepo(t, 0)
	ctx := context.Background()
	sts := seed(t, r, "a", "b")

	require.NoError(t, r.SaveObservations(ctx, []*domain.PriceObservation{
		{StationID: sts[0].ID, Fuel: domain.FuelDiesel, TimestampMs: 1, Price: 1.1},
		{StationID: sts[1].ID, Fuel: domain.FuelDiesel, TimestampMs: 1, Price: 1.2},
	}))

	require.NoError(t, r.Remove(ctx, sts[0].ID))
	assert.ErrorIs(t, r.Remove(ctx, sts[0].ID), storage.ErrNotFound)

	stats, err := prices.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Prices)
}

func TestRepository_HistoryMirror(t *testing.T) {
	history := memory.NewPriceStore()
	r := New(Options{
		Stations: memory.NewStationStore(),
		Prices:   memory.NewPriceStore(),
		History:  history,
	})
	ctx := context.Background()
	sts := seed(t, r, "a")

	require.NoError(t, r.SaveObservations(ctx, []*domain.PriceObservation{
		{StationID: sts[0].ID, Fuel: domain.FuelDiesel, TimestampMs: 1, Price: 1.1},
	}))

	rows, err := history.GetByStation(ctx, sts[0].ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRepository_InfoRevision(t *testing.T) {
	r, _ := newRepo(t, 0)
	ctx := context.Background()
	sts := seed(t, r, "Aral", "Shell")

	revision := func() uint64 {
		t.Helper()
		info, err := r.Info(ctx)
		require.NoError(t, err)
		return info.Revision
	}

	rev := revision()
	assert.Equal(t, rev, revision())

	sts[0].AddPrice(domain.FuelDiesel, 1000, 1.60)
	_, err := r.Save(ctx, sts[:1])
	require.NoError(t, err)
	afterSave := revision()
	assert.NotEqual(t, rev, afterSave)

	sts[1].Color = domain.Color{R: 0xff, G: 0xd5}
	require.NoError(t, r.Update(ctx, sts[1]))
	afterUpdate := revision()
	assert.NotEqual(t, afterSave, afterUpdate)

	require.NoError(t, r.Remove(ctx, sts[1].ID))
	afterRemove := revision()
	assert.NotEqual(t, afterUpdate, afterRemove)

	seed(t, r, "Esso")
	assert.NotEqual(t, afterRemove, revision())
}

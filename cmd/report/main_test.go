package main

import (
	"bytes"
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-price-lab/internal/calendar"
	"fuel-price-lab/internal/config"
	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/stations"
	"fuel-price-lab/internal/storage/memory"
)

func testEnv(t *testing.T) (*env, *bytes.Buffer) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Storage.Driver = config.DriverMemory
	cfg.Ingestion.Source = config.SourceStatic
	cfg.Resample.StepsPerHour = 4

	var out bytes.Buffer
	return &env{
		cfg: cfg,
		cal: calendar.New(time.UTC),
		repo: stations.New(stations.Options{
			Stations: memory.NewStationStore(),
			Prices:   memory.NewPriceStore(),
		}),
		out:    &out,
		logger: log.New(io.Discard, "", 0),
	}, &out
}

func seed(t *testing.T, e *env) *domain.Station {
	t.Helper()
	ctx := context.Background()

	st := domain.NewStation(0, "Shell Mitte", "https://example.test/mitte", "Hauptstr. 1", domain.Color{R: 0x1e, G: 0x90, B: 0xff})
	require.NoError(t, e.repo.Add(ctx, st))

	base := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC).UnixMilli()
	require.NoError(t, e.repo.SaveObservations(ctx, []*domain.PriceObservation{
		{StationID: st.ID, Fuel: domain.FuelDiesel, TimestampMs: base, Price: 1.659},
		{StationID: st.ID, Fuel: domain.FuelDiesel, TimestampMs: base + 3_600_000, Price: 1.699},
		{StationID: st.ID, Fuel: domain.FuelSuperE10, TimestampMs: base, Price: 1.759},
	}))
	return st
}

func TestPrint(t *testing.T) {
	e, out := testEnv(t)
	seed(t, e)

	require.NoError(t, runPrint(context.Background(), e, []string{"-name", "shell mitte"}))

	assert.Contains(t, out.String(), "Shell Mitte (#")
	assert.Contains(t, out.String(), "04.03.2024 08:00")
	assert.Contains(t, out.String(), "1.659€")
	assert.Contains(t, out.String(), "-")
}

func TestPrint_RequiresStation(t *testing.T) {
	e, _ := testEnv(t)

	assert.Error(t, runPrint(context.Background(), e, nil))
	assert.Error(t, runPrint(context.Background(), e, []string{"-id", "1", "-name", "x"}))
}

func TestChart_CSV(t *testing.T) {
	e, out := testEnv(t)
	st := seed(t, e)

	err := runChart(context.Background(), e, []string{"-station", st.Name, "-format", "csv"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "trace,color,key,label,price")
	assert.Contains(t, out.String(), "Diesel")
}

func TestChart_ValidatesFlags(t *testing.T) {
	e, _ := testEnv(t)
	ctx := context.Background()

	assert.Error(t, runChart(ctx, e, nil))
	assert.Error(t, runChart(ctx, e, []string{"-station", "a", "-fuel", "diesel"}))
	assert.Error(t, runChart(ctx, e, []string{"-fuel", "kerosene"}))
	assert.Error(t, runChart(ctx, e, []string{"-fuel", "diesel", "-transform", "sideways"}))
	assert.Error(t, runChart(ctx, e, []string{"-fuel", "diesel", "-pattern", "("}))
}

func TestAddAndRemove(t *testing.T) {
	e, out := testEnv(t)
	ctx := context.Background()

	require.NoError(t, runAdd(ctx, e, []string{"-name", "Aral Nord", "-color", "#ff0000"}))
	assert.Contains(t, out.String(), "Added Aral Nord")

	all, err := e.repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, runRemove(ctx, e, []string{"-name", "aral nord"}))
	all, err = e.repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEdit(t *testing.T) {
	e, out := testEnv(t)
	ctx := context.Background()
	st := seed(t, e)

	require.NoError(t, runEdit(ctx, e, []string{"-name", "SHELL MITTE", "-address", "Ring 5", "-color", "#00ff00"}))
	assert.Contains(t, out.String(), "Updated Shell Mitte")

	got, err := e.repo.ByID(ctx, st.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Ring 5", got.Address)
	assert.Equal(t, "https://example.test/mitte", got.URL)
	assert.Equal(t, domain.Color{G: 0xff}, got.Color)

	assert.Error(t, runEdit(ctx, e, nil))
	assert.Error(t, runEdit(ctx, e, []string{"-id", "999", "-url", "x"}))
}

func TestAdd_RequiresName(t *testing.T) {
	e, _ := testEnv(t)

	assert.Error(t, runAdd(context.Background(), e, []string{"-url", "https://example.test"}))
	assert.Error(t, runAdd(context.Background(), e, []string{"-name", "x", "-color", "nope"}))
}

func TestRemove_DoesNotGuess(t *testing.T) {
	e, _ := testEnv(t)
	seed(t, e)

	assert.Error(t, runRemove(context.Background(), e, []string{"-name", "Shell Mite"}))
}

func TestUpdate_StaticSource(t *testing.T) {
	e, out := testEnv(t)
	seed(t, e)

	require.NoError(t, runUpdate(context.Background(), e, nil))
	assert.Contains(t, out.String(), "Fetched 1 stations")
}

func TestWindow(t *testing.T) {
	e, _ := testEnv(t)

	b, en, err := e.window("2024-03-04", "1709600000000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).UnixMilli(), b)
	assert.Equal(t, int64(1709600000000), en)

	_, _, err = e.window("2024-03-05", "2024-03-04")
	assert.Error(t, err)
}

package aggregate

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/resample"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday

func hourly(st *domain.Station, fuel domain.FuelType, days int, base float32) {
	for h := 0; h < days*24; h++ {
		st.AddPrice(fuel, day0.Add(time.Duration(h)*time.Hour).UnixMilli(), base+float32(h%24)/100)
	}
}

func newAggregator() *Aggregator {
	return New(Options{Resampler: resample.New(time.UTC)})
}

func TestForStation_RawSortedByName(t *testing.T) {
	st := domain.NewStation(1, "Main Street", "https://www.example.com/a", "", domain.Color{})
	hourly(st, domain.FuelSuperE5, 2, 1.8)
	hourly(st, domain.FuelDiesel, 2, 1.6)
	hourly(st, domain.FuelAutogas, 2, 0.9)

	res, err := newAggregator().ForStation(context.Background(), st, Request{Transform: domain.TransformRaw})
	require.NoError(t, err)

	require.Len(t, res.Traces, 3)
	assert.Equal(t, "Autogas", res.Traces[0].Name)
	assert.Equal(t, "Diesel", res.Traces[1].Name)
	assert.Equal(t, "Super E5", res.Traces[2].Name)
	assert.Equal(t, domain.FuelDiesel.Color(), res.Traces[1].Color)

	assert.Equal(t, "Main Street", res.Title)
	assert.Equal(t, AxisTime, res.Axis)
	assert.Empty(t, res.Caption)
	assert.Equal(t, day0.UnixMilli(), res.MinTime)
	assert.Equal(t, day0.Add(47*time.Hour).UnixMilli(), res.MaxTime)
}

func TestForStation_PatternIsFullMatch(t *testing.T) {
	st := domain.NewStation(1, "A", "", "", domain.Color{})
	hourly(st, domain.FuelSuperE5, 1, 1.8)
	hourly(st, domain.FuelSuperE10, 1, 1.7)
	hourly(st, domain.FuelDiesel, 1, 1.6)

	res, err := newAggregator().ForStation(context.Background(), st, Request{
		Pattern: regexp.MustCompile(`Super E\d`),
	})
	require.NoError(t, err)
	require.Len(t, res.Traces, 1)
	assert.Equal(t, "Super E5", res.Traces[0].Name)

	_, err = newAggregator().ForStation(context.Background(), st, Request{
		Pattern: regexp.MustCompile(`Petrol`),
	})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestForStation_TrendSkipsSinglePoint(t *testing.T) {
	st := domain.NewStation(1, "A", "", "", domain.Color{})
	st.AddPrice(domain.FuelDiesel, 0, 1.0)
	st.AddPrice(domain.FuelDiesel, 1000, 2.0)
	st.AddPrice(domain.FuelDiesel, 2000, 3.0)
	st.AddPrice(domain.FuelAutogas, 500, 0.9)

	res, err := newAggregator().ForStation(context.Background(), st, Request{Transform: domain.TransformTrend})
	require.NoError(t, err)

	require.Len(t, res.Traces, 1)
	line := res.Traces[0].Series
	require.Equal(t, 2, line.Len())
	assert.InDelta(t, 1.0, line.Get(0), 1e-5)
	assert.InDelta(t, 3.0, line.Get(2000), 1e-5)
	assert.Equal(t, []string{"Autogas"}, res.Skipped)
	assert.Equal(t, "Trend: 01.01.1970 - 01.01.1970", res.Caption)
}

func TestForFuel_DayAverage(t *testing.T) {
	a := domain.NewStation(1, "b-station", "", "", domain.Color{R: 1})
	b := domain.NewStation(2, "A-station", "", "", domain.Color{G: 1})
	c := domain.NewStation(3, "no-diesel", "", "", domain.Color{})
	hourly(a, domain.FuelDiesel, 3, 1.6)
	hourly(b, domain.FuelDiesel, 3, 1.7)
	hourly(c, domain.FuelAutogas, 3, 0.9)

	res, err := newAggregator().ForFuel(context.Background(), domain.FuelDiesel, []*domain.Station{a, b, c}, Request{
		Transform: domain.TransformAverage,
		Mode:      domain.AverageDay,
	})
	require.NoError(t, err)

	require.Len(t, res.Traces, 2)
	assert.Equal(t, "A-station", res.Traces[0].Name)
	assert.Equal(t, domain.Color{G: 1}, res.Traces[0].Color)
	assert.Equal(t, AxisDay, res.Axis)

	// last day ends at 23:00, so only two complete days
	s := res.Traces[0].Series
	assert.Equal(t, 97, s.Len())
	assert.InDelta(t, 1.7+0.05, s.Get(int64(5*time.Hour/time.Millisecond)), 1e-5)

	assert.Equal(t, day0.UnixMilli(), res.MinTime)
	assert.Equal(t, day0.AddDate(0, 0, 2).UnixMilli()-1, res.MaxTime)
	assert.Equal(t, "Day average: 01.01.2024 - 02.01.2024", res.Caption)
}

func TestForFuel_WeekAverageNeedsFullWeek(t *testing.T) {
	st := domain.NewStation(1, "A", "", "", domain.Color{})
	hourly(st, domain.FuelDiesel, 3, 1.6)

	_, err := newAggregator().ForFuel(context.Background(), domain.FuelDiesel, []*domain.Station{st}, Request{
		Transform: domain.TransformAverage,
		Mode:      domain.AverageWeek,
	})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestForStation_WeekAverage(t *testing.T) {
	st := domain.NewStation(1, "A", "", "", domain.Color{})
	hourly(st, domain.FuelDiesel, 15, 1.6)

	res, err := newAggregator().ForStation(context.Background(), st, Request{
		Transform: domain.TransformAverage,
		Mode:      domain.AverageWeek,
	})
	require.NoError(t, err)
	require.Len(t, res.Traces, 1)

	s := res.Traces[0].Series
	assert.Equal(t, AxisWeek, res.Axis)
	assert.Equal(t, s.At(0), s.At(s.Len()-1))
	assert.Equal(t, "Week average: 01.01.2024 - 14.01.2024", res.Caption)
}

func TestForStation_WeekdayCaption(t *testing.T) {
	st := domain.NewStation(1, "A", "", "", domain.Color{})
	hourly(st, domain.FuelDiesel, 15, 1.6)

	res, err := newAggregator().ForStation(context.Background(), st, Request{
		Transform: domain.TransformAverage,
		Mode:      domain.AverageTuesday,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tuesday average: 02.01.2024 - 09.01.2024", res.Caption)
}

func TestForStation_NilAndEmpty(t *testing.T) {
	_, err := newAggregator().ForStation(context.Background(), nil, Request{})
	assert.ErrorIs(t, err, ErrNoData)

	st := domain.NewStation(1, "A", "", "", domain.Color{})
	_, err = newAggregator().ForStation(context.Background(), st, Request{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestForStation_InvalidTransform(t *testing.T) {
	st := domain.NewStation(1, "A", "", "", domain.Color{})
	hourly(st, domain.FuelDiesel, 1, 1.6)

	_, err := newAggregator().ForStation(context.Background(), st, Request{Transform: "spline"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}

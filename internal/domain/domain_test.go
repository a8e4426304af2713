package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-price-lab/internal/timeseries"
)

func TestParseFuelType(t *testing.T) {
	cases := map[string]FuelType{
		"0":                       FuelDiesel,
		"diesel":                  FuelDiesel,
		"SUPER_E5":                FuelSuperE5,
		"Super E10":               FuelSuperE10,
		"lkw-diesel":              FuelTruckDiesel,
		"Shell Super FuelSave 95": FuelSuper95,
		"  LPG ":                  FuelAutogas,
		"Shell Diesel FuelSave":   FuelDiesel,
	}
	for in, want := range cases {
		got, err := ParseFuelType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFuelType("kerosene")
	assert.Error(t, err)
	_, err = ParseFuelType("42")
	assert.Error(t, err)
}

func TestFuelType_Metadata(t *testing.T) {
	assert.Len(t, FuelTypes(), 7)
	assert.Equal(t, "Super E5", FuelSuperE5.String())
	assert.Equal(t, 3, FuelSuperE5.ID())
	assert.Equal(t, "FuelType(99)", FuelType(99).Name())
	assert.Equal(t, Color{}, FuelType(-1).Color())

	f, ok := FuelByID(6)
	assert.True(t, ok)
	assert.Equal(t, FuelAutogas, f)
	_, ok = FuelByID(7)
	assert.False(t, ok)
}

func TestParseColor(t *testing.T) {
	for _, in := range []string{"#1e90ff", "1e90ff", "0x1E90FF", "2003199"} {
		c, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, Color{R: 0x1e, G: 0x90, B: 0xff}, c, in)
	}

	_, err := ParseColor("#1000000")
	assert.Error(t, err)
	_, err = ParseColor("blue")
	assert.Error(t, err)

	c := ColorFromRGB(0x123456)
	assert.Equal(t, int32(0x123456), c.RGB())
	assert.Equal(t, "#123456", c.String())
}

func TestColor_Text(t *testing.T) {
	var c Color
	require.NoError(t, c.UnmarshalText([]byte("#ff8c00")))
	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "#ff8c00", string(b))
	assert.Error(t, c.UnmarshalText([]byte("nope")))
}

func TestParseAverageMode(t *testing.T) {
	cases := map[string]AverageMode{
		"day":      AverageDay,
		"Tag":      AverageDay,
		"woche":    AverageWeek,
		"mo":       AverageMonday,
		"Dienstag": AverageTuesday,
		"sun":      AverageSunday,
		"sa":       AverageSaturday,
	}
	for in, want := range cases {
		got, err := ParseAverageMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAverageMode("")
	assert.Error(t, err)
	_, err = ParseAverageMode("fortnight")
	assert.Error(t, err)
}

func TestAverageMode_Weekday(t *testing.T) {
	for _, d := range []time.Weekday{time.Monday, time.Wednesday, time.Sunday} {
		m := AverageModeForWeekday(d)
		wd, ok := m.Weekday()
		assert.True(t, ok)
		assert.Equal(t, d, wd)
		assert.False(t, m.IsWeek())
	}

	_, ok := AverageDay.Weekday()
	assert.False(t, ok)
	assert.True(t, AverageWeek.IsWeek())
	assert.Len(t, AverageModes(), 9)
}

func TestParseTransform(t *testing.T) {
	cases := map[string]Transform{
		"":        TransformRaw,
		"RAW":     TransformRaw,
		"trend":   TransformTrend,
		"course":  TransformTrend,
		"average": TransformAverage,
	}
	for in, want := range cases {
		got, err := ParseTransform(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTransform("sideways")
	assert.Error(t, err)
}

func TestStation_Prices(t *testing.T) {
	st := NewStation(7, "Aral", "https://www.aral.de/station/7", "", Color{})

	assert.Empty(t, st.FuelTypes())
	_, _, ok := st.TimeRange()
	assert.False(t, ok)
	assert.True(t, timeseries.IsMissing(st.Price(FuelDiesel, 1)))

	st.AddPrice(FuelSuperE10, 200, 1.8)
	st.AddPrice(FuelDiesel, 100, 1.6)
	st.AddPrice(FuelDiesel, 300, 1.7)

	assert.Equal(t, []FuelType{FuelDiesel, FuelSuperE10}, st.FuelTypes())
	assert.Equal(t, 3, st.PriceCount())
	assert.True(t, st.HasPrice(FuelDiesel, 300))
	assert.False(t, st.HasPrice(FuelDiesel, 200))
	assert.Equal(t, float32(1.8), st.Price(FuelSuperE10, 200))

	lo, hi, ok := st.TimeRange()
	assert.True(t, ok)
	assert.Equal(t, int64(100), lo)
	assert.Equal(t, int64(300), hi)

	obs := st.Observations()
	require.Len(t, obs, 3)
	assert.Equal(t, &PriceObservation{StationID: 7, Fuel: FuelDiesel, TimestampMs: 100, Price: 1.6}, obs[0])
	assert.Equal(t, FuelSuperE10, obs[2].Fuel)

	assert.Equal(t, "aral.de", st.Domain())
	cp := st.Copy()
	assert.Equal(t, st.Name, cp.Name)
	assert.Zero(t, cp.PriceCount())
}

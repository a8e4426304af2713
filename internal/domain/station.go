package domain

import (
	"net/url"
	"sort"
	"strings"

	"fuel-price-lab/internal/timeseries"
)

// Station is a tracked location with one price series per fuel type.
// Corresponds to the stations table; prices live in the prices table.
//
// A Station is mutated by one writer at a time (bulk load or a single
// ingestion update) and is read-only afterwards.
type Station struct {
	ID      int64  // PRIMARY KEY, assigned by the store
	Name    string // unique, case-insensitive
	URL     string // vendor page
	Address string
	Color   Color // display color in per-fuel charts

	prices map[FuelType]*timeseries.Series
}

// NewStation creates a station without prices.
func NewStation(id int64, name, url, address string, color Color) *Station {
	return &Station{
		ID:      id,
		Name:    name,
		URL:     url,
		Address: address,
		Color:   color,
	}
}

// AddPrice records a price observation for fuel at ts.
func (s *Station) AddPrice(fuel FuelType, ts int64, price float32) {
	if s.prices == nil {
		s.prices = make(map[FuelType]*timeseries.Series)
	}
	series, ok := s.prices[fuel]
	if !ok {
		series = timeseries.New()
		s.prices[fuel] = series
	}
	series.Put(ts, price)
}

// Prices returns the series for fuel, or nil if none was recorded.
func (s *Station) Prices(fuel FuelType) *timeseries.Series {
	return s.prices[fuel]
}

// HasPrice reports whether a price for fuel exists at exactly ts.
func (s *Station) HasPrice(fuel FuelType, ts int64) bool {
	series := s.prices[fuel]
	return series != nil && series.Contains(ts)
}

// Price returns the price for fuel at exactly ts, or timeseries.Missing.
func (s *Station) Price(fuel FuelType, ts int64) float32 {
	series := s.prices[fuel]
	if series == nil {
		return timeseries.Missing
	}
	return series.Get(ts)
}

// FuelTypes returns the fuel types with at least one price, in id order.
func (s *Station) FuelTypes() []FuelType {
	out := make([]FuelType, 0, len(s.prices))
	for f, series := range s.prices {
		if !series.IsEmpty() {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PriceCount returns the number of observations across all fuel types.
func (s *Station) PriceCount() int {
	n := 0
	for _, series := range s.prices {
		n += series.Len()
	}
	return n
}

// Observations flattens all series into observation rows ordered by fuel,
// then timestamp.
func (s *Station) Observations() []*PriceObservation {
	out := make([]*PriceObservation, 0, s.PriceCount())
	for _, fuel := range s.FuelTypes() {
		series := s.prices[fuel]
		for i := 0; i < series.Len(); i++ {
			out = append(out, &PriceObservation{
				StationID:   s.ID,
				Fuel:        fuel,
				TimestampMs: series.KeyAt(i),
				Price:       series.At(i),
			})
		}
	}
	return out
}

// TimeRange returns the smallest and largest timestamp over all series.
// ok is false when the station has no prices.
func (s *Station) TimeRange() (minTs, maxTs int64, ok bool) {
	for _, series := range s.prices {
		if series.IsEmpty() {
			continue
		}
		first, last := series.FirstKey(), series.LastKey()
		if !ok || first < minTs {
			minTs = first
		}
		if !ok || last > maxTs {
			maxTs = last
		}
		ok = true
	}
	return minTs, maxTs, ok
}

// Domain returns the host of the station URL without a leading "www.".
func (s *Station) Domain() string {
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// Copy returns the station identity without prices.
func (s *Station) Copy() *Station {
	return NewStation(s.ID, s.Name, s.URL, s.Address, s.Color)
}

package lookup

import (
	"errors"
	"testing"

	"fuel-price-lab/internal/timeseries"
)

func series(pairs ...float32) *timeseries.Series {
	s := timeseries.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		s.Put(int64(pairs[i]), pairs[i+1])
	}
	return s
}

func TestPriceAt_EmptySeries(t *testing.T) {
	for _, s := range []*timeseries.Series{nil, timeseries.New()} {
		if _, err := PriceAt(s, 1000); !errors.Is(err, ErrNoPriceData) {
			t.Errorf("expected ErrNoPriceData, got %v", err)
		}
	}
}

func TestPriceAt(t *testing.T) {
	s := series(1000, 1.59, 2000, 1.64, 3000, 1.61)

	tests := []struct {
		name   string
		target int64
		want   float32
	}{
		{"before first observation", 500, 1.59},
		{"exact first", 1000, 1.59},
		{"between observations holds previous", 2500, 1.64},
		{"exact middle", 2000, 1.64},
		{"after last", 9000, 1.61},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceAt(s, tt.target)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PriceAt(%d) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestPriceBefore(t *testing.T) {
	s := series(1000, 1.0, 2000, 2.0)

	tests := []struct {
		target int64
		want   float32
		ok     bool
	}{
		{target: 999},
		{target: 1000},
		{target: 1001, want: 1.0, ok: true},
		{target: 2000, want: 1.0, ok: true},
		{target: 2001, want: 2.0, ok: true},
	}
	for _, tt := range tests {
		v, ok := PriceBefore(s, tt.target)
		if ok != tt.ok || v != tt.want {
			t.Errorf("PriceBefore(%d) = %v, %v; want %v, %v", tt.target, v, ok, tt.want, tt.ok)
		}
	}

	if _, ok := PriceBefore(nil, 5); ok {
		t.Error("nil series must report nothing")
	}
}

package reporting

import (
	"context"
	"fmt"
	"time"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/stations"
)

// Generator builds summaries from a station repository.
type Generator struct {
	repo *stations.Repository
	loc  *time.Location
	now  func() time.Time
}

// NewGenerator creates a generator. Times are rendered in loc (nil = UTC).
func NewGenerator(repo *stations.Repository, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	return &Generator{repo: repo, loc: loc, now: time.Now}
}

// Generate builds the summary over prices in [begin, end].
func (g *Generator) Generate(ctx context.Context, begin, end int64) (*Summary, error) {
	stats, err := g.repo.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("database info: %w", err)
	}

	all, err := g.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}

	s := &Summary{
		GeneratedAt: g.now().In(g.loc),
		Location:    g.loc,
		Stats:       *stats,
		Stations:    make([]StationRow, 0, len(all)),
	}

	for _, st := range all {
		loaded, err := g.repo.ByID(ctx, st.ID, begin, end)
		if err != nil {
			return nil, fmt.Errorf("load station %d: %w", st.ID, err)
		}

		row := StationRow{
			ID:     loaded.ID,
			Name:   loaded.Name,
			Domain: loaded.Domain(),
			Fuels:  loaded.FuelTypes(),
			Prices: loaded.PriceCount(),
			Latest: make(map[domain.FuelType]float32),
		}
		if first, last, ok := loaded.TimeRange(); ok {
			row.FirstUpdate, row.LastUpdate = first, last
		}
		for _, f := range row.Fuels {
			p := loaded.Prices(f)
			row.Latest[f] = p.At(p.Len() - 1)
		}
		s.Stations = append(s.Stations, row)
	}

	return s, nil
}

package ingestion

import (
	"context"
	"log"
	"strings"
	"sync"

	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/feed"
)

// FeedSource keeps the latest live quote per station and fuel type. Quotes
// are matched to stations by URL or by name, ignoring case.
type FeedSource struct {
	mu     sync.RWMutex
	latest map[string]Prices
	logger *log.Logger

	onQuote func(feed.Quote)
}

// NewFeedSource creates a source fed by Consume. onQuote, if set, is called
// for every quote received.
func NewFeedSource(logger *log.Logger, onQuote func(feed.Quote)) *FeedSource {
	if logger == nil {
		logger = log.Default()
	}
	return &FeedSource{
		latest:  make(map[string]Prices),
		logger:  logger,
		onQuote: onQuote,
	}
}

// Name implements Source.
func (s *FeedSource) Name() string { return "feed" }

// Consume reads quotes until the channel closes or ctx is done.
func (s *FeedSource) Consume(ctx context.Context, quotes <-chan feed.Quote) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q, ok := <-quotes:
			if !ok {
				s.logger.Println("feed quotes channel closed")
				return nil
			}
			s.Observe(q)
		}
	}
}

// Observe records one quote.
func (s *FeedSource) Observe(q feed.Quote) {
	if !q.Fuel.IsValid() || q.Price != q.Price {
		return
	}
	key := strings.ToLower(q.Station)

	s.mu.Lock()
	p, ok := s.latest[key]
	if !ok {
		p = make(Prices)
		s.latest[key] = p
	}
	p[q.Fuel] = q.Price
	s.mu.Unlock()

	if s.onQuote != nil {
		s.onQuote(q)
	}
}

// Fetch implements Source. Prices seen under the URL win over those seen
// under the name.
func (s *FeedSource) Fetch(_ context.Context, st *domain.Station) (Prices, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Prices)
	for _, key := range []string{strings.ToLower(st.Name), strings.ToLower(st.URL)} {
		if key == "" {
			continue
		}
		for f, v := range s.latest[key] {
			out[f] = v
		}
	}
	return out, nil
}

var _ Source = (*FeedSource)(nil)

// Stations returns the subscription keys for sts: the URL where set,
// otherwise the name.
func Stations(sts []*domain.Station) []string {
	out := make([]string, 0, len(sts))
	for _, st := range sts {
		if st.URL != "" {
			out = append(out, st.URL)
		} else {
			out = append(out, st.Name)
		}
	}
	return out
}

package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"fuel-price-lab/internal/domain"
)

// Default HTTP source settings.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultBackoffMult = 2.0
)

// ErrNoURL is returned for stations without a price URL.
var ErrNoURL = errors.New("station has no url")

// HTTPSource fetches a station's price document from its URL. The document
// is JSON:
//
//	{"prices": {"Diesel": 1.659, "Super E5": 1.799}}
//
// Fuel keys accept any form domain.ParseFuelType does; unknown keys are
// skipped.
type HTTPSource struct {
	client      *http.Client
	userAgent   string
	maxRetries  int
	retryDelay  time.Duration
	backoffMult float64
	logger      *log.Logger
}

// HTTPOption configures HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) HTTPOption {
	return func(s *HTTPSource) {
		s.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		s.retryDelay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPSource) {
		s.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) HTTPOption {
	return func(s *HTTPSource) {
		s.logger = l
	}
}

// NewHTTPSource creates an HTTP price source.
func NewHTTPSource(opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		client:      &http.Client{Timeout: DefaultTimeout},
		userAgent:   "fuel-price-lab",
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		backoffMult: DefaultBackoffMult,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *HTTPSource) Name() string { return "http" }

type priceDocument struct {
	Prices map[string]float32 `json:"prices"`
}

// statusError is a non-2xx response. 4xx responses are not retried.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// Fetch implements Source with retries and exponential backoff.
func (s *HTTPSource) Fetch(ctx context.Context, st *domain.Station) (Prices, error) {
	if st.URL == "" {
		return nil, fmt.Errorf("%s: %w", st.Name, ErrNoURL)
	}

	delay := s.retryDelay
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * s.backoffMult)
		}

		doc, err := s.get(ctx, st.URL)
		if err == nil {
			return s.decode(st, doc), nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.code < 500 && se.code != http.StatusTooManyRequests {
			break
		}
	}

	return nil, fmt.Errorf("fetch %s: %w", st.URL, lastErr)
}

func (s *HTTPSource) get(ctx context.Context, url string) (*priceDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &statusError{code: resp.StatusCode}
	}

	var doc priceDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &doc, nil
}

func (s *HTTPSource) decode(st *domain.Station, doc *priceDocument) Prices {
	out := make(Prices, len(doc.Prices))
	for key, v := range doc.Prices {
		fuel, err := domain.ParseFuelType(key)
		if err != nil {
			s.logger.Printf("%s: skipping %q: %v", st.Name, key, err)
			continue
		}
		out[fuel] = v
	}
	return out
}

var _ Source = (*HTTPSource)(nil)

// Package api serves stations, chart data and price tables over HTTP.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fuel-price-lab/internal/aggregate"
	"fuel-price-lab/internal/cache"
	"fuel-price-lab/internal/calendar"
	"fuel-price-lab/internal/ingestion"
	"fuel-price-lab/internal/observability"
	"fuel-price-lab/internal/stations"
)

// Server holds the handlers' dependencies.
type Server struct {
	repo       *stations.Repository
	aggregator *aggregate.Aggregator
	cache      cache.ChartCache
	metrics    *observability.Metrics
	status     func() ingestion.Status
	cal        calendar.Calendar
	started    time.Time
	logger     *log.Logger
}

// Options contains configuration for creating a Server.
type Options struct {
	Repository *stations.Repository
	Aggregator *aggregate.Aggregator
	Cache      cache.ChartCache        // Default: cache.Noop
	Metrics    *observability.Metrics  // Default: observability.DefaultMetrics
	Status     func() ingestion.Status // optional ingestion state for /status
	Location   *time.Location          // Default: UTC
	Logger     *log.Logger
}

// New creates a server.
func New(opts Options) *Server {
	c := opts.Cache
	if c == nil {
		c = cache.Noop{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	agg := opts.Aggregator
	if agg == nil {
		agg = aggregate.New(aggregate.Options{Logger: logger})
	}
	return &Server{
		repo:       opts.Repository,
		aggregator: agg,
		cache:      c,
		metrics:    metrics,
		status:     opts.Status,
		cal:        calendar.New(opts.Location),
		started:    time.Now(),
		logger:     logger,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/stations", s.handleStations)
	mux.HandleFunc("GET /api/stations/{ref}/table", s.handleTable)
	mux.HandleFunc("GET /api/chart", s.handleChart)

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status    string            `json:"status"`
	Uptime    string            `json:"uptime"`
	Started   time.Time         `json:"started"`
	Ingestion *ingestion.Status `json:"ingestion,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:  "running",
		Uptime:  time.Since(s.started).Truncate(time.Second).String(),
		Started: s.started,
	}
	if s.status != nil {
		st := s.status()
		resp.Ingestion = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

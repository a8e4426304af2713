package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"time"

	"fuel-price-lab/internal/aggregate"
	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/idhash"
	"fuel-price-lab/internal/reporting"
	"fuel-price-lab/internal/storage"
)

// StationJSON is a station without prices.
type StationJSON struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	Address string `json:"address,omitempty"`
	Color   string `json:"color"`
}

// InfoResponse is the database summary.
type InfoResponse struct {
	Stations    int    `json:"stations"`
	Prices      int64  `json:"prices"`
	FirstUpdate string `json:"first_update,omitempty"`
	LastUpdate  string `json:"last_update,omitempty"`
}

// Point is one (key, price) pair of a trace.
type Point struct {
	T int64   `json:"t"`
	V float32 `json:"v"`
}

// TraceJSON is one chart trace.
type TraceJSON struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Points []Point `json:"points"`
}

// ChartResponse is the JSON response for /api/chart.
type ChartResponse struct {
	RequestID string      `json:"request_id"`
	Title     string      `json:"title"`
	Caption   string      `json:"caption,omitempty"`
	Axis      string      `json:"axis"`
	MinTime   int64       `json:"min_time"`
	MaxTime   int64       `json:"max_time"`
	Traces    []TraceJSON `json:"traces"`
	Skipped   []string    `json:"skipped,omitempty"`
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	all, err := s.repo.All(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]StationJSON, 0, len(all))
	for _, st := range all {
		out = append(out, StationJSON{
			ID:      st.ID,
			Name:    st.Name,
			URL:     st.URL,
			Address: st.Address,
			Color:   st.Color.Hex(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.Info(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	resp := InfoResponse{Stations: stats.Stations, Prices: stats.Prices}
	if stats.Prices > 0 {
		resp.FirstUpdate = s.cal.Time(stats.FirstUpdate).Format(time.RFC3339)
		resp.LastUpdate = s.cal.Time(stats.LastUpdate).Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	begin, end, err := s.window(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := s.repo.Lookup(r.Context(), r.PathValue("ref"), loadBegin(begin), loadEnd(end))
	if err != nil {
		s.lookupError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reporting.RenderPriceTable(st, s.cal.Location())))
}

// chartQuery is a parsed /api/chart request.
type chartQuery struct {
	station string
	fuel    domain.FuelType
	byFuel  bool
	req     aggregate.Request
	pattern string
}

func (s *Server) parseChart(r *http.Request) (*chartQuery, error) {
	q := r.URL.Query()
	cq := &chartQuery{station: q.Get("station")}

	if f := q.Get("fuel"); f != "" {
		fuel, err := domain.ParseFuelType(f)
		if err != nil {
			return nil, err
		}
		cq.fuel, cq.byFuel = fuel, true
	}
	if cq.station == "" && !cq.byFuel {
		return nil, errors.New("one of station or fuel is required")
	}
	if cq.station != "" && cq.byFuel {
		return nil, errors.New("station and fuel are mutually exclusive")
	}

	transform, err := domain.ParseTransform(q.Get("transform"))
	if err != nil {
		return nil, err
	}
	cq.req.Transform = transform

	if transform == domain.TransformAverage {
		cq.req.Mode = domain.AverageDay
		if m := q.Get("mode"); m != "" {
			mode, err := domain.ParseAverageMode(m)
			if err != nil {
				return nil, err
			}
			cq.req.Mode = mode
		}
	}

	if p := q.Get("pattern"); p != "" {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		cq.req.Pattern, cq.pattern = re, p
	}

	cq.req.Begin, cq.req.End, err = s.window(r)
	if err != nil {
		return nil, err
	}
	return cq, nil
}

func (cq *chartQuery) key(version uint64) idhash.ChartKey {
	k := idhash.ChartKey{
		Subject:   idhash.StationSubject(cq.station),
		Transform: string(cq.req.Transform),
		Pattern:   cq.pattern,
		Begin:     cq.req.Begin,
		End:       cq.req.End,
		Version:   version,
	}
	if cq.byFuel {
		k.Subject = idhash.FuelSubject(cq.fuel.ID())
	}
	if cq.req.Transform == domain.TransformAverage {
		k.Mode = cq.req.Mode.Name()
	}
	return k
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx := r.Context()

	cq, err := s.parseChart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	transform := string(cq.req.Transform)

	stats, err := s.repo.Info(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}
	id := idhash.ComputeChartID(cq.key(stats.Revision))

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag(id) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	payload, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.Printf("chart cache: %v", err)
	}
	s.metrics.RecordCacheLookup(ok)
	if ok {
		s.writeChart(w, id, payload)
		s.metrics.RecordChart(transform, "cached", time.Since(started).Seconds(), 0)
		return
	}

	res, err := s.buildChart(r, cq)
	if err != nil {
		s.metrics.RecordChart(transform, "error", time.Since(started).Seconds(), 0)
		switch {
		case errors.Is(err, aggregate.ErrNoData):
			writeError(w, http.StatusNotFound, aggregate.ErrNoData.Error())
		default:
			s.lookupError(w, err)
		}
		return
	}

	payload, err = json.Marshal(toChartResponse(id, res))
	if err != nil {
		s.internalError(w, err)
		return
	}
	if err := s.cache.Set(ctx, id, payload); err != nil {
		s.logger.Printf("chart cache: %v", err)
	}
	s.metrics.RecordChart(transform, "ok", time.Since(started).Seconds(), len(res.Skipped))
	s.writeChart(w, id, payload)
}

func (s *Server) buildChart(r *http.Request, cq *chartQuery) (*aggregate.Result, error) {
	ctx := r.Context()
	begin, end := loadBegin(cq.req.Begin), loadEnd(cq.req.End)

	if cq.byFuel {
		sts, err := s.repo.ByFuel(ctx, cq.fuel, begin, end)
		if err != nil {
			return nil, err
		}
		return s.aggregator.ForFuel(ctx, cq.fuel, sts, cq.req)
	}

	st, err := s.repo.Lookup(ctx, cq.station, begin, end)
	if err != nil {
		return nil, err
	}
	return s.aggregator.ForStation(ctx, st, cq.req)
}

func (s *Server) writeChart(w http.ResponseWriter, id string, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag(id))
	w.WriteHeader(http.StatusOK)
	w.Write(bytes.TrimRight(payload, "\n"))
}

func toChartResponse(id string, res *aggregate.Result) ChartResponse {
	resp := ChartResponse{
		RequestID: id,
		Title:     res.Title,
		Caption:   res.Caption,
		Axis:      string(res.Axis),
		MinTime:   res.MinTime,
		MaxTime:   res.MaxTime,
		Traces:    make([]TraceJSON, 0, len(res.Traces)),
		Skipped:   res.Skipped,
	}
	for _, tr := range res.Traces {
		pts := make([]Point, 0, tr.Series.Len())
		tr.Series.ForEach(func(ts int64, v float32) {
			pts = append(pts, Point{T: ts, V: v})
		})
		resp.Traces = append(resp.Traces, TraceJSON{Name: tr.Name, Color: tr.Color.Hex(), Points: pts})
	}
	return resp
}

// window parses the optional begin and end query parameters.
func (s *Server) window(r *http.Request) (begin, end int64, err error) {
	q := r.URL.Query()
	if v := q.Get("begin"); v != "" {
		if begin, err = s.cal.ParseTime(v); err != nil {
			return 0, 0, fmt.Errorf("begin: %w", err)
		}
	}
	if v := q.Get("end"); v != "" {
		if end, err = s.cal.ParseTime(v); err != nil {
			return 0, 0, fmt.Errorf("end: %w", err)
		}
	}
	if begin != 0 && end != 0 && begin > end {
		return 0, 0, errors.New("begin is after end")
	}
	return begin, end, nil
}

func loadBegin(begin int64) int64 {
	if begin == 0 {
		return math.MinInt64
	}
	return begin
}

func loadEnd(end int64) int64 {
	if end == 0 {
		return math.MaxInt64
	}
	return end
}

func etag(id string) string {
	return `"` + id + `"`
}

func (s *Server) lookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.internalError(w, err)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Printf("request failed: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

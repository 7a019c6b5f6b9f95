package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Gridiron/internal/config"
	"github.com/MikeSquared-Agency/Gridiron/internal/ranking"
)

// maxCompareEntities caps the side-by-side view.
const maxCompareEntities = 12

type RankHandler struct {
	engine  *ranking.Engine
	schemes *ranking.Schemes
	cfg     *config.Config
	logger  *slog.Logger
}

func NewRankHandler(e *ranking.Engine, schemes *ranking.Schemes, cfg *config.Config, logger *slog.Logger) *RankHandler {
	return &RankHandler{engine: e, schemes: schemes, cfg: cfg, logger: logger}
}

// PopulationFilter narrows a population to entities whose field equals value.
type PopulationFilter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (f *PopulationFilter) apply(pop ranking.Population) ranking.Population {
	if f == nil || f.Field == "" {
		return pop
	}
	return pop.Filter(f.Field, f.Value)
}

// parseFilter reads "field:value" from a query parameter.
func parseFilter(raw string) (*PopulationFilter, error) {
	if raw == "" {
		return nil, nil
	}
	field, value, ok := strings.Cut(raw, ":")
	if !ok || field == "" {
		return nil, fmt.Errorf("filter must be field:value")
	}
	return &PopulationFilter{Field: field, Value: value}, nil
}

// engineFor returns the engine for a requested scheme; empty uses the default.
func (h *RankHandler) engineFor(scheme string) (*ranking.Engine, error) {
	if scheme == "" {
		return h.engine, nil
	}
	s, err := h.schemes.Get(scheme)
	if err != nil {
		return nil, err
	}
	return h.engine.WithScheme(s), nil
}

// resolveMetric returns the catalog entry for key, or the inline descriptor.
func (h *RankHandler) resolveMetric(key string, inline *ranking.Metric) (ranking.Metric, error) {
	if inline != nil {
		if inline.Key == "" {
			return ranking.Metric{}, fmt.Errorf("descriptor key required")
		}
		return *inline, nil
	}
	if key == "" {
		return ranking.Metric{}, fmt.Errorf("metric required")
	}
	m, ok := h.cfg.Metric(key)
	if !ok {
		return ranking.Metric{}, errUnknownMetric{key}
	}
	return m, nil
}

func (h *RankHandler) resolveMetrics(keys []string) ([]ranking.Metric, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("metrics required")
	}
	out := make([]ranking.Metric, 0, len(keys))
	for _, k := range keys {
		m, err := h.resolveMetric(strings.TrimSpace(k), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

type errUnknownMetric struct{ key string }

func (e errUnknownMetric) Error() string { return "unknown metric: " + e.key }

// writeResolveError answers 404 for unknown catalog metrics and 400 for
// everything else, unknown schemes included.
func writeResolveError(w http.ResponseWriter, err error) {
	var unknown errUnknownMetric
	switch {
	case errors.As(err, &unknown):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
}

// Catalog handles GET /api/v1/metrics/catalog
func (h *RankHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"metrics":        h.cfg.Ranking.Metrics,
		"schemes":        h.schemes.Names(),
		"default_scheme": h.engine.Scheme().Name,
	})
}

// Schemes handles GET /api/v1/grades
func (h *RankHandler) Schemes(w http.ResponseWriter, r *http.Request) {
	out := make([]ranking.Scheme, 0)
	for _, name := range h.schemes.Names() {
		s, _ := h.schemes.Get(name)
		out = append(out, s)
	}
	writeJSON(w, http.StatusOK, out)
}

// Grade handles GET /api/v1/grades/{scheme}?percentile=N
func (h *RankHandler) Grade(w http.ResponseWriter, r *http.Request) {
	s, err := h.schemes.Get(chi.URLParam(r, "scheme"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	pct, err := strconv.Atoi(r.URL.Query().Get("percentile"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "percentile must be an integer"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scheme":     s.Name,
		"percentile": pct,
		"grade":      s.Grade(pct),
	})
}

type PercentileRequest struct {
	Value      interface{}     `json:"value"`
	Values     []interface{}   `json:"values"`
	IsNegative *bool           `json:"is_negative,omitempty"`
	Metric     string          `json:"metric,omitempty"`
	Descriptor *ranking.Metric `json:"descriptor,omitempty"`
	Scheme     string          `json:"scheme,omitempty"`
}

type PercentileResponse struct {
	Percentile    int           `json:"percentile"`
	RawPercentile int           `json:"raw_percentile"`
	IsNegative    bool          `json:"is_negative"`
	Grade         ranking.Grade `json:"grade"`
	Population    int           `json:"population"`
}

// Percentile handles POST /api/v1/rank/percentile
func (h *RankHandler) Percentile(w http.ResponseWriter, r *http.Request) {
	var req PercentileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	engine, err := h.engineFor(req.Scheme)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	if !h.checkSize(w, len(req.Values)) {
		return
	}
	negative := req.IsNegative != nil && *req.IsNegative
	if req.Metric != "" || req.Descriptor != nil {
		m, err := h.resolveMetric(req.Metric, req.Descriptor)
		if err != nil {
			writeResolveError(w, err)
			return
		}
		if req.IsNegative != nil && *req.IsNegative != m.IsNegative {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("is_negative conflicts with metric %s", m.Key)})
			return
		}
		negative = m.IsNegative
	}

	values := make([]float64, 0, len(req.Values))
	for _, v := range req.Values {
		if f, ok := ranking.NumericValue(v); ok {
			values = append(values, f)
		}
	}

	resp := PercentileResponse{IsNegative: negative, Population: len(values)}
	if target, ok := ranking.NumericValue(req.Value); ok && len(values) > 0 {
		resp.RawPercentile = ranking.RawPercentile(target, values)
		resp.Percentile = ranking.Orient(resp.RawPercentile, negative)
	}
	resp.Grade = engine.Scheme().Grade(resp.Percentile)

	observeRanking("percentile", len(values))
	writeJSON(w, http.StatusOK, resp)
}

type LeaderboardRequest struct {
	Metric     string             `json:"metric"`
	Descriptor *ranking.Metric    `json:"descriptor,omitempty"`
	Entities   ranking.Population `json:"entities"`
	Limit      int                `json:"limit,omitempty"`
	Filter     *PopulationFilter  `json:"filter,omitempty"`
	Scheme     string             `json:"scheme,omitempty"`
}

type LeaderboardResponse struct {
	Metric     ranking.Metric           `json:"metric"`
	Scheme     string                   `json:"scheme"`
	Population int                      `json:"population"`
	Rows       []ranking.LeaderboardRow `json:"rows"`
}

// Leaderboard handles POST /api/v1/rank/leaderboard
func (h *RankHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	var req LeaderboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !h.checkSize(w, len(req.Entities)) {
		return
	}
	h.leaderboard(w, req.Entities, req.Metric, req.Descriptor, req.Filter, req.Limit, req.Scheme)
}

func (h *RankHandler) leaderboard(w http.ResponseWriter, pop ranking.Population, key string, inline *ranking.Metric, filter *PopulationFilter, limit int, scheme string) {
	m, err := h.resolveMetric(key, inline)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	engine, err := h.engineFor(scheme)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	// zero means unset over HTTP; a negative limit asks for every row
	if limit == 0 {
		limit = h.cfg.Ranking.LeaderboardLimit
	}

	pop = filter.apply(pop)
	rows := engine.Leaderboard(pop, m, limit)
	observeRanking("leaderboard", len(pop))
	writeJSON(w, http.StatusOK, LeaderboardResponse{
		Metric:     m,
		Scheme:     engine.Scheme().Name,
		Population: len(pop),
		Rows:       rows,
	})
}

type CompareRequest struct {
	Entities ranking.Population `json:"entities"`
	Selected []string           `json:"selected"`
	Metrics  []string           `json:"metrics"`
	Filter   *PopulationFilter  `json:"filter,omitempty"`
	Scheme   string             `json:"scheme,omitempty"`
}

// Compare handles POST /api/v1/rank/compare
func (h *RankHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !h.checkSize(w, len(req.Entities)) {
		return
	}
	h.compare(w, req.Entities, req)
}

func (h *RankHandler) compare(w http.ResponseWriter, pop ranking.Population, req CompareRequest) {
	if len(req.Selected) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "selected required"})
		return
	}
	if len(req.Selected) > maxCompareEntities {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("at most %d entities can be compared", maxCompareEntities)})
		return
	}
	metrics, err := h.resolveMetrics(req.Metrics)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	engine, err := h.engineFor(req.Scheme)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	pop = req.Filter.apply(pop)
	selected := make([]ranking.Entity, 0, len(req.Selected))
	for _, id := range req.Selected {
		ent, ok := pop.Find(engine.IDField(), id)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "entity not found: " + id})
			return
		}
		selected = append(selected, ent)
	}

	table := engine.Compare(selected, metrics, pop)
	observeRanking("compare", len(pop))
	writeJSON(w, http.StatusOK, table)
}

func (h *RankHandler) checkSize(w http.ResponseWriter, n int) bool {
	if limit := h.cfg.Ranking.MaxPopulationSize; limit > 0 && n > limit {
		h.logger.Warn("population too large", "entities", n, "limit", limit)
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": fmt.Sprintf("population exceeds %d entities", limit)})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

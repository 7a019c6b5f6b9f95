package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Gridiron/internal/events"
	"github.com/MikeSquared-Agency/Gridiron/internal/ranking"
	"github.com/MikeSquared-Agency/Gridiron/internal/store"
)

// PopulationsHandler serves stored snapshots and ranks against them.
type PopulationsHandler struct {
	store  store.Store
	events events.Client
	rank   *RankHandler
	logger *slog.Logger
}

func NewPopulationsHandler(s store.Store, ev events.Client, rank *RankHandler, logger *slog.Logger) *PopulationsHandler {
	return &PopulationsHandler{store: s, events: ev, rank: rank, logger: logger}
}

type PutPopulationRequest struct {
	Entities ranking.Population `json:"entities"`
}

// Put handles PUT /api/v1/populations/{season}/{kind}?group=
func (h *PopulationsHandler) Put(w http.ResponseWriter, r *http.Request) {
	season := chi.URLParam(r, "season")
	kind, ok := store.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be teams, players or games"})
		return
	}
	if season == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "season required"})
		return
	}

	var req PutPopulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !h.rank.checkSize(w, len(req.Entities)) {
		return
	}

	snap := &store.Snapshot{
		Season:   season,
		Kind:     kind,
		Group:    r.URL.Query().Get("group"),
		Entities: req.Entities,
	}
	if err := h.store.UpsertSnapshot(r.Context(), snap); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	snapshotsIngested.WithLabelValues(string(kind)).Inc()

	if h.events != nil {
		if err := h.events.PublishIngested(r.Context(), snap, r.Header.Get("X-Client-ID")); err != nil {
			h.logger.Warn("failed to publish population ingested", "snapshot_id", snap.ID, "error", err)
		}
	}

	h.logger.Info("population ingested",
		"snapshot_id", snap.ID,
		"season", snap.Season,
		"kind", snap.Kind,
		"group", snap.Group,
		"entities", snap.EntityCount,
	)
	writeJSON(w, http.StatusOK, snap)
}

// List handles GET /api/v1/populations
func (h *PopulationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.SnapshotFilter{Season: q.Get("season")}
	if k := q.Get("kind"); k != "" {
		kind, ok := store.ParseKind(k)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid kind"})
			return
		}
		filter.Kind = kind
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	snaps, err := h.store.ListSnapshots(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if snaps == nil {
		snaps = []*store.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

// Lookup handles GET /api/v1/populations/{season}/{kind}?group=
func (h *PopulationsHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	kind, ok := store.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be teams, players or games"})
		return
	}
	season := chi.URLParam(r, "season")
	group := r.URL.Query().Get("group")

	snap, err := h.store.FindSnapshot(r.Context(), season, kind, group)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("no %s snapshot for season %s group %q", kind, season, group)})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Get handles GET /api/v1/populations/{id}
func (h *PopulationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Delete handles DELETE /api/v1/populations/{id}
func (h *PopulationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid snapshot id"})
		return
	}
	if err := h.store.DeleteSnapshot(r.Context(), id); err != nil {
		if err == store.ErrSnapshotNotFound {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if h.events != nil {
		if err := h.events.PublishDeleted(r.Context(), id); err != nil {
			h.logger.Warn("failed to publish population deleted", "snapshot_id", id, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Leaderboard handles GET /api/v1/populations/{id}/leaderboard
func (h *PopulationsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilter(q.Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
			return
		}
	}
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	h.rank.leaderboard(w, snap.Entities, q.Get("metric"), nil, filter, limit, q.Get("scheme"))
}

type AverageResponse struct {
	Metric     ranking.Metric `json:"metric"`
	Average    *float64       `json:"average"`
	Display    string         `json:"display"`
	Population int            `json:"population"`
}

// Average handles GET /api/v1/populations/{id}/average
func (h *PopulationsHandler) Average(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseFilter(q.Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m, err := h.rank.resolveMetric(q.Get("metric"), nil)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	snap, ok := h.load(w, r)
	if !ok {
		return
	}

	pop := filter.apply(snap.Entities)
	avg, has := ranking.Average(pop, m.Key)
	resp := AverageResponse{
		Metric:     m,
		Display:    m.FormatValue(avg, has),
		Population: len(pop),
	}
	if has {
		resp.Average = &avg
	}
	observeRanking("average", len(pop))
	writeJSON(w, http.StatusOK, resp)
}

type RatingsResponse struct {
	Entity  ranking.EntityRef `json:"entity"`
	Scheme  string            `json:"scheme"`
	Ratings []ranking.Rating  `json:"ratings"`
}

// Ratings handles GET /api/v1/populations/{id}/entities/{entity}/ratings
func (h *PopulationsHandler) Ratings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var keys []string
	if raw := q.Get("metrics"); raw != "" {
		keys = strings.Split(raw, ",")
	} else {
		for _, m := range h.rank.cfg.Ranking.Metrics {
			keys = append(keys, m.Key)
		}
	}
	metrics, err := h.rank.resolveMetrics(keys)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	engine, err := h.rank.engineFor(q.Get("scheme"))
	if err != nil {
		writeResolveError(w, err)
		return
	}
	filter, err := parseFilter(q.Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	snap, ok := h.load(w, r)
	if !ok {
		return
	}

	pop := filter.apply(snap.Entities)
	entityID := chi.URLParam(r, "entity")
	ent, found := pop.Find(engine.IDField(), entityID)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entity not found: " + entityID})
		return
	}

	ratings := engine.RateAll(ent, metrics, pop)
	observeRanking("ratings", len(pop))
	writeJSON(w, http.StatusOK, RatingsResponse{
		Entity:  engine.Ref(ent),
		Scheme:  engine.Scheme().Name,
		Ratings: ratings,
	})
}

// Compare handles POST /api/v1/populations/{id}/compare
func (h *PopulationsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	h.rank.compare(w, snap.Entities, req)
}

// load fetches the snapshot named by the {id} URL param, writing the error
// response itself when it cannot.
func (h *PopulationsHandler) load(w http.ResponseWriter, r *http.Request) (*store.Snapshot, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid snapshot id"})
		return nil, false
	}
	snap, err := h.store.GetSnapshot(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("load snapshot: %v", err)})
		return nil, false
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": store.ErrSnapshotNotFound.Error()})
		return nil, false
	}
	return snap, true
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Gridiron/internal/config"
	"github.com/MikeSquared-Agency/Gridiron/internal/events"
	"github.com/MikeSquared-Agency/Gridiron/internal/ranking"
	"github.com/MikeSquared-Agency/Gridiron/internal/store"
)

// Mocks
type mockStore struct {
	mu    sync.Mutex
	snaps map[uuid.UUID]*store.Snapshot
	err   error
}

func newMockStore() *mockStore {
	return &mockStore{snaps: make(map[uuid.UUID]*store.Snapshot)}
}

func (m *mockStore) UpsertSnapshot(_ context.Context, snap *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	now := time.Now()
	snap.EntityCount = len(snap.Entities)
	for _, existing := range m.snaps {
		if existing.Season == snap.Season && existing.Kind == snap.Kind && existing.Group == snap.Group {
			snap.ID = existing.ID
			snap.CreatedAt = existing.CreatedAt
			snap.UpdatedAt = now
			cp := *snap
			m.snaps[snap.ID] = &cp
			return nil
		}
	}
	snap.ID = uuid.New()
	snap.CreatedAt = now
	snap.UpdatedAt = now
	cp := *snap
	m.snaps[snap.ID] = &cp
	return nil
}

func (m *mockStore) GetSnapshot(_ context.Context, id uuid.UUID) (*store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.snaps[id], nil
}

func (m *mockStore) FindSnapshot(_ context.Context, season string, kind store.Kind, group string) (*store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snaps {
		if s.Season == season && s.Kind == kind && s.Group == group {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListSnapshots(_ context.Context, f store.SnapshotFilter) ([]*store.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Snapshot
	for _, s := range m.snaps {
		if f.Season != "" && s.Season != f.Season {
			continue
		}
		if f.Kind != "" && s.Kind != f.Kind {
			continue
		}
		summary := *s
		summary.Entities = nil
		out = append(out, &summary)
	}
	return out, nil
}

func (m *mockStore) DeleteSnapshot(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[id]; !ok {
		return store.ErrSnapshotNotFound
	}
	delete(m.snaps, id)
	return nil
}

func (m *mockStore) Close() error { return nil }

type mockEvents struct {
	mu       sync.Mutex
	subjects []string
	fail     bool
}

func (m *mockEvents) record(subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("nats unavailable")
	}
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockEvents) PublishIngested(_ context.Context, snap *store.Snapshot, _ string) error {
	return m.record(events.SubjectPopulationIngested(snap.ID.String()))
}

func (m *mockEvents) PublishDeleted(_ context.Context, id uuid.UUID) error {
	return m.record(events.SubjectPopulationDeleted(id.String()))
}

func (m *mockEvents) Close() {}

var _ events.Client = (*mockEvents)(nil)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishIngested(_ context.Context, snap *store.Snapshot, ingestedBy string) error {
	args := m.Called(snap, ingestedBy)
	return args.Error(0)
}

func (m *mockPublisher) PublishDeleted(_ context.Context, id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *mockPublisher) Close() {}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{AdminToken: "test-token"},
		Ranking: config.RankingConfig{
			IDField:           "id",
			NameField:         "name",
			DefaultScheme:     ranking.SchemeTiers,
			LeaderboardLimit:  10,
			MaxPopulationSize: 50,
			Metrics:           config.DefaultMetrics(),
		},
	}
}

func setupTestRouter(t *testing.T) (http.Handler, *mockStore, *mockEvents) {
	t.Helper()
	ms := newMockStore()
	ev := &mockEvents{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()

	schemes, err := ranking.NewSchemes()
	require.NoError(t, err)
	engine := ranking.NewEngine(ranking.TierScheme(), cfg.Ranking.IDField, cfg.Ranking.NameField, logger)
	return NewRouter(ms, ev, engine, schemes, cfg, logger), ms, ev
}

func boolPtr(b bool) *bool { return &b }

func quarterbacks() ranking.Population {
	return ranking.Population{
		{"id": "1", "name": "Allen", "conference": "AFC", "passing_yards": 4306.0, "interceptions": 6.0},
		{"id": "2", "name": "Goff", "conference": "NFC", "passing_yards": 4629.0, "interceptions": 12.0},
		{"id": "3", "name": "Burrow", "conference": "AFC", "passing_yards": 4918.0, "interceptions": 9.0},
		{"id": "4", "name": "Mahomes", "conference": "AFC", "passing_yards": 3928.0, "interceptions": 11.0},
		{"id": "5", "name": "Rookie", "conference": "NFC", "passing_yards": "N/A"},
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func ingest(t *testing.T, router http.Handler, path string) store.Snapshot {
	t.Helper()
	w := doJSON(t, router, "PUT", path, PutPopulationRequest{Entities: quarterbacks()},
		"Authorization", "Bearer test-token", "X-Client-ID", "loader")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var snap store.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	return snap
}

func TestCatalog(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(t, router, "GET", "/api/v1/metrics/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Metrics       []ranking.Metric `json:"metrics"`
		Schemes       []string         `json:"schemes"`
		DefaultScheme string           `json:"default_scheme"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Metrics, len(config.DefaultMetrics()))
	assert.Equal(t, []string{"letters", "tiers"}, resp.Schemes)
	assert.Equal(t, "tiers", resp.DefaultScheme)
}

func TestGradeEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(t, router, "GET", "/api/v1/grades/letters?percentile=82", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Grade ranking.Grade `json:"grade"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "A-", resp.Grade.Label)

	w = doJSON(t, router, "GET", "/api/v1/grades/stars?percentile=82", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/grades/tiers?percentile=high", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/grades", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var schemes []ranking.Scheme
	require.NoError(t, json.NewDecoder(w.Body).Decode(&schemes))
	assert.Len(t, schemes, 2)
}

func TestPercentileEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	tests := []struct {
		name     string
		req      PercentileRequest
		pct, raw int
		grade    string
	}{
		{"middle", PercentileRequest{Value: 30, Values: []interface{}{10, 20, 30, 40}}, 50, 50, "Average"},
		{"max", PercentileRequest{Value: 40, Values: []interface{}{10, 20, 30, 40}}, 100, 100, "Elite"},
		{"min", PercentileRequest{Value: 10, Values: []interface{}{10, 20, 30, 40}}, 25, 25, "Below Avg"},
		{"negative", PercentileRequest{Value: 10, Values: []interface{}{10, 20, 30, 40}, IsNegative: boolPtr(true)}, 75, 25, "Great"},
		{"catalog negative", PercentileRequest{Value: 40, Values: []interface{}{10, 20, 30, 40}, Metric: "interceptions"}, 0, 100, "Very Poor"},
		{"agreeing is_negative", PercentileRequest{Value: 40, Values: []interface{}{10, 20, 30, 40}, Metric: "interceptions", IsNegative: boolPtr(true)}, 0, 100, "Very Poor"},
		{"non-numeric target", PercentileRequest{Value: "N/A", Values: []interface{}{10, 20}}, 0, 0, "Very Poor"},
		{"empty population", PercentileRequest{Value: 5, IsNegative: boolPtr(true)}, 0, 0, "Very Poor"},
		{"skips junk values", PercentileRequest{Value: 20, Values: []interface{}{10, "x", nil, 20}}, 100, 100, "Elite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "POST", "/api/v1/rank/percentile", tt.req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var resp PercentileResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.pct, resp.Percentile)
			assert.Equal(t, tt.raw, resp.RawPercentile)
			assert.Equal(t, tt.grade, resp.Grade.Label)
		})
	}
}

func TestPercentileEndpointErrors(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := httptest.NewRequest("POST", "/api/v1/rank/percentile", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/rank/percentile", PercentileRequest{Value: 1, Scheme: "stars"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/rank/percentile", PercentileRequest{Value: 1, Metric: "tackles"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPercentileEndpointIsNegativeConflict(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/rank/percentile", PercentileRequest{
		Value: 10, Values: []interface{}{10, 20}, Metric: "interceptions", IsNegative: boolPtr(false),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "interceptions")

	w = doJSON(t, router, "POST", "/api/v1/rank/percentile", PercentileRequest{
		Value: 10, Values: []interface{}{10, 20}, Descriptor: &ranking.Metric{Key: "fumbles"}, IsNegative: boolPtr(true),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPercentileEndpointTooLarge(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	values := make([]interface{}, 51)
	for i := range values {
		values[i] = float64(i)
	}
	w := doJSON(t, router, "POST", "/api/v1/rank/percentile", PercentileRequest{Value: 3, Values: values})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/rank/percentile", PercentileRequest{Value: 3, Values: values[:50]})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLeaderboardEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/rank/leaderboard", LeaderboardRequest{
		Metric:   "passing_yards",
		Entities: quarterbacks(),
		Limit:    3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LeaderboardResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "Burrow", resp.Rows[0].Name)
	assert.Equal(t, "4,918", resp.Rows[0].Display)
	assert.Equal(t, 100, resp.Rows[0].Percentile)
	assert.Equal(t, "Goff", resp.Rows[1].Name)
	assert.Equal(t, 50, resp.Rows[1].Percentile)
	assert.Equal(t, "Allen", resp.Rows[2].Name)
	assert.Equal(t, 3, resp.Rows[2].Rank)
	assert.Equal(t, "tiers", resp.Scheme)
}

func TestLeaderboardEndpointDescriptorAndScheme(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/rank/leaderboard", LeaderboardRequest{
		Descriptor: &ranking.Metric{Key: "interceptions", Label: "Picks", IsNegative: true},
		Entities:   quarterbacks(),
		Filter:     &PopulationFilter{Field: "conference", Value: "afc"},
		Scheme:     "letters",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LeaderboardResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Population)
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, "Allen", resp.Rows[0].Name)
	assert.Equal(t, "letters", resp.Scheme)
	assert.Equal(t, 67, resp.Rows[0].Percentile)
	assert.Equal(t, "B-", resp.Rows[0].Grade.Label)
}

func TestLeaderboardEndpointTooLarge(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	pop := make(ranking.Population, 51)
	for i := range pop {
		pop[i] = ranking.Entity{"id": i, "passing_yards": float64(i)}
	}
	w := doJSON(t, router, "POST", "/api/v1/rank/leaderboard", LeaderboardRequest{Metric: "passing_yards", Entities: pop})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestCompareEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/rank/compare", CompareRequest{
		Entities: quarterbacks(),
		Selected: []string{"1", "5"},
		Metrics:  []string{"passing_yards", "interceptions"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var table ranking.ComparisonTable
	require.NoError(t, json.NewDecoder(w.Body).Decode(&table))
	require.Len(t, table.Entities, 2)
	assert.Equal(t, "Rookie", table.Entities[1].Name)
	require.Len(t, table.Rows, 2)

	yards := table.Rows[0]
	assert.Equal(t, "4,445", yards.AverageDisplay)
	assert.True(t, yards.Cells[0].Leader)
	assert.False(t, yards.Cells[1].Available)
	assert.Equal(t, ranking.NotAvailable, yards.Cells[1].Display)

	picks := table.Rows[1]
	assert.Equal(t, 75, picks.Cells[0].Percentile)
	assert.True(t, picks.Cells[0].Leader)
}

func TestCompareEndpointErrors(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(t, router, "POST", "/api/v1/rank/compare", CompareRequest{Entities: quarterbacks(), Metrics: []string{"passing_yards"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/rank/compare", CompareRequest{Entities: quarterbacks(), Selected: []string{"99"}, Metrics: []string{"passing_yards"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/rank/compare", CompareRequest{Entities: quarterbacks(), Selected: []string{"1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutPopulation(t *testing.T) {
	router, ms, ev := setupTestRouter(t)

	snap := ingest(t, router, "/api/v1/populations/2024/players?group=QB")
	assert.NotEqual(t, uuid.Nil, snap.ID)
	assert.Equal(t, "QB", snap.Group)
	assert.Equal(t, 5, snap.EntityCount)
	assert.Len(t, ms.snaps, 1)
	assert.Equal(t, []string{events.SubjectPopulationIngested(snap.ID.String())}, ev.subjects)

	again := ingest(t, router, "/api/v1/populations/2024/players?group=QB")
	assert.Equal(t, snap.ID, again.ID)
	assert.Len(t, ms.snaps, 1)
}

func TestPopulationEventsPublished(t *testing.T) {
	pub := &mockPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	schemes, err := ranking.NewSchemes()
	require.NoError(t, err)
	engine := ranking.NewEngine(ranking.TierScheme(), "", "", logger)
	router := NewRouter(newMockStore(), pub, engine, schemes, cfg, logger)

	pub.On("PublishIngested", mock.MatchedBy(func(s *store.Snapshot) bool {
		return s.Season == "2024" && s.Kind == store.KindPlayers && s.Group == "QB" && s.EntityCount == 5
	}), "loader").Return(nil).Once()
	pub.On("PublishDeleted", mock.AnythingOfType("uuid.UUID")).Return(nil).Once()

	snap := ingest(t, router, "/api/v1/populations/2024/players?group=QB")
	w := doJSON(t, router, "DELETE", "/api/v1/populations/"+snap.ID.String(), nil, "Authorization", "Bearer test-token")
	require.Equal(t, http.StatusNoContent, w.Code)

	pub.AssertCalled(t, "PublishDeleted", snap.ID)
	pub.AssertExpectations(t)
}

func TestPutPopulationRejects(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := doJSON(t, router, "PUT", "/api/v1/populations/2024/players", PutPopulationRequest{Entities: quarterbacks()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "PUT", "/api/v1/populations/2024/coaches", PutPopulationRequest{Entities: quarterbacks()},
		"Authorization", "Bearer test-token")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutPopulationPublishFailureIgnored(t *testing.T) {
	router, _, ev := setupTestRouter(t)
	ev.fail = true

	snap := ingest(t, router, "/api/v1/populations/2024/teams")
	assert.NotEqual(t, uuid.Nil, snap.ID)
}

func TestPutPopulationStoreError(t *testing.T) {
	router, ms, _ := setupTestRouter(t)
	ms.err = errors.New("disk full")

	w := doJSON(t, router, "PUT", "/api/v1/populations/2024/teams", PutPopulationRequest{Entities: quarterbacks()},
		"Authorization", "Bearer test-token")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListGetDeletePopulation(t *testing.T) {
	router, _, ev := setupTestRouter(t)
	snap := ingest(t, router, "/api/v1/populations/2024/players?group=QB")
	ingest(t, router, "/api/v1/populations/2023/teams")

	w := doJSON(t, router, "GET", "/api/v1/populations?kind=players", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []store.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Entities)

	w = doJSON(t, router, "GET", "/api/v1/populations?kind=coaches", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/populations/"+snap.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got store.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got.Entities, 5)

	w = doJSON(t, router, "GET", "/api/v1/populations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "DELETE", "/api/v1/populations/"+snap.ID.String(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "DELETE", "/api/v1/populations/"+snap.ID.String(), nil, "Authorization", "Bearer test-token")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, ev.subjects, events.SubjectPopulationDeleted(snap.ID.String()))

	w = doJSON(t, router, "DELETE", "/api/v1/populations/"+snap.ID.String(), nil, "Authorization", "Bearer test-token")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/populations/"+snap.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoredLeaderboard(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	snap := ingest(t, router, "/api/v1/populations/2024/players?group=QB")
	base := "/api/v1/populations/" + snap.ID.String()

	w := doJSON(t, router, "GET", base+"/leaderboard?metric=passing_yards&limit=2&filter=conference:AFC", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp LeaderboardResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Population)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "Burrow", resp.Rows[0].Name)
	assert.Equal(t, "Allen", resp.Rows[1].Name)
	assert.Equal(t, 33, resp.Rows[1].Percentile)

	w = doJSON(t, router, "GET", base+"/leaderboard?metric=tackles", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "GET", base+"/leaderboard?metric=passing_yards&filter=conference", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "GET", base+"/leaderboard?metric=passing_yards&limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStoredLeaderboardLimitDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	cfg.Ranking.LeaderboardLimit = 2
	schemes, err := ranking.NewSchemes()
	require.NoError(t, err)
	engine := ranking.NewEngine(ranking.TierScheme(), cfg.Ranking.IDField, cfg.Ranking.NameField, logger)
	router := NewRouter(newMockStore(), nil, engine, schemes, cfg, logger)

	snap := ingest(t, router, "/api/v1/populations/2024/players?group=QB")
	base := "/api/v1/populations/" + snap.ID.String() + "/leaderboard?metric=passing_yards"

	tests := []struct {
		name  string
		query string
		rows  int
	}{
		{"omitted uses configured default", "", 2},
		{"zero uses configured default", "&limit=0", 2},
		{"explicit", "&limit=3", 3},
		{"negative returns all", "&limit=-1", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, "GET", base+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var resp LeaderboardResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Len(t, resp.Rows, tt.rows)
		})
	}
}

func TestLookupPopulation(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	qb := ingest(t, router, "/api/v1/populations/2024/players?group=QB")
	teams := ingest(t, router, "/api/v1/populations/2024/teams")

	w := doJSON(t, router, "GET", "/api/v1/populations/2024/players?group=QB", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got store.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, qb.ID, got.ID)
	assert.Len(t, got.Entities, 5)

	w = doJSON(t, router, "GET", "/api/v1/populations/2024/teams", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got = store.Snapshot{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, teams.ID, got.ID)

	// group is part of the key
	w = doJSON(t, router, "GET", "/api/v1/populations/2024/players", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/populations/2023/players?group=QB", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "GET", "/api/v1/populations/2024/coaches", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// id routes still win for their static suffixes
	w = doJSON(t, router, "GET", "/api/v1/populations/"+qb.ID.String()+"/average?metric=passing_yards", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStoredAverage(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	snap := ingest(t, router, "/api/v1/populations/2024/players?group=QB")
	base := "/api/v1/populations/" + snap.ID.String()

	w := doJSON(t, router, "GET", base+"/average?metric=passing_yards", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp AverageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Average)
	assert.InDelta(t, 4445.25, *resp.Average, 1e-9)
	assert.Equal(t, "4,445", resp.Display)

	w = doJSON(t, router, "GET", base+"/average?metric=sacks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = AverageResponse{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Nil(t, resp.Average)
	assert.Equal(t, ranking.NotAvailable, resp.Display)
}

func TestStoredRatings(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	snap := ingest(t, router, "/api/v1/populations/2024/players?group=QB")
	base := "/api/v1/populations/" + snap.ID.String()

	w := doJSON(t, router, "GET", base+"/entities/2/ratings?metrics=passing_yards,interceptions", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp RatingsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Goff", resp.Entity.Name)
	require.Len(t, resp.Ratings, 2)
	assert.Equal(t, 50, resp.Ratings[0].Percentile)
	assert.Equal(t, "Average", resp.Ratings[0].Grade.Label)
	assert.Equal(t, 0, resp.Ratings[1].Percentile)
	assert.Equal(t, "Very Poor", resp.Ratings[1].Grade.Label)

	w = doJSON(t, router, "GET", base+"/entities/2/ratings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = RatingsResponse{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Ratings, len(config.DefaultMetrics()))

	w = doJSON(t, router, "GET", base+"/entities/42/ratings?metrics=passing_yards", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoredCompare(t *testing.T) {
	router, _, _ := setupTestRouter(t)
	snap := ingest(t, router, "/api/v1/populations/2024/players?group=QB")

	w := doJSON(t, router, "POST", "/api/v1/populations/"+snap.ID.String()+"/compare", CompareRequest{
		Selected: []string{"2", "3"},
		Metrics:  []string{"passing_yards"},
		Scheme:   "letters",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var table ranking.ComparisonTable
	require.NoError(t, json.NewDecoder(w.Body).Decode(&table))
	require.Len(t, table.Rows, 1)
	assert.False(t, table.Rows[0].Cells[0].Leader)
	assert.True(t, table.Rows[0].Cells[1].Leader)
	assert.Equal(t, "A+", table.Rows[0].Cells[1].Grade.Label)

	w = doJSON(t, router, "POST", "/api/v1/populations/"+uuid.NewString()+"/compare", CompareRequest{
		Selected: []string{"2"},
		Metrics:  []string{"passing_yards"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsRouter(t *testing.T) {
	router := NewMetricsRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"facewatch-go/internal/core/processor"
	"facewatch-go/internal/database"
	"facewatch-go/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	identities []models.Identity
	sightings  []models.Sighting
	lastFilter database.SightingFilter
	err        error
}

func (r *fakeRepo) UpsertIdentities(ctx context.Context, identities []models.Identity) error {
	r.identities = identities
	return r.err
}

func (r *fakeRepo) GetIdentities(ctx context.Context) ([]models.Identity, error) {
	return r.identities, r.err
}

func (r *fakeRepo) SaveSighting(ctx context.Context, s *models.Sighting) error {
	r.sightings = append(r.sightings, *s)
	return r.err
}

func (r *fakeRepo) GetSighting(ctx context.Context, id uint) (*models.Sighting, error) {
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.sightings {
		if r.sightings[i].ID == id {
			return &r.sightings[i], nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *fakeRepo) ListSightings(ctx context.Context, filter database.SightingFilter) ([]models.Sighting, int64, error) {
	r.lastFilter = filter
	return r.sightings, int64(len(r.sightings)), r.err
}

func (r *fakeRepo) DeleteSightingsBefore(ctx context.Context, cutoff time.Time) ([]models.Sighting, error) {
	return nil, r.err
}

func (r *fakeRepo) GetStatistics(ctx context.Context) (models.Statistics, error) {
	return models.Statistics{TotalSightings: int64(len(r.sightings))}, r.err
}

func newRouter(h *APIHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	return router
}

func get(t *testing.T, router http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := NewAPIHandler(Dependencies{
		RunID:       "run-1",
		Version:     "test",
		ClientCount: func() int { return 3 },
	})

	w := get(t, newRouter(h), "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, false, body["database"])
	assert.Equal(t, float64(3), body["sse_clients"])
}

func TestListIdentities(t *testing.T) {
	repo := &fakeRepo{identities: []models.Identity{{Name: "a_person"}, {Name: "b_person", Position: 1}}}
	w := get(t, newRouter(NewAPIHandler(Dependencies{Repo: repo})), "/api/identities")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count      int               `json:"count"`
		Identities []models.Identity `json:"identities"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "b_person", body.Identities[1].Name)
}

func TestDatabaseDisabled(t *testing.T) {
	router := newRouter(NewAPIHandler(Dependencies{}))

	for _, url := range []string{"/api/identities", "/api/sightings", "/api/sightings/1"} {
		w := get(t, router, url)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, url)
		// without the i18n middleware the message ID comes back untranslated
		assert.Equal(t, "api.database_disabled", decode(t, w)["error"], url)
	}
}

func TestListSightings(t *testing.T) {
	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := models.Sighting{Name: "a_person", Known: true, SnapshotPath: "run-1/x.jpg", SeenAt: seen}
	s.ID = 7
	repo := &fakeRepo{sightings: []models.Sighting{s}}
	router := newRouter(NewAPIHandler(Dependencies{Repo: repo, SnapshotURLBase: "/snapshots"}))

	w := get(t, router, "/api/sightings?limit=1000&offset=5&name=a_person&since=2024-05-01T00:00:00Z")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, maxSightingLimit, repo.lastFilter.Limit)
	assert.Equal(t, 5, repo.lastFilter.Offset)
	assert.Equal(t, "a_person", repo.lastFilter.Name)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), repo.lastFilter.Since)

	var body struct {
		Total     int64 `json:"total"`
		Sightings []struct {
			ID          uint   `json:"ID"`
			Name        string `json:"name"`
			SnapshotURL string `json:"snapshot_url"`
		} `json:"sightings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Total)
	require.Len(t, body.Sightings, 1)
	assert.Equal(t, uint(7), body.Sightings[0].ID)
	assert.Equal(t, "/snapshots/run-1/x.jpg", body.Sightings[0].SnapshotURL)

	get(t, router, "/api/sightings")
	assert.Equal(t, defaultSightingLimit, repo.lastFilter.Limit)
}

func TestListSightings_BadQuery(t *testing.T) {
	router := newRouter(NewAPIHandler(Dependencies{Repo: &fakeRepo{}}))

	for _, q := range []string{"limit=abc", "limit=0", "offset=-1", "since=yesterday"} {
		w := get(t, router, "/api/sightings?"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestGetSighting(t *testing.T) {
	s := models.Sighting{Name: "b_person"}
	s.ID = 2
	router := newRouter(NewAPIHandler(Dependencies{Repo: &fakeRepo{sightings: []models.Sighting{s}}}))

	w := get(t, router, "/api/sightings/2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b_person", decode(t, w)["name"])

	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/sightings/3").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/sightings/x").Code)
}

func TestRepositoryErrors(t *testing.T) {
	router := newRouter(NewAPIHandler(Dependencies{Repo: &fakeRepo{err: errors.New("disk gone")}}))

	for _, url := range []string{"/api/identities", "/api/sightings", "/api/sightings/1", "/api/stats"} {
		assert.Equal(t, http.StatusInternalServerError, get(t, router, url).Code, url)
	}
}

func TestGetStats(t *testing.T) {
	repo := &fakeRepo{sightings: []models.Sighting{{Name: "a_person"}}}
	router := newRouter(NewAPIHandler(Dependencies{
		Repo:     repo,
		Counters: &processor.Counters{},
		Started:  time.Now().Add(-time.Minute),
	}))

	w := get(t, router, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		System struct {
			NumCPU   int                        `json:"num_cpu"`
			Pipeline *processor.CounterSnapshot `json:"pipeline"`
		} `json:"system"`
		History *models.Statistics `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Positive(t, body.System.NumCPU)
	assert.NotNil(t, body.System.Pipeline)
	require.NotNil(t, body.History)
	assert.Equal(t, int64(1), body.History.TotalSightings)
}

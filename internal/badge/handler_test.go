package badge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perschulte/ecoci/internal/badge/store"
)

type fakeStore struct {
	latest   *store.MeasurementRun
	latestEr error
	inserted []*store.MeasurementRun
	insertEr error
}

func (f *fakeStore) LatestMeasurement(context.Context, string, string) (*store.MeasurementRun, error) {
	return f.latest, f.latestEr
}

func (f *fakeStore) InsertMeasurement(_ context.Context, run *store.MeasurementRun) error {
	if f.insertEr != nil {
		return f.insertEr
	}
	run.ID = int64(len(f.inserted) + 1)
	run.CreatedAt = time.Now()
	f.inserted = append(f.inserted, run)
	return nil
}

func newTestServer(fs *fakeStore) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(fs, fs, "test", zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := doRequest(t, newTestServer(&fakeStore{}), http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestBadge_WithMeasurement(t *testing.T) {
	fs := &fakeStore{latest: &store.MeasurementRun{
		Org: "acme", Repo: "api", CO2Kg: 0.042, CreatedAt: time.Now(),
	}}

	w := doRequest(t, newTestServer(fs), http.MethodGet, "/badge/acme/api.svg", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Equal(t, "max-age=3600", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("ETag"))
	assert.Contains(t, w.Body.String(), "0.042 kg")
	assert.Contains(t, w.Body.String(), colorGreen)
}

func TestBadge_NoData(t *testing.T) {
	w := doRequest(t, newTestServer(&fakeStore{}), http.MethodGet, "/badge/acme/api.svg", nil)

	require.Equal(t, http.StatusOK, w.Code, "missing data renders a badge, not a 404")
	assert.Contains(t, w.Body.String(), "no data")
	assert.Contains(t, w.Body.String(), colorGray)
}

func TestBadge_MissingSVGSuffix(t *testing.T) {
	w := doRequest(t, newTestServer(&fakeStore{}), http.MethodGet, "/badge/acme/api", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadge_StoreError(t *testing.T) {
	fs := &fakeStore{latestEr: errors.New("db down")}
	w := doRequest(t, newTestServer(fs), http.MethodGet, "/badge/acme/api.svg", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIngest_OK(t *testing.T) {
	fs := &fakeStore{}
	body, _ := json.Marshal(map[string]any{
		"org": "acme", "repo": "api",
		"energy_kwh": 0.001, "co2_kg": 0.0005, "duration_s": 1.5,
	})

	w := doRequest(t, newTestServer(fs), http.MethodPost, "/api/v1/measurements", body)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, fs.inserted, 1)
	assert.Equal(t, "acme", fs.inserted[0].Org)
	assert.Equal(t, 0.0005, fs.inserted[0].CO2Kg)
}

func TestIngest_RejectsNegativeValues(t *testing.T) {
	fs := &fakeStore{}
	body, _ := json.Marshal(map[string]any{
		"org": "acme", "repo": "api",
		"energy_kwh": -0.001, "co2_kg": 0.0005, "duration_s": 1.5,
	})

	w := doRequest(t, newTestServer(fs), http.MethodPost, "/api/v1/measurements", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, fs.inserted)
}

func TestIngest_RequiresOrgAndRepo(t *testing.T) {
	body, _ := json.Marshal(map[string]any{"energy_kwh": 0.001})
	w := doRequest(t, newTestServer(&fakeStore{}), http.MethodPost, "/api/v1/measurements", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

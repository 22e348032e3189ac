package premium

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() http.Handler {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Get("/doctors", h.Doctors)
	r.Get("/doctors/{id}", h.Doctor)
	r.Get("/delivery-tracker", h.Tracker)
	return r
}

func get(t *testing.T, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHandler_Doctors(t *testing.T) {
	rec, body := get(t, "/doctors")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["doctors"], 5)

	_, body = get(t, "/doctors?specialty=Lactation%20Consultant")
	assert.Len(t, body["doctors"], 1)
}

func TestHandler_Doctor(t *testing.T) {
	rec, body := get(t, "/doctors/dr-farah-khan")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dr. Farah Khan", body["doctor"].(map[string]any)["name"])

	rec, _ = get(t, "/doctors/dr-unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Tracker(t *testing.T) {
	rec, body := get(t, "/delivery-tracker?due_date=2025-10-19")
	assert.Equal(t, http.StatusOK, rec.Code)
	tracker := body["tracker"].(map[string]any)
	assert.Equal(t, float64(20), tracker["week"])
	assert.Equal(t, float64(2), tracker["trimester"])

	rec, _ = get(t, "/delivery-tracker")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, "/delivery-tracker?due_date=2030-01-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	up   = CheckerFunc(func(context.Context) error { return nil })
	down = CheckerFunc(func(context.Context) error { return errors.New("refused") })
)

func readyz(t *testing.T, h *Handler) (int, ReadinessResponse) {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		deps       []Dependency
		wantCode   int
		wantStatus string
	}{
		{
			name: "all healthy",
			deps: []Dependency{
				{Name: "database", Checker: up, Critical: true},
				{Name: "redis", Checker: up, Critical: true},
				{Name: "panel", Checker: up},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "panel down is degraded",
			deps: []Dependency{
				{Name: "database", Checker: up, Critical: true},
				{Name: "panel", Checker: down},
			},
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
		{
			name: "database down is unavailable",
			deps: []Dependency{
				{Name: "database", Checker: down, Critical: true},
				{Name: "panel", Checker: down},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unavailable",
		},
		{
			name: "missing critical checker",
			deps: []Dependency{
				{Name: "redis", Critical: true},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := readyz(t, NewHandler(tt.deps...))
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body.Status)
			require.Len(t, body.Checks, len(tt.deps))
			for i, dep := range tt.deps {
				assert.Equal(t, dep.Name, body.Checks[i].Name)
			}
		})
	}
}

func TestShutdownAndNotReady(t *testing.T) {
	h := NewHandler(Dependency{Name: "database", Checker: up, Critical: true})
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	h.SetReady(false)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.SetShutdown(true)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "shutting_down")
}

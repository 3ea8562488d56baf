package courseprogress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/course-progress/internal/catalog"
	"github.com/magabrotheeeer/course-progress/internal/http/handlers/health"
	"github.com/magabrotheeeer/course-progress/internal/lib/jwt"
	"github.com/magabrotheeeer/course-progress/internal/lib/password"
	adminservice "github.com/magabrotheeeer/course-progress/internal/services/admin"
	progressservice "github.com/magabrotheeeer/course-progress/internal/services/progress"
)

const ownerID = "11111111-1111-1111-1111-111111111111"

func newTestRouter(t *testing.T, dbErr error) (http.Handler, *jwt.MakerImpl) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwt.NewJWTMaker("test-secret", time.Hour)
	hash, err := password.GetHash("admin-token")
	require.NoError(t, err)

	r := chi.NewRouter()
	RegisterRoutes(r, log, Deps{
		Progress: progressservice.NewProgressService(nil, nil, nil, catalog.Default(), tokens,
			progressservice.Options{MaxRetries: 1}, log),
		Admin:          adminservice.NewAdminService(nil, nil, log),
		Tokens:         tokens,
		AdminTokenHash: hash,
		LoginRPS:       100,
		LoginBurst:     100,
		Health: map[string]health.Checker{
			"postgres": func(context.Context) error { return dbErr },
		},
	})
	return r, tokens
}

func TestRoutes(t *testing.T) {
	router, tokens := newTestRouter(t, nil)
	ownToken, err := tokens.GenerateToken(ownerID, "A-1")
	require.NoError(t, err)
	otherToken, err := tokens.GenerateToken("22222222-2222-2222-2222-222222222222", "A-2")
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{name: "courses are public", method: http.MethodGet, path: "/api/v1/courses", wantStatus: http.StatusOK},
		{name: "health is public", method: http.MethodGet, path: "/api/v1/health", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "user without token", method: http.MethodGet, path: "/api/v1/users/" + ownerID, wantStatus: http.StatusUnauthorized},
		{name: "someone else's dashboard", method: http.MethodGet, path: "/api/v1/users/" + ownerID + "/dashboard", token: otherToken, wantStatus: http.StatusForbidden},
		{name: "unknown course for owner", method: http.MethodGet, path: "/api/v1/users/" + ownerID + "/courses/abc", token: ownToken, wantStatus: http.StatusBadRequest},
		{name: "admin without token", method: http.MethodPost, path: "/api/v1/admin/start-season", wantStatus: http.StatusUnauthorized},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestRoutes_HealthReportsFailedDependency(t *testing.T) {
	router, _ := newTestRouter(t, errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "postgres")
}

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"tryon-backend/internal/auth"
	"tryon-backend/internal/http/handlers"
	"tryon-backend/internal/infra"
)

func testRouter() http.Handler {
	logger := zerolog.Nop()
	cfg := &infra.Config{
		RateLimitPerMin:    1000,
		CORSAllowedOrigins: []string{"*"},
	}
	app := &handlers.App{Config: cfg, Logger: &logger}
	return NewRouter(app, cfg, &logger, auth.NewTokenIssuer("test-secret"))
}

func TestHealthRouteIsPublic(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestProfileRouteLivesUnderAuth(t *testing.T) {
	r := testRouter()

	// /auth/me exists and is guarded: an anonymous request is rejected,
	// not unrouted.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("GET /auth/me anonymous: status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET /me: status = %d, want 404", rec.Code)
	}
}

func TestTryOnRoutesRequireAuthentication(t *testing.T) {
	r := testRouter()
	for _, target := range []string{"/description", "/human-model", "/final-tryon"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("POST %s anonymous: status = %d, want 401", target, rec.Code)
		}
	}
}

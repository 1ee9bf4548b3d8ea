package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cliptube/backend/internal/auth"
)

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(string) bool { return true }

func newTestRouter(t *testing.T) (*http.ServeMux, *fakeUserStore, *auth.TokenIssuer) {
	t.Helper()

	store := newFakeUserStore()
	issuer := auth.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 10*24*time.Hour)

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Auth: AuthHandler{
			Users:    store,
			Sessions: auth.NewSessionManager(issuer, store),
			Uploads:  &fakeUploader{},
			TempDir:  t.TempDir(),
		},
		Videos:        VideoHandler{Videos: newFakeVideoStore(), Users: store},
		Subscriptions: SubscriptionHandler{Subscriptions: newFakeSubscriptionStore(), Users: store},
		Health:        HealthHandler{},

		Verifier:         issuer,
		Profiles:         store,
		CredentialLimits: allowAllLimiter{},
	})

	return mux, store, issuer
}

func TestRouterHealthzIsUnauthenticated(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
}

func TestRouterProtectedRouteRejectsAnonymous(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if resp.Success || resp.StatusCode != http.StatusUnauthorized || resp.Errors == nil {
		t.Fatalf("unexpected error envelope: %+v", resp)
	}
}

func TestRouterProtectedRouteAcceptsBearerToken(t *testing.T) {
	mux, store, issuer := newTestRouter(t)
	user := seedUser(t, store, "alice", "alice@example.com", "password123")

	token, _, err := issuer.Access(user)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestRouterMethodMismatch(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/healthz", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

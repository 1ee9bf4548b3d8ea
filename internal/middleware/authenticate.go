package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

// AccessVerifier validates an access token's signature and expiry.
type AccessVerifier interface {
	VerifyAccess(token string) (auth.AccessClaims, error)
}

// ProfileStore loads a user without credential columns.
type ProfileStore interface {
	FindProfileByID(ctx context.Context, id string) (models.User, error)
}

// AccessTokenCookie is the cookie the session verifier reads before falling
// back to the Authorization header.
const AccessTokenCookie = "accessToken"

// Authenticate gates requests on a bearer credential. The cookie takes
// precedence over the Authorization header; a request carrying neither is
// rejected before any store access. On success the resolved user is attached
// to the request context for downstream handlers.
func Authenticate(verifier AccessVerifier, users ProfileStore, onReject http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			token := bearerToken(r)
			if token == "" {
				logger.Warn("request missing bearer credential", "path", r.URL.Path)
				onReject.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.VerifyAccess(token)
			if err != nil {
				logger.Warn("access token rejected", "path", r.URL.Path, "error", err)
				onReject.ServeHTTP(w, r)
				return
			}

			user, err := users.FindProfileByID(ctx, claims.Subject)
			if err != nil {
				logger.Warn("token subject no longer exists", "userId", claims.Subject)
				onReject.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(ctx, user)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}

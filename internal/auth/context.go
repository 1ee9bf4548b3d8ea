package auth

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

type ctxKey string

const userKey ctxKey = "authenticatedUser"

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user placed by the session
// verifier. The second return reports whether a user is present.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

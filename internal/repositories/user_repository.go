package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	// FindByID returns the full credential record, password hash and
	// refresh token included. Callers serving responses use FindProfileByID.
	FindByID(ctx context.Context, id string) (models.User, error)
	// FindProfileByID excludes the password and refresh-token columns.
	FindProfileByID(ctx context.Context, id string) (models.User, error)
	// FindByLogin matches the identifier against handle or email.
	FindByLogin(ctx context.Context, identifier string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	UpdateCover(ctx context.Context, id, coverURL string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetRefreshToken(ctx context.Context, userID, token string) error
	ReplaceRefreshToken(ctx context.Context, userID, current, next string) error
	RecordWatch(ctx context.Context, userID, videoID string) error
}

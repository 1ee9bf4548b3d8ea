package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

var (
	// ErrUnauthorized indicates the presented credential is missing,
	// invalid, expired, or already used.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound indicates the session's user record is absent.
	ErrUserNotFound = errors.New("user not found")
)

// CredentialStore is the slice of user persistence the session manager needs.
// At most one refresh token is valid per user at a time; ReplaceRefreshToken
// must only succeed when the stored value still equals the presented one, so
// concurrent rotations with a stale token lose.
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	ReplaceRefreshToken(ctx context.Context, userID, current, next string) error
}

// SessionManager manages the lifecycle of issued session tokens backed by the
// credential store.
type SessionManager struct {
	issuer *TokenIssuer
	users  CredentialStore
}

// NewSessionManager constructs a SessionManager from a token issuer and store.
func NewSessionManager(issuer *TokenIssuer, users CredentialStore) *SessionManager {
	if issuer == nil || users == nil {
		panic("auth: session manager dependencies must not be nil")
	}
	return &SessionManager{issuer: issuer, users: users}
}

// Issue creates a new pair of access and refresh tokens for the user and
// persists the refresh token with a single targeted write.
func (m *SessionManager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.SessionTokens{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return models.SessionTokens{}, fmt.Errorf("load user: %w", err)
	}

	tokens, err := m.mint(user)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.users.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return tokens, nil
}

// Rotate exchanges a presented refresh token for a fresh pair, invalidating
// the old one. Reuse of a superseded token fails with ErrUnauthorized: the
// store's conditional update only succeeds when the presented token is still
// the user's current one.
func (m *SessionManager) Rotate(ctx context.Context, presented string) (models.SessionTokens, error) {
	userID, err := m.issuer.VerifyRefresh(presented)
	if err != nil {
		return models.SessionTokens{}, ErrUnauthorized
	}

	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return models.SessionTokens{}, ErrUnauthorized
	}

	if user.RefreshToken != presented {
		return models.SessionTokens{}, fmt.Errorf("%w: refresh token is expired or used", ErrUnauthorized)
	}

	tokens, err := m.mint(user)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.users.ReplaceRefreshToken(ctx, user.ID, presented, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("%w: refresh token is expired or used", ErrUnauthorized)
	}

	return tokens, nil
}

// Revoke clears the user's stored refresh token, ending the session.
func (m *SessionManager) Revoke(ctx context.Context, userID string) error {
	if err := m.users.SetRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (m *SessionManager) mint(user models.User) (models.SessionTokens, error) {
	access, accessExp, err := m.issuer.Access(user)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, refreshExp, err := m.issuer.Refresh(user)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

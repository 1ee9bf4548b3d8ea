package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/models"
)

var (
	// ErrTokenInvalid indicates a token that is missing, malformed,
	// carries a bad signature, or has expired.
	ErrTokenInvalid = errors.New("invalid token")
)

// AccessClaims are embedded in short-lived access tokens so handlers can
// identify the caller without a database round trip.
type AccessClaims struct {
	Email    string `json:"email"`
	Handle   string `json:"handle"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies the signed, time-boxed tokens that make up
// a session. Access and refresh tokens are signed with separate secrets.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	now func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer from the configured secrets and TTLs.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	if accessSecret == "" || refreshSecret == "" {
		panic("auth: token secrets must not be empty")
	}
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// Access signs a short-lived token embedding the user's identity and
// profile claims.
func (t *TokenIssuer) Access(user models.User) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.accessTTL)
	claims := AccessClaims{
		Email:    user.Email,
		Handle:   user.Handle,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
	return signed, exp, err
}

// Refresh signs a long-lived token carrying only the user's identity. The jti
// claim makes every minted token distinct, even within the same second, so a
// rotated token never equals its replacement.
func (t *TokenIssuer) Refresh(user models.User) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.refreshTTL)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
	return signed, exp, err
}

// VerifyAccess validates the signature and expiry of an access token and
// returns its claims.
func (t *TokenIssuer) VerifyAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := t.verify(token, &claims, t.accessSecret); err != nil {
		return AccessClaims{}, err
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns the subject user id.
func (t *TokenIssuer) VerifyRefresh(token string) (string, error) {
	var claims jwt.RegisteredClaims
	if err := t.verify(token, &claims, t.refreshSecret); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

func (t *TokenIssuer) verify(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return ErrTokenInvalid
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.now() }))
	if err != nil || !parsed.Valid {
		return ErrTokenInvalid
	}

	return nil
}

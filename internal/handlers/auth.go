package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// AuthHandler implements the account and session endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	Views    ViewStore
	Uploads  Uploader
	TempDir  string
	NowFunc  func() time.Time
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register. Registration is a multipart
// form: profile fields plus a required avatar and an optional cover image,
// both staged locally and pushed to the blob store.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return apiErr(http.StatusBadRequest, "invalid multipart form")
	}

	fullName := strings.TrimSpace(r.FormValue("fullName"))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	handle := strings.TrimSpace(strings.ToLower(r.FormValue("handle")))
	password := r.FormValue("password")

	if fullName == "" || email == "" || handle == "" || password == "" {
		return apiErr(http.StatusBadRequest, "all fields are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apiErr(http.StatusBadRequest, "invalid email address")
	}
	if len(password) < 8 {
		return apiErr(http.StatusBadRequest, "password must be at least 8 characters")
	}

	avatarPath, err := formFileTemp(r, h.TempDir, "avatar")
	if err != nil {
		return err
	}
	if avatarPath == "" {
		return apiErr(http.StatusBadRequest, "avatar file is required")
	}

	coverPath, err := formFileTemp(r, h.TempDir, "coverImage")
	if err != nil {
		return err
	}

	avatarURL, err := h.Uploads.UploadFile(ctx, avatarPath, "avatars")
	if err != nil {
		return err
	}

	var coverURL string
	if coverPath != "" {
		if coverURL, err = h.Uploads.UploadFile(ctx, coverPath, "covers"); err != nil {
			return err
		}
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Handle:    handle,
		Email:     email,
		FullName:  fullName,
		AvatarURL: avatarURL,
		CoverURL:  coverURL,
		Password:  hashed,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return apiErr(http.StatusConflict, "user with email or handle already exists")
		}
		return err
	}

	user.Password = ""
	return respond(ctx, w, http.StatusCreated, user, "user registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}

	identifier := strings.TrimSpace(strings.ToLower(req.Handle))
	if identifier == "" {
		identifier = strings.TrimSpace(strings.ToLower(req.Email))
	}
	if identifier == "" || req.Password == "" {
		return apiErr(http.StatusBadRequest, "handle or email and password are required")
	}

	user, err := h.Users.FindByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apiErr(http.StatusNotFound, "user does not exist")
		}
		return err
	}

	if !auth.VerifyPassword(req.Password, user.Password) {
		logger.Warn("login password mismatch", "userId", user.ID)
		return apiErr(http.StatusUnauthorized, "invalid user credentials")
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	user.Password = ""
	user.RefreshToken = ""
	setSessionCookies(w, tokens)
	return respond(ctx, w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	if err := h.Sessions.Revoke(ctx, user.ID); err != nil {
		return err
	}

	clearSessionCookies(w)
	return respond(ctx, w, http.StatusOK, struct{}{}, "user logged out")
}

// Refresh handles POST /api/v1/users/refresh-token. The presented refresh
// token comes from the cookie or, for non-browser clients, the body.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	presented := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}
	if presented == "" {
		return apiErr(http.StatusUnauthorized, "unauthorized request")
	}

	tokens, err := h.Sessions.Rotate(ctx, presented)
	if err != nil {
		return err
	}

	setSessionCookies(w, tokens)
	return respond(ctx, w, http.StatusOK, tokens, "access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return apiErr(http.StatusBadRequest, "old and new passwords are required")
	}
	if len(req.NewPassword) < 8 {
		return apiErr(http.StatusBadRequest, "password must be at least 8 characters")
	}

	// The verifier's context user excludes the hash; fetch the full record.
	stored, err := h.Users.FindByID(ctx, user.ID)
	if err != nil {
		return err
	}

	if !auth.VerifyPassword(req.OldPassword, stored.Password) {
		return apiErr(http.StatusBadRequest, "invalid old password")
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	if err := h.Users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, struct{}{}, "password changed successfully")
}

// Me handles GET /api/v1/users/current-user.
func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	return respond(r.Context(), w, http.StatusOK, user, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h AuthHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if fullName == "" || email == "" {
		return apiErr(http.StatusBadRequest, "all fields are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apiErr(http.StatusBadRequest, "invalid email address")
	}

	updated, err := h.Users.UpdateAccount(ctx, user.ID, fullName, email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return apiErr(http.StatusConflict, "email already in use")
		}
		return err
	}

	return respond(ctx, w, http.StatusOK, updated, "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "avatar", "avatars", h.Users.UpdateAvatar, "avatar image updated successfully")
}

// UpdateCover handles PATCH /api/v1/users/cover-image.
func (h AuthHandler) UpdateCover(w http.ResponseWriter, r *http.Request) error {
	return h.updateImage(w, r, "coverImage", "covers", h.Users.UpdateCover, "cover image updated successfully")
}

// ChannelProfile handles GET /api/v1/users/c/{handle}: the aggregation-backed
// channel view with subscriber counts and the viewer's membership flag.
func (h AuthHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) error {
	viewer, err := currentUser(r)
	if err != nil {
		return err
	}

	handle := strings.TrimSpace(strings.ToLower(r.PathValue("handle")))
	if handle == "" {
		return apiErr(http.StatusBadRequest, "handle is missing")
	}

	ctx, span := logging.StartSpan(r.Context(), "channel_profile", slog.String("handle", handle))
	defer span.End()

	profile, err := h.Views.ChannelProfile(ctx, handle, viewer.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apiErr(http.StatusNotFound, "channel does not exist")
		}
		return err
	}

	return respond(ctx, w, http.StatusOK, profile, "user channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history: the user's ordered watch
// history hydrated with video records and owner projections.
func (h AuthHandler) WatchHistory(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	ctx, span := logging.StartSpan(r.Context(), "watch_history", slog.String("userId", user.ID))
	defer span.End()

	history, err := h.Views.WatchHistory(ctx, user.ID)
	if err != nil {
		return err
	}
	if history == nil {
		history = []models.WatchedVideo{}
	}

	return respond(ctx, w, http.StatusOK, history, "watch history fetched successfully")
}

func (h AuthHandler) updateImage(w http.ResponseWriter, r *http.Request, field, folder string, update func(ctx context.Context, id, url string) (models.User, error), message string) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return apiErr(http.StatusBadRequest, "invalid multipart form")
	}

	localPath, err := formFileTemp(r, h.TempDir, field)
	if err != nil {
		return err
	}
	if localPath == "" {
		return apiErr(http.StatusBadRequest, field+" file is missing")
	}

	url, err := h.Uploads.UploadFile(ctx, localPath, folder)
	if err != nil {
		return err
	}

	updated, err := update(ctx, user.ID, url)
	if err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, updated, message)
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// currentUser pulls the identity the session verifier attached to the context.
func currentUser(r *http.Request) (models.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return models.User{}, apiErr(http.StatusUnauthorized, "unauthorized request")
	}
	return user, nil
}

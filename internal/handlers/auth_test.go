package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email || existing.Handle == user.Handle {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindProfileByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	user.Password = ""
	user.RefreshToken = ""
	return user, nil
}

func (s *fakeUserStore) FindByLogin(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Handle == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) UpdateAccount(_ context.Context, id, fullName, email string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.FullName = fullName
	user.Email = email
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) UpdateAvatar(_ context.Context, id, avatarURL string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.AvatarURL = avatarURL
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) UpdateCover(_ context.Context, id, coverURL string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.CoverURL = coverURL
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = passwordHash
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) SetRefreshToken(_ context.Context, userID, token string) error {
	user, ok := s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) ReplaceRefreshToken(_ context.Context, userID, current, next string) error {
	user, ok := s.users[userID]
	if !ok || user.RefreshToken != current {
		return repositories.ErrConflict
	}
	user.RefreshToken = next
	s.users[userID] = user
	return nil
}

func (s *fakeUserStore) RecordWatch(_ context.Context, userID, videoID string) error {
	return nil
}

type fakeUploader struct {
	uploads []string
}

func (u *fakeUploader) UploadFile(_ context.Context, localPath, folder string) (string, error) {
	defer os.Remove(localPath)
	u.uploads = append(u.uploads, folder)
	return fmt.Sprintf("https://cdn.test/%s/%s", folder, uuid.NewString()), nil
}

func newAuthHandler(t *testing.T, store *fakeUserStore) AuthHandler {
	t.Helper()
	issuer := auth.NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 10*24*time.Hour)
	return AuthHandler{
		Users:    store,
		Sessions: auth.NewSessionManager(issuer, store),
		Uploads:  &fakeUploader{},
		TempDir:  t.TempDir(),
	}
}

func seedUser(t *testing.T, store *fakeUserStore, handle, email, password string) models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		ID:       uuid.NewString(),
		Handle:   handle,
		Email:    email,
		FullName: "Test User",
		Password: hash,
	}
	store.users[user.ID] = user
	return user
}

func registerForm(t *testing.T, fields map[string]string, withAvatar bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if withAvatar {
		part, err := writer.CreateFormFile("avatar", "avatar.png")
		if err != nil {
			t.Fatalf("create avatar part: %v", err)
		}
		if _, err := part.Write([]byte("fake-png-bytes")); err != nil {
			t.Fatalf("write avatar part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	return body, writer.FormDataContentType()
}

func TestAuthHandlerRegister(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)

	body, contentType := registerForm(t, map[string]string{
		"fullName": "Alice Example",
		"email":    "Alice@Example.com",
		"handle":   "Alice",
		"password": "supersafe1",
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handle(handler.Register).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp struct {
		StatusCode int         `json:"statusCode"`
		Data       models.User `json:"data"`
		Success    bool        `json:"success"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
	if resp.Data.Handle != "alice" || resp.Data.Email != "alice@example.com" {
		t.Fatalf("expected handle and email to be normalised, got %+v", resp.Data)
	}
	if resp.Data.AvatarURL == "" {
		t.Fatal("expected avatar url to be set")
	}

	stored, err := store.FindByLogin(context.Background(), "alice")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if stored.Password == "supersafe1" || stored.Password == "" {
		t.Fatal("stored password is not hashed")
	}
	if !auth.VerifyPassword("supersafe1", stored.Password) {
		t.Fatal("stored hash does not match the password")
	}
}

func TestAuthHandlerRegisterRejectsDuplicates(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)
	seedUser(t, store, "alice", "alice@example.com", "supersafe1")

	body, contentType := registerForm(t, map[string]string{
		"fullName": "Another Alice",
		"email":    "alice@example.com",
		"handle":   "alice2",
		"password": "supersafe1",
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handle(handler.Register).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, rec.Code)
	}
}

func TestAuthHandlerRegisterRequiresAvatar(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)

	body, contentType := registerForm(t, map[string]string{
		"fullName": "Alice Example",
		"email":    "alice@example.com",
		"handle":   "alice",
		"password": "supersafe1",
	}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handle(handler.Register).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)
	seedUser(t, store, "alice", "alice@example.com", "password123")

	body, err := json.Marshal(loginRequest{Email: "alice@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handle(handler.Login).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp struct {
		Data sessionResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.AccessToken == "" || resp.Data.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued, got %+v", resp.Data)
	}

	cookies := rec.Result().Cookies()
	var names []string
	for _, c := range cookies {
		names = append(names, c.Name)
		if !c.HttpOnly {
			t.Fatalf("expected cookie %s to be HttpOnly", c.Name)
		}
	}
	if len(names) != 2 {
		t.Fatalf("expected access and refresh cookies, got %v", names)
	}
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)
	seedUser(t, store, "alice", "alice@example.com", "password123")

	body, _ := json.Marshal(loginRequest{Handle: "alice", Password: "wrong-password"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handle(handler.Login).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthHandlerLoginUnknownUser(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)

	body, _ := json.Marshal(loginRequest{Handle: "ghost", Password: "password123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handle(handler.Login).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestAuthHandlerRefreshRotatesOnce(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)
	user := seedUser(t, store, "alice", "alice@example.com", "password123")

	first, err := handler.Sessions.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	// First rotation with the current token succeeds.
	body, _ := json.Marshal(refreshRequest{RefreshToken: first.RefreshToken})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handle(handler.Refresh).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var resp struct {
		Data models.SessionTokens `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.RefreshToken == "" || resp.Data.RefreshToken == first.RefreshToken {
		t.Fatal("expected a fresh refresh token")
	}

	// Replaying the superseded token is rejected.
	body, _ = json.Marshal(refreshRequest{RefreshToken: first.RefreshToken})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader(body))
	rec = httptest.NewRecorder()

	handle(handler.Refresh).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthHandlerRefreshReadsCookie(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)
	user := seedUser(t, store, "alice", "alice@example.com", "password123")

	tokens, err := handler.Sessions.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: refreshTokenCookie, Value: tokens.RefreshToken})
	rec := httptest.NewRecorder()

	handle(handler.Refresh).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestAuthHandlerRefreshWithoutToken(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()

	handle(handler.Refresh).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthHandlerChangePassword(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)
	user := seedUser(t, store, "alice", "alice@example.com", "password123")

	body, _ := json.Marshal(changePasswordRequest{OldPassword: "password123", NewPassword: "evensafer1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body))
	req = req.WithContext(auth.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	handle(handler.ChangePassword).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	stored := store.users[user.ID]
	if !auth.VerifyPassword("evensafer1", stored.Password) {
		t.Fatal("expected new password to be stored")
	}
}

func TestAuthHandlerChangePasswordWrongOld(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)
	user := seedUser(t, store, "alice", "alice@example.com", "password123")

	body, _ := json.Marshal(changePasswordRequest{OldPassword: "not-it", NewPassword: "evensafer1"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/change-password", bytes.NewReader(body))
	req = req.WithContext(auth.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	handle(handler.ChangePassword).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestAuthHandlerLogoutClearsSession(t *testing.T) {
	store := newFakeUserStore()
	handler := newAuthHandler(t, store)
	user := seedUser(t, store, "alice", "alice@example.com", "password123")

	if _, err := handler.Sessions.Issue(context.Background(), user.ID); err != nil {
		t.Fatalf("issue session: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req = req.WithContext(auth.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()

	handle(handler.Logout).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if stored := store.users[user.ID].RefreshToken; stored != "" {
		t.Fatalf("expected refresh token to be cleared, got %q", stored)
	}

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge != -1 {
			t.Fatalf("expected cookie %s to be expired", c.Name)
		}
	}
}

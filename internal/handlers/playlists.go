package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// PlaylistHandler manages playlists and their video membership.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore
	Views     ViewStore
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" || description == "" {
		return apiErr(http.StatusBadRequest, "name and description are required")
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     user.ID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusCreated, playlist, "playlist created successfully")
}

// ListByUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListByUser(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if _, err := currentUser(r); err != nil {
		return err
	}

	userID, err := pathID(r, "userId")
	if err != nil {
		return err
	}

	playlists, err := h.Playlists.ListByOwner(ctx, userID)
	if err != nil {
		return err
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}

	return respond(ctx, w, http.StatusOK, playlists, "playlists retrieved successfully")
}

// Get handles GET /api/v1/playlists/{id}: the hydrated composite view with
// owner projection and full video records.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) error {
	if _, err := currentUser(r); err != nil {
		return err
	}

	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	ctx, span := logging.StartSpan(r.Context(), "playlist_detail", slog.String("playlistId", id))
	defer span.End()

	detail, err := h.Views.PlaylistDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apiErr(http.StatusNotFound, "playlist not found")
		}
		return err
	}

	return respond(ctx, w, http.StatusOK, detail, "playlist retrieved successfully")
}

// AddVideo handles POST /api/v1/playlists/{id}/videos/{videoId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	playlist, err := h.ownedPlaylist(r)
	if err != nil {
		return err
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apiErr(http.StatusNotFound, "video not found")
		}
		return err
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return apiErr(http.StatusConflict, "video already exists in the playlist")
		}
		return err
	}

	return respond(ctx, w, http.StatusOK, struct{}{}, "video added to playlist successfully")
}

// RemoveVideo handles DELETE /api/v1/playlists/{id}/videos/{videoId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	playlist, err := h.ownedPlaylist(r)
	if err != nil {
		return err
	}

	videoID, err := pathID(r, "videoId")
	if err != nil {
		return err
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apiErr(http.StatusNotFound, "video not found in the playlist")
		}
		return err
	}

	return respond(ctx, w, http.StatusOK, struct{}{}, "video removed from playlist successfully")
}

// Update handles PATCH /api/v1/playlists/{id}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	playlist, err := h.ownedPlaylist(r)
	if err != nil {
		return err
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}

	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" {
		name = playlist.Name
	}
	if description == "" {
		description = playlist.Description
	}

	updated, err := h.Playlists.Update(ctx, playlist.ID, name, description)
	if err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, updated, "playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlists/{id}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	playlist, err := h.ownedPlaylist(r)
	if err != nil {
		return err
	}

	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, struct{}{}, "playlist deleted successfully")
}

func (h PlaylistHandler) ownedPlaylist(r *http.Request) (models.Playlist, error) {
	user, err := currentUser(r)
	if err != nil {
		return models.Playlist{}, err
	}

	id, err := pathID(r, "id")
	if err != nil {
		return models.Playlist{}, err
	}

	playlist, err := h.Playlists.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Playlist{}, apiErr(http.StatusNotFound, "playlist not found")
		}
		return models.Playlist{}, err
	}

	if playlist.OwnerID != user.ID {
		return models.Playlist{}, apiErr(http.StatusForbidden, "you do not own this playlist")
	}

	return playlist, nil
}

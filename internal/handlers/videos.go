package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// VideoHandler provides endpoints for publishing and browsing videos.
type VideoHandler struct {
	Videos  VideoStore
	Users   UserStore
	Uploads Uploader
	TempDir string
}

type videoDetailsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type videoListResponse struct {
	Videos     []models.Video `json:"videos"`
	Pagination pagination     `json:"pagination"`
}

type pagination struct {
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
}

// Publish handles POST /api/v1/videos: a multipart upload of the video file
// (required) and a thumbnail (optional), both pushed to the blob store before
// the record is created.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	owner, err := currentUser(r)
	if err != nil {
		return err
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return apiErr(http.StatusBadRequest, "invalid multipart form")
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		return apiErr(http.StatusBadRequest, "title is required")
	}
	if description == "" {
		return apiErr(http.StatusBadRequest, "description is required")
	}

	videoPath, err := formFileTemp(r, h.TempDir, "videoFile")
	if err != nil {
		return err
	}
	if videoPath == "" {
		return apiErr(http.StatusBadRequest, "video file is required")
	}

	thumbnailPath, err := formFileTemp(r, h.TempDir, "thumbnail")
	if err != nil {
		return err
	}

	videoURL, err := h.Uploads.UploadFile(ctx, videoPath, "videos")
	if err != nil {
		return err
	}

	var thumbnailURL string
	if thumbnailPath != "" {
		if thumbnailURL, err = h.Uploads.UploadFile(ctx, thumbnailPath, "thumbnails"); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      owner.ID,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Title:        title,
		Description:  description,
		Published:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusCreated, video, "video published successfully")
}

// List handles GET /api/v1/videos with pagination, text search, and sorting.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if _, err := currentUser(r); err != nil {
		return err
	}

	query := r.URL.Query()

	page, err := positiveInt(query.Get("page"), 1)
	if err != nil {
		return apiErr(http.StatusBadRequest, "invalid page number")
	}
	limit, err := positiveInt(query.Get("limit"), 10)
	if err != nil {
		return apiErr(http.StatusBadRequest, "invalid page size")
	}

	params := repositories.VideoListParams{
		Page:    page,
		Limit:   limit,
		Query:   strings.TrimSpace(query.Get("query")),
		SortBy:  query.Get("sortBy"),
		SortAsc: query.Get("sortType") == "asc",
		OwnerID: query.Get("userId"),
	}

	videos, total, err := h.Videos.List(ctx, params)
	if err != nil {
		return err
	}
	if videos == nil {
		videos = []models.Video{}
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	return respond(ctx, w, http.StatusOK, videoListResponse{
		Videos: videos,
		Pagination: pagination{
			TotalCount:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    limit,
		},
	}, "videos retrieved successfully")
}

// Get handles GET /api/v1/videos/{id}. Fetching a video records it in the
// viewer's watch history and bumps the view counter.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	viewer, err := currentUser(r)
	if err != nil {
		return err
	}

	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := h.Videos.IncrementViews(ctx, video.ID); err != nil {
		return err
	}
	video.Views++

	if err := h.Users.RecordWatch(ctx, viewer.ID, video.ID); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, video, "video retrieved successfully")
}

// UpdateDetails handles PATCH /api/v1/videos/{id}.
func (h VideoHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	video, err := h.ownedVideo(r)
	if err != nil {
		return err
	}

	var req videoDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		return apiErr(http.StatusBadRequest, "title and description are required")
	}

	updated, err := h.Videos.UpdateDetails(ctx, video.ID, title, description)
	if err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, updated, "video updated successfully")
}

// UpdateThumbnail handles PATCH /api/v1/videos/{id}/thumbnail.
func (h VideoHandler) UpdateThumbnail(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	video, err := h.ownedVideo(r)
	if err != nil {
		return err
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return apiErr(http.StatusBadRequest, "invalid multipart form")
	}

	localPath, err := formFileTemp(r, h.TempDir, "thumbnail")
	if err != nil {
		return err
	}
	if localPath == "" {
		return apiErr(http.StatusBadRequest, "thumbnail file is missing")
	}

	url, err := h.Uploads.UploadFile(ctx, localPath, "thumbnails")
	if err != nil {
		return err
	}

	updated, err := h.Videos.UpdateThumbnail(ctx, video.ID, url)
	if err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, updated, "thumbnail updated successfully")
}

// TogglePublish handles PATCH /api/v1/videos/{id}/toggle-publish.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	video, err := h.ownedVideo(r)
	if err != nil {
		return err
	}

	updated, err := h.Videos.SetPublished(ctx, video.ID, !video.Published)
	if err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, updated, "publish status toggled successfully")
}

// Delete handles DELETE /api/v1/videos/{id}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	video, err := h.ownedVideo(r)
	if err != nil {
		return err
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
}

// ownedVideo loads the video from the path and verifies the caller owns it.
func (h VideoHandler) ownedVideo(r *http.Request) (models.Video, error) {
	user, err := currentUser(r)
	if err != nil {
		return models.Video{}, err
	}

	id, err := pathID(r, "id")
	if err != nil {
		return models.Video{}, err
	}

	video, err := h.Videos.FindByID(r.Context(), id)
	if err != nil {
		return models.Video{}, err
	}

	if video.OwnerID != user.ID {
		return models.Video{}, apiErr(http.StatusForbidden, "you do not own this video")
	}

	return video, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apiErr(http.StatusBadRequest, "invalid numeric parameter")
	}
	return n, nil
}

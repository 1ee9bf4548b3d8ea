package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// CommentHandler manages comments on videos.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
}

type commentRequest struct {
	Content string `json:"content"`
}

type commentListResponse struct {
	Comments   []models.Comment `json:"comments"`
	Pagination pagination       `json:"pagination"`
}

// ListByVideo handles GET /api/v1/comments/v/{videoId}.
func (h CommentHandler) ListByVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if _, err := currentUser(r); err != nil {
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

	query := r.URL.Query()
	page, err := positiveInt(query.Get("page"), 1)
	if err != nil {
		return err
	}
	limit, err := positiveInt(query.Get("limit"), 10)
	if err != nil {
		return err
	}

	comments, total, err := h.Comments.ListByVideo(ctx, videoID, page, limit)
	if err != nil {
		return err
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}

	return respond(ctx, w, http.StatusOK, commentListResponse{
		Comments: comments,
		Pagination: pagination{
			TotalCount:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    limit,
		},
	}, "comments retrieved successfully")
}

// Add handles POST /api/v1/comments/v/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	user, err := currentUser(r)
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

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return apiErr(http.StatusBadRequest, "content is required")
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   user.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusCreated, comment, "comment added successfully")
}

// Update handles PATCH /api/v1/comments/{id}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	comment, err := h.ownedComment(r)
	if err != nil {
		return err
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return apiErr(http.StatusBadRequest, "content is required")
	}

	updated, err := h.Comments.Update(ctx, comment.ID, content)
	if err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, updated, "comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/{id}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	comment, err := h.ownedComment(r)
	if err != nil {
		return err
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, struct{}{}, "comment deleted successfully")
}

func (h CommentHandler) ownedComment(r *http.Request) (models.Comment, error) {
	user, err := currentUser(r)
	if err != nil {
		return models.Comment{}, err
	}

	id, err := pathID(r, "id")
	if err != nil {
		return models.Comment{}, err
	}

	comment, err := h.Comments.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Comment{}, apiErr(http.StatusNotFound, "comment not found")
		}
		return models.Comment{}, err
	}

	if comment.OwnerID != user.ID {
		return models.Comment{}, apiErr(http.StatusForbidden, "you do not own this comment")
	}

	return comment, nil
}

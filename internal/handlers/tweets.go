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

// TweetHandler manages short posts on a channel's feed.
type TweetHandler struct {
	Tweets TweetStore
}

type tweetRequest struct {
	Content string `json:"content"`
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return apiErr(http.StatusBadRequest, "content is required")
	}

	now := time.Now().UTC()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   user.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Tweets.Create(ctx, tweet); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusCreated, tweet, "tweet created successfully")
}

// ListByUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListByUser(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if _, err := currentUser(r); err != nil {
		return err
	}

	userID, err := pathID(r, "userId")
	if err != nil {
		return err
	}

	tweets, err := h.Tweets.ListByOwner(ctx, userID)
	if err != nil {
		return err
	}
	if tweets == nil {
		tweets = []models.Tweet{}
	}

	return respond(ctx, w, http.StatusOK, tweets, "tweets retrieved successfully")
}

// Update handles PATCH /api/v1/tweets/{id}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	tweet, err := h.ownedTweet(r)
	if err != nil {
		return err
	}

	var req tweetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apiErr(http.StatusBadRequest, "invalid request body")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return apiErr(http.StatusBadRequest, "content is required")
	}

	updated, err := h.Tweets.Update(ctx, tweet.ID, content)
	if err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, updated, "tweet updated successfully")
}

// Delete handles DELETE /api/v1/tweets/{id}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	tweet, err := h.ownedTweet(r)
	if err != nil {
		return err
	}

	if err := h.Tweets.Delete(ctx, tweet.ID); err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, struct{}{}, "tweet deleted successfully")
}

func (h TweetHandler) ownedTweet(r *http.Request) (models.Tweet, error) {
	user, err := currentUser(r)
	if err != nil {
		return models.Tweet{}, err
	}

	id, err := pathID(r, "id")
	if err != nil {
		return models.Tweet{}, err
	}

	tweet, err := h.Tweets.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Tweet{}, apiErr(http.StatusNotFound, "tweet not found")
		}
		return models.Tweet{}, err
	}

	if tweet.OwnerID != user.ID {
		return models.Tweet{}, apiErr(http.StatusForbidden, "you do not own this tweet")
	}

	return tweet, nil
}

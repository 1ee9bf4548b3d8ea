package handlers

import (
	"net/http"
	"time"

	"github.com/cliptube/backend/internal/models"
)

// LikeHandler toggles likes across videos, comments, and tweets.
type LikeHandler struct {
	Likes LikeStore
}

type toggleLikeResponse struct {
	Liked bool `json:"liked"`
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, models.LikeTargetVideo, "videoId")
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, models.LikeTargetComment, "commentId")
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, models.LikeTargetTweet, "tweetId")
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	videos, err := h.Likes.ListLikedVideos(ctx, user.ID)
	if err != nil {
		return err
	}
	if videos == nil {
		videos = []models.Video{}
	}

	return respond(ctx, w, http.StatusOK, videos, "liked videos retrieved successfully")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, target models.LikeTarget, param string) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	targetID, err := pathID(r, param)
	if err != nil {
		return err
	}

	liked, err := h.Likes.Toggle(ctx, models.Like{
		UserID:    user.ID,
		Target:    target,
		TargetID:  targetID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	message := "like removed successfully"
	if liked {
		message = "like added successfully"
	}

	return respond(ctx, w, http.StatusOK, toggleLikeResponse{Liked: liked}, message)
}

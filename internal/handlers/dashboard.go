package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// DashboardHandler serves channel analytics to the channel owner.
type DashboardHandler struct {
	Views     ViewStore
	VideoList VideoStore
}

// Stats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	ctx, span := logging.StartSpan(r.Context(), "channel_stats", slog.String("channelId", user.ID))
	defer span.End()

	stats, err := h.Views.ChannelStats(ctx, user.ID)
	if err != nil {
		return err
	}

	return respond(ctx, w, http.StatusOK, stats, "channel stats retrieved successfully")
}

// Videos handles GET /api/v1/dashboard/videos: every video on the caller's
// channel, published or not.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	page, err := positiveInt(r.URL.Query().Get("page"), 1)
	if err != nil {
		return err
	}
	limit, err := positiveInt(r.URL.Query().Get("limit"), 50)
	if err != nil {
		return err
	}

	videos, total, err := h.VideoList.List(ctx, repositories.VideoListParams{
		Page:               page,
		Limit:              limit,
		OwnerID:            user.ID,
		IncludeUnpublished: true,
	})
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
	}, "channel videos retrieved successfully")
}

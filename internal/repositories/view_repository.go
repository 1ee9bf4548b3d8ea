package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// ViewRepository answers the composite, join-heavy read queries that simple
// key lookups cannot express.
type ViewRepository interface {
	// ChannelProfile joins a channel to its subscription edges and reports
	// whether the viewer is among the channel's subscribers.
	ChannelProfile(ctx context.Context, handle, viewerID string) (models.ChannelProfile, error)
	// WatchHistory hydrates the user's ordered watch history with full
	// video records and reduced owner projections.
	WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
	// PlaylistDetail hydrates a playlist with its videos and owner.
	PlaylistDetail(ctx context.Context, playlistID string) (models.PlaylistDetail, error)
	// ChannelStats aggregates dashboard analytics for a channel.
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
}

package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// VideoListParams controls filtering, sorting, and pagination of video lists.
type VideoListParams struct {
	Page    int
	Limit   int
	Query   string
	SortBy  string
	SortAsc bool
	OwnerID string
	// IncludeUnpublished lifts the published-only filter for owner dashboards.
	IncludeUnpublished bool
}

// VideoRepository exposes data access for published videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, params VideoListParams) ([]models.Video, int64, error)
	UpdateDetails(ctx context.Context, id, title, description string) (models.Video, error)
	UpdateThumbnail(ctx context.Context, id, thumbnailURL string) (models.Video, error)
	SetPublished(ctx context.Context, id string, published bool) (models.Video, error)
	IncrementViews(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

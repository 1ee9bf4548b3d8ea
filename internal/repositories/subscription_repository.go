package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// SubscriptionRepository manages subscriber-to-channel edges.
type SubscriptionRepository interface {
	Exists(ctx context.Context, subscriberID, channelID string) (bool, error)
	Create(ctx context.Context, sub models.Subscription) error
	Delete(ctx context.Context, subscriberID, channelID string) error
	ListSubscribers(ctx context.Context, channelID string) ([]models.OwnerSummary, error)
	ListSubscribedChannels(ctx context.Context, subscriberID string) ([]models.OwnerSummary, error)
}

package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// SubscriptionHandler manages subscriber-to-channel edges.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
}

type toggleSubscriptionResponse struct {
	Subscribed bool `json:"subscribed"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}: subscribes the
// caller to the channel, or unsubscribes when the edge already exists.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	user, err := currentUser(r)
	if err != nil {
		return err
	}

	channelID, err := pathID(r, "channelId")
	if err != nil {
		return err
	}
	if channelID == user.ID {
		return apiErr(http.StatusBadRequest, "cannot subscribe to your own channel")
	}

	if _, err := h.Users.FindProfileByID(ctx, channelID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apiErr(http.StatusNotFound, "channel does not exist")
		}
		return err
	}

	exists, err := h.Subscriptions.Exists(ctx, user.ID, channelID)
	if err != nil {
		return err
	}

	if exists {
		if err := h.Subscriptions.Delete(ctx, user.ID, channelID); err != nil {
			return err
		}
		return respond(ctx, w, http.StatusOK, toggleSubscriptionResponse{Subscribed: false}, "unsubscribed successfully")
	}

	sub := models.Subscription{
		SubscriberID: user.ID,
		ChannelID:    channelID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Subscriptions.Create(ctx, sub); err != nil && !errors.Is(err, repositories.ErrConflict) {
		return err
	}

	return respond(ctx, w, http.StatusOK, toggleSubscriptionResponse{Subscribed: true}, "subscribed successfully")
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if _, err := currentUser(r); err != nil {
		return err
	}

	channelID, err := pathID(r, "channelId")
	if err != nil {
		return err
	}

	subscribers, err := h.Subscriptions.ListSubscribers(ctx, channelID)
	if err != nil {
		return err
	}
	if subscribers == nil {
		subscribers = []models.OwnerSummary{}
	}

	return respond(ctx, w, http.StatusOK, subscribers, "subscribers retrieved successfully")
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if _, err := currentUser(r); err != nil {
		return err
	}

	subscriberID, err := pathID(r, "subscriberId")
	if err != nil {
		return err
	}

	channels, err := h.Subscriptions.ListSubscribedChannels(ctx, subscriberID)
	if err != nil {
		return err
	}
	if channels == nil {
		channels = []models.OwnerSummary{}
	}

	return respond(ctx, w, http.StatusOK, channels, "subscribed channels retrieved successfully")
}

package handlers

import (
	"net/http"

	"github.com/cliptube/backend/internal/middleware"
)

// Dependencies carries the wired handlers and middleware collaborators that
// RegisterRoutes mounts onto the mux.
type Dependencies struct {
	Auth          AuthHandler
	Videos        VideoHandler
	Subscriptions SubscriptionHandler
	Playlists     PlaylistHandler
	Tweets        TweetHandler
	Comments      CommentHandler
	Likes         LikeHandler
	Dashboard     DashboardHandler
	Health        HealthHandler

	Verifier         middleware.AccessVerifier
	Profiles         middleware.ProfileStore
	CredentialLimits middleware.RateLimiter
}

// RegisterRoutes mounts every API endpoint. Authenticated routes share one
// Authenticate instance so the rejection envelope stays uniform, and the
// credential endpoints sit behind the per-IP rate limiter.
func RegisterRoutes(mux *http.ServeMux, d Dependencies) {
	authed := middleware.Authenticate(d.Verifier, d.Profiles, Unauthorized())
	limited := middleware.RateLimit(d.CredentialLimits, TooManyRequests())

	protect := func(fn handlerFunc) http.Handler {
		return authed(handle(fn))
	}

	mux.HandleFunc("GET /healthz", d.Health.Handle)

	// Account and session lifecycle.
	mux.Handle("POST /api/v1/users/register", limited(handle(d.Auth.Register)))
	mux.Handle("POST /api/v1/users/login", limited(handle(d.Auth.Login)))
	mux.Handle("POST /api/v1/users/refresh-token", handle(d.Auth.Refresh))
	mux.Handle("POST /api/v1/users/logout", protect(d.Auth.Logout))
	mux.Handle("POST /api/v1/users/change-password", protect(d.Auth.ChangePassword))
	mux.Handle("GET /api/v1/users/current-user", protect(d.Auth.Me))
	mux.Handle("PATCH /api/v1/users/update-account", protect(d.Auth.UpdateAccount))
	mux.Handle("PATCH /api/v1/users/avatar", protect(d.Auth.UpdateAvatar))
	mux.Handle("PATCH /api/v1/users/cover-image", protect(d.Auth.UpdateCover))
	mux.Handle("GET /api/v1/users/c/{handle}", protect(d.Auth.ChannelProfile))
	mux.Handle("GET /api/v1/users/history", protect(d.Auth.WatchHistory))

	// Video publishing.
	mux.Handle("GET /api/v1/videos", protect(d.Videos.List))
	mux.Handle("POST /api/v1/videos", protect(d.Videos.Publish))
	mux.Handle("GET /api/v1/videos/{id}", protect(d.Videos.Get))
	mux.Handle("PATCH /api/v1/videos/{id}", protect(d.Videos.UpdateDetails))
	mux.Handle("DELETE /api/v1/videos/{id}", protect(d.Videos.Delete))
	mux.Handle("PATCH /api/v1/videos/{id}/thumbnail", protect(d.Videos.UpdateThumbnail))
	mux.Handle("PATCH /api/v1/videos/{id}/toggle-publish", protect(d.Videos.TogglePublish))

	// Subscriptions.
	mux.Handle("POST /api/v1/subscriptions/c/{channelId}", protect(d.Subscriptions.Toggle))
	mux.Handle("GET /api/v1/subscriptions/c/{channelId}", protect(d.Subscriptions.Subscribers))
	mux.Handle("GET /api/v1/subscriptions/u/{subscriberId}", protect(d.Subscriptions.SubscribedChannels))

	// Playlists.
	mux.Handle("POST /api/v1/playlists", protect(d.Playlists.Create))
	mux.Handle("GET /api/v1/playlists/user/{userId}", protect(d.Playlists.ListByUser))
	mux.Handle("GET /api/v1/playlists/{id}", protect(d.Playlists.Get))
	mux.Handle("PATCH /api/v1/playlists/{id}", protect(d.Playlists.Update))
	mux.Handle("DELETE /api/v1/playlists/{id}", protect(d.Playlists.Delete))
	mux.Handle("POST /api/v1/playlists/{id}/videos/{videoId}", protect(d.Playlists.AddVideo))
	mux.Handle("DELETE /api/v1/playlists/{id}/videos/{videoId}", protect(d.Playlists.RemoveVideo))

	// Channel feed posts.
	mux.Handle("POST /api/v1/tweets", protect(d.Tweets.Create))
	mux.Handle("GET /api/v1/tweets/user/{userId}", protect(d.Tweets.ListByUser))
	mux.Handle("PATCH /api/v1/tweets/{id}", protect(d.Tweets.Update))
	mux.Handle("DELETE /api/v1/tweets/{id}", protect(d.Tweets.Delete))

	// Comments.
	mux.Handle("GET /api/v1/comments/v/{videoId}", protect(d.Comments.ListByVideo))
	mux.Handle("POST /api/v1/comments/v/{videoId}", protect(d.Comments.Add))
	mux.Handle("PATCH /api/v1/comments/{id}", protect(d.Comments.Update))
	mux.Handle("DELETE /api/v1/comments/{id}", protect(d.Comments.Delete))

	// Likes.
	mux.Handle("POST /api/v1/likes/toggle/v/{videoId}", protect(d.Likes.ToggleVideo))
	mux.Handle("POST /api/v1/likes/toggle/c/{commentId}", protect(d.Likes.ToggleComment))
	mux.Handle("POST /api/v1/likes/toggle/t/{tweetId}", protect(d.Likes.ToggleTweet))
	mux.Handle("GET /api/v1/likes/videos", protect(d.Likes.LikedVideos))

	// Owner dashboard.
	mux.Handle("GET /api/v1/dashboard/stats", protect(d.Dashboard.Stats))
	mux.Handle("GET /api/v1/dashboard/videos", protect(d.Dashboard.Videos))
}

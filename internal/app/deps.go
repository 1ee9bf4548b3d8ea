package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/handlers"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/repositories"
	"github.com/cliptube/backend/internal/storage"
)

// buildDependencies wires repositories, the session layer, and the blob store
// into the handler set mounted by handlers.RegisterRoutes.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	playlists := repositories.NewPostgresPlaylistRepository(pool)
	tweets := repositories.NewPostgresTweetRepository(pool)
	comments := repositories.NewPostgresCommentRepository(pool)
	likes := repositories.NewPostgresLikeRepository(pool)
	views := repositories.NewPostgresViewRepository(pool)

	issuer := auth.NewTokenIssuer(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	sessions := auth.NewSessionManager(issuer, users)

	uploads, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	// 10 credential attempts per minute per IP with a small burst.
	credentialLimits := middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute)

	return handlers.Dependencies{
		Auth: handlers.AuthHandler{
			Users:    users,
			Sessions: sessions,
			Views:    views,
			Uploads:  uploads,
			TempDir:  cfg.UploadTempDir,
		},
		Videos: handlers.VideoHandler{
			Videos:  videos,
			Users:   users,
			Uploads: uploads,
			TempDir: cfg.UploadTempDir,
		},
		Subscriptions: handlers.SubscriptionHandler{
			Subscriptions: subscriptions,
			Users:         users,
		},
		Playlists: handlers.PlaylistHandler{
			Playlists: playlists,
			Videos:    videos,
			Views:     views,
		},
		Tweets:   handlers.TweetHandler{Tweets: tweets},
		Comments: handlers.CommentHandler{Comments: comments, Videos: videos},
		Likes:    handlers.LikeHandler{Likes: likes},
		Dashboard: handlers.DashboardHandler{
			Views:     views,
			VideoList: videos,
		},
		Health: handlers.HealthHandler{},

		Verifier:         issuer,
		Profiles:         users,
		CredentialLimits: credentialLimits,
	}, nil
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresViewRepository composes the multi-collection joins behind the
// channel profile, watch history, playlist hydration, and dashboard views.
// Every join is a left-style outward lookup on a foreign key; counts and
// single-value extraction run over the joined sets, and final projections
// are allow-lists so no stored column leaks without being selected.
type PostgresViewRepository struct {
	pool db.Pool
}

// NewPostgresViewRepository constructs a view repository backed by PostgreSQL.
func NewPostgresViewRepository(pool db.Pool) *PostgresViewRepository {
	return &PostgresViewRepository{pool: pool}
}

// ChannelProfile matches the channel by handle, joins its inbound edges
// (subscribers) and outbound edges (subscribed-to) from the subscriptions
// collection, reduces both to cardinalities, and tests the viewer's
// membership among the subscriber edges.
func (r *PostgresViewRepository) ChannelProfile(ctx context.Context, handle, viewerID string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT u.id, u.handle, u.full_name, u.email, u.avatar_url, u.cover_url,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id)    AS subscriber_count,
               (SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
               EXISTS (
                   SELECT 1 FROM subscriptions s
                   WHERE s.channel_id = u.id AND s.subscriber_id = $2
               ) AS is_subscribed
        FROM users u
        WHERE u.handle = $1
    `, handle, viewerID)

	var profile models.ChannelProfile
	err = row.Scan(&profile.ID, &profile.Handle, &profile.FullName, &profile.Email,
		&profile.AvatarURL, &profile.CoverURL,
		&profile.SubscriberCount, &profile.SubscribedToCount, &profile.IsSubscribed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelProfile{}, ErrNotFound
		}
		return models.ChannelProfile{}, fmt.Errorf("select channel profile: %w", err)
	}

	return profile, nil
}

// WatchHistory joins the user's ordered watch-history entries to full video
// records, and each video's owner to a reduced profile projection collapsed
// to a single object per video.
func (r *PostgresViewRepository) WatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.video_url, v.thumbnail_url, v.title, v.description,
               v.duration, v.views, v.published, v.created_at, v.updated_at,
               COALESCE(o.full_name, ''), COALESCE(o.handle, ''), COALESCE(o.avatar_url, '')
        FROM watch_history wh
        JOIN videos v ON v.id = wh.video_id
        LEFT JOIN users o ON o.id = v.owner_id
        WHERE wh.user_id = $1
        ORDER BY wh.position
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var history []models.WatchedVideo
	for rows.Next() {
		var w models.WatchedVideo
		err := rows.Scan(&w.ID, &w.OwnerID, &w.VideoURL, &w.ThumbnailURL, &w.Title, &w.Description,
			&w.Duration, &w.Views, &w.Published, &w.CreatedAt, &w.UpdatedAt,
			&w.Owner.FullName, &w.Owner.Handle, &w.Owner.AvatarURL)
		if err != nil {
			return nil, fmt.Errorf("scan watch history entry: %w", err)
		}
		history = append(history, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return history, nil
}

// PlaylistDetail hydrates a playlist into one composite document: the
// playlist record, its owner's reduced projection, and its videos in
// playlist order.
func (r *PostgresViewRepository) PlaylistDetail(ctx context.Context, playlistID string) (models.PlaylistDetail, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT p.id, p.owner_id, p.name, p.description, p.created_at, p.updated_at,
               COALESCE(o.full_name, ''), COALESCE(o.handle, ''), COALESCE(o.avatar_url, '')
        FROM playlists p
        LEFT JOIN users o ON o.id = p.owner_id
        WHERE p.id = $1
    `, playlistID)

	var detail models.PlaylistDetail
	err = row.Scan(&detail.ID, &detail.OwnerID, &detail.Name, &detail.Description,
		&detail.CreatedAt, &detail.UpdatedAt,
		&detail.Owner.FullName, &detail.Owner.Handle, &detail.Owner.AvatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PlaylistDetail{}, ErrNotFound
		}
		return models.PlaylistDetail{}, fmt.Errorf("select playlist: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.video_url, v.thumbnail_url, v.title, v.description,
               v.duration, v.views, v.published, v.created_at, v.updated_at
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        WHERE pv.playlist_id = $1
        ORDER BY pv.position
    `, playlistID)
	if err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("query playlist videos: %w", err)
	}
	defer rows.Close()

	detail.Videos = []models.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return models.PlaylistDetail{}, err
		}
		detail.Videos = append(detail.Videos, video)
	}
	if err := rows.Err(); err != nil {
		return models.PlaylistDetail{}, fmt.Errorf("iterate playlist videos: %w", err)
	}

	return detail, nil
}

// ChannelStats aggregates video, view, subscriber, and like totals for a
// channel. Likes are counted across all of the channel's videos.
func (r *PostgresViewRepository) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT (SELECT COUNT(*) FROM videos v WHERE v.owner_id = $1),
               (SELECT COALESCE(SUM(v.views), 0) FROM videos v WHERE v.owner_id = $1),
               (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = $1),
               (SELECT COUNT(*)
                FROM likes l
                JOIN videos v ON v.id = l.target_id
                WHERE l.target = 'video' AND v.owner_id = $1)
    `, channelID)

	var stats models.ChannelStats
	if err := row.Scan(&stats.TotalVideos, &stats.TotalViews, &stats.TotalSubscribers, &stats.TotalLikes); err != nil {
		return models.ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}

	return stats, nil
}

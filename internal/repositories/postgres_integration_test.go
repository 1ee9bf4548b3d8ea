package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliptube/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE likes, playlist_videos, playlists, comments, tweets, watch_history, subscriptions, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, handle string) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{
		ID:        uuid.NewString(),
		Handle:    handle,
		Email:     handle + "@example.com",
		FullName:  "User " + handle,
		AvatarURL: "https://cdn.test/avatars/" + handle + ".png",
		Password:  "password-hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user %s: %v", handle, err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, published bool) models.Video {
	t.Helper()
	now := time.Now().UTC()
	video := models.Video{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		VideoURL:  "https://cdn.test/videos/" + title + ".mp4",
		Title:     title,
		Published: published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video %s: %v", title, err)
	}
	return video
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := user
	dup.ID = uuid.NewString()
	dup.Handle = "alice2"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	byHandle, err := repo.FindByLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("find by handle: %v", err)
	}
	byEmail, err := repo.FindByLogin(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byHandle.ID != user.ID || byEmail.ID != user.ID {
		t.Fatalf("login lookups resolved wrong users: %s vs %s", byHandle.ID, byEmail.ID)
	}
	if byHandle.Password != "password-hash" {
		t.Fatal("expected credential lookup to include the password hash")
	}

	profile, err := repo.FindProfileByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if profile.Password != "" || profile.RefreshToken != "" {
		t.Fatalf("expected profile projection to exclude credentials, got %+v", profile)
	}

	if err := repo.UpdatePassword(ctx, user.ID, "new-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	updated, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if updated.Password != "new-hash" {
		t.Fatalf("expected password hash to change, got %q", updated.Password)
	}

	if _, err := repo.FindByLogin(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown login, got %v", err)
	}
}

func TestPostgresUserRepository_RefreshTokenRotation(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	if err := repo.SetRefreshToken(ctx, user.ID, "token-1"); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}

	// The conditional swap succeeds only against the current value.
	if err := repo.ReplaceRefreshToken(ctx, user.ID, "token-1", "token-2"); err != nil {
		t.Fatalf("replace refresh token: %v", err)
	}
	if err := repo.ReplaceRefreshToken(ctx, user.ID, "token-1", "token-3"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict replacing a superseded token, got %v", err)
	}

	stored, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if stored.RefreshToken != "token-2" {
		t.Fatalf("expected token-2 to be stored, got %q", stored.RefreshToken)
	}

	// Clearing stores NULL, read back as the empty string.
	if err := repo.SetRefreshToken(ctx, user.ID, ""); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	stored, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Fatalf("expected cleared refresh token, got %q", stored.RefreshToken)
	}
}

func TestPostgresVideoRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)

	alice := createTestUser(t, users, "alice")
	bob := createTestUser(t, users, "bob")

	createTestVideo(t, videos, alice.ID, "cooking pasta", true)
	createTestVideo(t, videos, alice.ID, "cooking rice", true)
	createTestVideo(t, videos, alice.ID, "hidden draft", false)
	createTestVideo(t, videos, bob.ID, "travel vlog", true)

	published, total, err := videos.List(ctx, VideoListParams{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if total != 3 || len(published) != 3 {
		t.Fatalf("expected 3 published videos, got %d (total %d)", len(published), total)
	}

	matched, total, err := videos.List(ctx, VideoListParams{Page: 1, Limit: 10, Query: "cooking"})
	if err != nil {
		t.Fatalf("list by query: %v", err)
	}
	if total != 2 || len(matched) != 2 {
		t.Fatalf("expected 2 cooking videos, got %d (total %d)", len(matched), total)
	}

	owned, total, err := videos.List(ctx, VideoListParams{Page: 1, Limit: 10, OwnerID: alice.ID, IncludeUnpublished: true})
	if err != nil {
		t.Fatalf("list owner videos: %v", err)
	}
	if total != 3 || len(owned) != 3 {
		t.Fatalf("expected all 3 of alice's videos with drafts included, got %d (total %d)", len(owned), total)
	}

	titleAsc, _, err := videos.List(ctx, VideoListParams{Page: 1, Limit: 10, SortBy: "title", SortAsc: true})
	if err != nil {
		t.Fatalf("list sorted: %v", err)
	}
	for i := 1; i < len(titleAsc); i++ {
		if titleAsc[i-1].Title > titleAsc[i].Title {
			t.Fatalf("expected ascending title order, got %q before %q", titleAsc[i-1].Title, titleAsc[i].Title)
		}
	}

	paged, total, err := videos.List(ctx, VideoListParams{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list paged: %v", err)
	}
	if total != 3 || len(paged) != 1 {
		t.Fatalf("expected second page with 1 video, got %d (total %d)", len(paged), total)
	}
}

func TestPostgresViewRepository_ChannelProfile(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	subs := NewPostgresSubscriptionRepository(testPool)
	views := NewPostgresViewRepository(testPool)

	channel := createTestUser(t, users, "channel")
	fan := createTestUser(t, users, "fan")
	other := createTestUser(t, users, "other")

	for _, subscriber := range []models.User{fan, other} {
		err := subs.Create(ctx, models.Subscription{
			SubscriberID: subscriber.ID,
			ChannelID:    channel.ID,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("create subscription: %v", err)
		}
	}
	// The channel follows the fan back.
	err := subs.Create(ctx, models.Subscription{
		SubscriberID: channel.ID,
		ChannelID:    fan.ID,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create back subscription: %v", err)
	}

	profile, err := views.ChannelProfile(ctx, "channel", fan.ID)
	if err != nil {
		t.Fatalf("channel profile: %v", err)
	}
	if profile.SubscriberCount != 2 {
		t.Fatalf("expected 2 subscribers, got %d", profile.SubscriberCount)
	}
	if profile.SubscribedToCount != 1 {
		t.Fatalf("expected 1 subscribed-to channel, got %d", profile.SubscribedToCount)
	}
	if !profile.IsSubscribed {
		t.Fatal("expected fan's viewer flag to be set")
	}

	stranger := createTestUser(t, users, "stranger")
	profile, err = views.ChannelProfile(ctx, "channel", stranger.ID)
	if err != nil {
		t.Fatalf("channel profile for stranger: %v", err)
	}
	if profile.IsSubscribed {
		t.Fatal("expected stranger's viewer flag to be unset")
	}

	if _, err := views.ChannelProfile(ctx, "missing", fan.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown handle, got %v", err)
	}
}

func TestPostgresViewRepository_WatchHistoryOrder(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	views := NewPostgresViewRepository(testPool)

	owner := createTestUser(t, users, "owner")
	viewer := createTestUser(t, users, "viewer")

	first := createTestVideo(t, videos, owner.ID, "first", true)
	second := createTestVideo(t, videos, owner.ID, "second", true)
	third := createTestVideo(t, videos, owner.ID, "third", true)

	for _, v := range []models.Video{first, second, third} {
		if err := users.RecordWatch(ctx, viewer.ID, v.ID); err != nil {
			t.Fatalf("record watch %s: %v", v.Title, err)
		}
	}

	history, err := views.WatchHistory(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	if history[0].ID != first.ID || history[2].ID != third.ID {
		t.Fatalf("expected watch order first..third, got %s..%s", history[0].Title, history[2].Title)
	}
	if history[0].Owner.Handle != "owner" || history[0].Owner.FullName != "User owner" {
		t.Fatalf("expected owner projection on history entries, got %+v", history[0].Owner)
	}

	// Rewatching moves the entry to the end without duplicating it.
	if err := users.RecordWatch(ctx, viewer.ID, first.ID); err != nil {
		t.Fatalf("rewatch: %v", err)
	}
	history, err = views.WatchHistory(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("watch history after rewatch: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected rewatch not to duplicate, got %d entries", len(history))
	}
	if history[2].ID != first.ID {
		t.Fatalf("expected rewatched video at the end, got %s", history[2].Title)
	}
}

func TestPostgresViewRepository_PlaylistDetail(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	playlists := NewPostgresPlaylistRepository(testPool)
	views := NewPostgresViewRepository(testPool)

	owner := createTestUser(t, users, "owner")
	a := createTestVideo(t, videos, owner.ID, "episode-a", true)
	b := createTestVideo(t, videos, owner.ID, "episode-b", true)

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:        uuid.NewString(),
		OwnerID:   owner.ID,
		Name:      "Season 1",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if err := playlists.AddVideo(ctx, playlist.ID, b.ID); err != nil {
		t.Fatalf("add video b: %v", err)
	}
	if err := playlists.AddVideo(ctx, playlist.ID, a.ID); err != nil {
		t.Fatalf("add video a: %v", err)
	}
	if err := playlists.AddVideo(ctx, playlist.ID, a.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict adding a duplicate, got %v", err)
	}

	detail, err := views.PlaylistDetail(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("playlist detail: %v", err)
	}
	if detail.Owner.Handle != "owner" {
		t.Fatalf("expected owner projection, got %+v", detail.Owner)
	}
	if len(detail.Videos) != 2 || detail.Videos[0].ID != b.ID || detail.Videos[1].ID != a.ID {
		t.Fatalf("expected videos in insertion order b,a, got %+v", detail.Videos)
	}

	if err := playlists.RemoveVideo(ctx, playlist.ID, b.ID); err != nil {
		t.Fatalf("remove video: %v", err)
	}
	detail, err = views.PlaylistDetail(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("playlist detail after removal: %v", err)
	}
	if len(detail.Videos) != 1 || detail.Videos[0].ID != a.ID {
		t.Fatalf("expected only video a to remain, got %+v", detail.Videos)
	}

	empty := models.Playlist{ID: uuid.NewString(), OwnerID: owner.ID, Name: "Empty", CreatedAt: now, UpdatedAt: now}
	if err := playlists.Create(ctx, empty); err != nil {
		t.Fatalf("create empty playlist: %v", err)
	}
	detail, err = views.PlaylistDetail(ctx, empty.ID)
	if err != nil {
		t.Fatalf("empty playlist detail: %v", err)
	}
	if detail.Videos == nil || len(detail.Videos) != 0 {
		t.Fatalf("expected empty non-nil video list, got %#v", detail.Videos)
	}

	if _, err := views.PlaylistDetail(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing playlist, got %v", err)
	}
}

func TestPostgresLikeRepository_ToggleAndChannelStats(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	likes := NewPostgresLikeRepository(testPool)
	views := NewPostgresViewRepository(testPool)

	owner := createTestUser(t, users, "owner")
	fan := createTestUser(t, users, "fan")
	video := createTestVideo(t, videos, owner.ID, "popular", true)

	like := models.Like{UserID: fan.ID, Target: models.LikeTargetVideo, TargetID: video.ID, CreatedAt: time.Now().UTC()}

	liked, err := likes.Toggle(ctx, like)
	if err != nil {
		t.Fatalf("toggle like on: %v", err)
	}
	if !liked {
		t.Fatal("expected first toggle to add the like")
	}

	likedVideos, err := likes.ListLikedVideos(ctx, fan.ID)
	if err != nil {
		t.Fatalf("list liked videos: %v", err)
	}
	if len(likedVideos) != 1 || likedVideos[0].ID != video.ID {
		t.Fatalf("expected the liked video in the list, got %+v", likedVideos)
	}

	if err := videos.IncrementViews(ctx, video.ID); err != nil {
		t.Fatalf("increment views: %v", err)
	}

	stats, err := views.ChannelStats(ctx, owner.ID)
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}
	if stats.TotalVideos != 1 || stats.TotalViews != 1 || stats.TotalLikes != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	liked, err = likes.Toggle(ctx, like)
	if err != nil {
		t.Fatalf("toggle like off: %v", err)
	}
	if liked {
		t.Fatal("expected second toggle to remove the like")
	}

	stats, err = views.ChannelStats(ctx, owner.ID)
	if err != nil {
		t.Fatalf("channel stats after unlike: %v", err)
	}
	if stats.TotalLikes != 0 {
		t.Fatalf("expected like count to drop to 0, got %d", stats.TotalLikes)
	}
}

func TestPostgresCommentRepository_ListByVideoPagination(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	comments := NewPostgresCommentRepository(testPool)

	owner := createTestUser(t, users, "owner")
	video := createTestVideo(t, videos, owner.ID, "discussed", true)

	for i := 0; i < 5; i++ {
		now := time.Now().UTC()
		comment := models.Comment{
			ID:        uuid.NewString(),
			VideoID:   video.ID,
			OwnerID:   owner.ID,
			Content:   fmt.Sprintf("comment %d", i),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
			UpdatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := comments.Create(ctx, comment); err != nil {
			t.Fatalf("create comment %d: %v", i, err)
		}
	}

	page, total, err := comments.ListByVideo(ctx, video.ID, 1, 2)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5 comments, got %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2 comments, got %d", len(page))
	}

	last, total, err := comments.ListByVideo(ctx, video.ID, 3, 2)
	if err != nil {
		t.Fatalf("list last page: %v", err)
	}
	if total != 5 || len(last) != 1 {
		t.Fatalf("expected final page with 1 comment, got %d (total %d)", len(last), total)
	}
}

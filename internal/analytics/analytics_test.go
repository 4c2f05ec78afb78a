package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogstats/internal/cache"
	"blogstats/internal/database"
	"blogstats/internal/models"
	"blogstats/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "postgres://" + envOr("POSTGRES_USER", "blogstats") + ":" + envOr("POSTGRES_PASSWORD", "changeme") +
		"@" + envOr("POSTGRES_HOST", "localhost") + ":" + envOr("POSTGRES_PORT", "5432") +
		"/" + envOr("POSTGRES_DB", "blogstats") + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	require.NoError(t, database.Migrate(db))
	goose.SetBaseFS(nil)
	t.Cleanup(func() { db.Close() })
	return db
}

func newService(t *testing.T) (*Service, *store.CountingDB) {
	t.Helper()
	counting := store.NewCountingDB(testDB(t), 0)
	return NewService(counting, cache.New(cache.NewMemoryBackend()), DefaultTTLs()), counting
}

func TestDefaultTTLs(t *testing.T) {
	ttl := DefaultTTLs()
	assert.Equal(t, 15*time.Minute, ttl.Stats)
	assert.Equal(t, 15*time.Minute, ttl.Dashboard)
	assert.Equal(t, time.Hour, ttl.Popular)
	assert.Equal(t, 30*time.Minute, ttl.PostTotals)
	assert.Equal(t, 10*time.Minute, ttl.Rankings)
	assert.Equal(t, 5*time.Minute, ttl.Search)
}

func TestBlankSearchSkipsStoreAndCache(t *testing.T) {
	counting := store.NewCountingDB(nil, 0)
	backend := cache.NewMemoryBackend()
	s := NewService(counting, cache.New(backend), DefaultTTLs())
	ctx := context.Background()

	posts, err := s.Search(ctx, "  ", 20)
	require.NoError(t, err)
	assert.Empty(t, posts)

	all, err := s.SearchAll(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, all.Total())

	suggestions, err := s.Suggestions(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	assert.Zero(t, counting.Queries())
	assert.Zero(t, backend.Len())
}

func TestInvalidFilterIsNotCached(t *testing.T) {
	counting := store.NewCountingDB(nil, 0)
	backend := cache.NewMemoryBackend()
	s := NewService(counting, cache.New(backend), DefaultTTLs())

	_, err := s.MonthlySeries(context.Background(), 0)
	assert.ErrorIs(t, err, store.ErrInvalidFilter)
	_, err = s.EntityRanking(context.Background(), "media", 10, models.RankingModeAll)
	assert.ErrorIs(t, err, store.ErrInvalidFilter)
	assert.Zero(t, backend.Len())
}

func TestGlobalStatsServedFromCache(t *testing.T) {
	s, counting := newService(t)
	ctx := context.Background()

	first, err := s.GlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counting.Queries())

	second, err := s.GlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counting.Queries(), "second call must be a cache hit")
	assert.Equal(t, first, second)
}

func TestListingsKeyedByParameters(t *testing.T) {
	s, counting := newService(t)
	ctx := context.Background()

	published := store.PostQuery{Filter: store.PostFilter{Status: models.PostStatusPublished}, Limit: 5}
	drafts := store.PostQuery{Filter: store.PostFilter{Status: models.PostStatusDraft}, Limit: 5}

	_, err := s.ListPosts(ctx, published)
	require.NoError(t, err)
	afterFirst := counting.Queries()

	_, err = s.ListPosts(ctx, published)
	require.NoError(t, err)
	assert.Equal(t, afterFirst, counting.Queries())

	_, err = s.ListPosts(ctx, drafts)
	require.NoError(t, err)
	assert.Greater(t, counting.Queries(), afterFirst, "a different filter must miss the cache")
}

func TestDashboard(t *testing.T) {
	s, counting := newService(t)
	ctx := context.Background()

	d, err := s.Dashboard(ctx)
	require.NoError(t, err)
	require.NotNil(t, d.Stats)
	assert.LessOrEqual(t, len(d.RecentPosts), dashboardListSize)
	assert.LessOrEqual(t, len(d.PopularPosts), dashboardPopular)
	for _, p := range d.RecentPosts {
		_, err := p.User()
		assert.NoError(t, err)
	}
	for _, c := range d.RecentComments {
		_, err := c.Post()
		assert.NoError(t, err)
	}

	before := counting.Queries()
	again, err := s.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, counting.Queries())
	assert.True(t, d.GeneratedAt.Equal(again.GeneratedAt))
}

func TestPostDetailNotFound(t *testing.T) {
	s, _ := newService(t)
	_, err := s.PostDetail(context.Background(), -1)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestPopularPostsSortLikesFirst(t *testing.T) {
	keys, err := store.ParseSort(popularPostsSort)
	require.NoError(t, err)
	assert.Equal(t, []store.SortKey{store.Desc("likes_count"), store.Desc("views_count")}, keys)
}

func TestPopularPostsOrderedByLikesThenViews(t *testing.T) {
	db := testDB(t)
	s := NewService(db, cache.New(cache.NewMemoryBackend()), DefaultTTLs())
	ctx := context.Background()
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	user := models.User{Name: "Popular Author " + suffix, Email: "popular-" + suffix + "@example.com"}
	require.NoError(t, store.NewUserStore(db).Create(ctx, &user))
	category := models.Category{Name: "Popular Category " + suffix, UserID: user.ID, IsActive: true}
	require.NoError(t, store.NewCategoryStore(db).Create(ctx, &category))
	t.Cleanup(func() {
		db.Exec("DELETE FROM posts WHERE category_id = $1", category.ID)
		db.Exec("DELETE FROM categories WHERE id = $1", category.ID)
		db.Exec("DELETE FROM users WHERE id = $1", user.ID)
	})

	posts := store.NewPostStore(db)
	counters := []struct{ likes, views int }{
		{likes: 2_000_000_000, views: 1},
		{likes: 1_999_999_999, views: 2_000_000_000},
	}
	var ids []int64
	for i, c := range counters {
		p := models.Post{Title: fmt.Sprintf("Popular %s %d", suffix, i), Content: "body", UserID: user.ID, CategoryID: category.ID}
		require.NoError(t, posts.Create(ctx, &p))
		_, err := posts.Transition(ctx, p.ID, models.PostStatusPublished)
		require.NoError(t, err)
		_, err = db.Exec(`UPDATE posts SET likes_count = $2, views_count = $3 WHERE id = $1`, p.ID, c.likes, c.views)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	popular, err := s.PopularPosts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, ids, []int64{popular[0].ID, popular[1].ID}, "likes rank before views")
	for _, p := range popular {
		assert.True(t, p.Loaded(store.RelTags), "popular posts carry tags")
	}
}

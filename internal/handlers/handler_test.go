// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests:
// a scriptable fake of the analytics service and a PostgreSQL-backed
// environment that is skipped when the database is unavailable.
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	"blogstats/internal/analytics"
	"blogstats/internal/cache"
	"blogstats/internal/database"
	"blogstats/internal/models"
	"blogstats/internal/store"
)

// fakeAnalytics returns canned values and records the last arguments.
type fakeAnalytics struct {
	err error

	stats     *models.GlobalStats
	page      store.Page[store.PostResult]
	post      *store.PostResult
	posts     []store.PostResult
	thread    []models.CommentNode
	ranks     []models.EntityRank
	dashboard *analytics.Dashboard

	lastQuery  store.PostQuery
	lastKeys   []store.SortKey
	lastOffset *int
	lastLimit  int
	lastID     int64
	lastTerm   string
	lastMonths int
	lastKind   models.EntityKind
	lastMode   models.RankingMode
	calls      int
}

func (f *fakeAnalytics) GlobalStats(context.Context) (*models.GlobalStats, error) {
	f.calls++
	return f.stats, f.err
}

func (f *fakeAnalytics) PostTotals(context.Context) (*models.PostTotals, error) {
	f.calls++
	return &models.PostTotals{TotalPosts: 3}, f.err
}

func (f *fakeAnalytics) MonthlySeries(_ context.Context, months int) ([]models.MonthlyPoint, error) {
	f.calls++
	f.lastMonths = months
	return []models.MonthlyPoint{{Month: "2026-01"}}, f.err
}

func (f *fakeAnalytics) EntityRanking(_ context.Context, kind models.EntityKind, limit int, mode models.RankingMode) ([]models.EntityRank, error) {
	f.calls++
	f.lastKind, f.lastLimit, f.lastMode = kind, limit, mode
	return f.ranks, f.err
}

func (f *fakeAnalytics) ListPosts(_ context.Context, q store.PostQuery) (store.Page[store.PostResult], error) {
	f.calls++
	f.lastQuery = q
	return f.page, f.err
}

func (f *fakeAnalytics) RankPosts(_ context.Context, filter store.PostFilter, keys []store.SortKey, limit int, offset *int) (store.Page[store.PostResult], error) {
	f.calls++
	f.lastQuery = store.PostQuery{Filter: filter}
	f.lastKeys, f.lastLimit, f.lastOffset = keys, limit, offset
	return f.page, f.err
}

func (f *fakeAnalytics) PopularPosts(_ context.Context, limit int) ([]store.PostResult, error) {
	f.calls++
	f.lastLimit = limit
	return f.posts, f.err
}

func (f *fakeAnalytics) RecentPosts(_ context.Context, limit int) ([]store.PostResult, error) {
	f.calls++
	f.lastLimit = limit
	return f.posts, f.err
}

func (f *fakeAnalytics) PostDetail(_ context.Context, id int64) (*store.PostResult, error) {
	f.calls++
	f.lastID = id
	return f.post, f.err
}

func (f *fakeAnalytics) PostViewStats(_ context.Context, id int64) (*models.ViewStats, error) {
	f.calls++
	f.lastID = id
	return &models.ViewStats{PostID: id}, f.err
}

func (f *fakeAnalytics) CommentThread(_ context.Context, postID int64) ([]models.CommentNode, error) {
	f.calls++
	f.lastID = postID
	return f.thread, f.err
}

func (f *fakeAnalytics) Search(_ context.Context, term string, limit int) ([]store.PostResult, error) {
	f.calls++
	f.lastTerm, f.lastLimit = term, limit
	return f.posts, f.err
}

func (f *fakeAnalytics) SearchAll(_ context.Context, term string) (*store.SearchResults, error) {
	f.calls++
	f.lastTerm = term
	return &store.SearchResults{Term: term}, f.err
}

func (f *fakeAnalytics) Suggestions(_ context.Context, term string) ([]string, error) {
	f.calls++
	f.lastTerm = term
	return []string{"golang"}, f.err
}

func (f *fakeAnalytics) Dashboard(context.Context) (*analytics.Dashboard, error) {
	f.calls++
	return f.dashboard, f.err
}

// routes mounts the API on a bare chi router so URL parameters resolve.
func routes(api *API) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", api.Health)
	r.Get("/api/stats", api.Stats)
	r.Get("/api/stats/posts", api.PostTotals)
	r.Get("/api/stats/monthly", api.Monthly)
	r.Get("/api/rankings/{kind}", api.Rankings)
	r.Get("/api/dashboard", api.Dashboard)
	r.Get("/api/posts", api.ListPosts)
	r.Get("/api/posts/top", api.TopPosts)
	r.Get("/api/posts/popular", api.PopularPosts)
	r.Get("/api/posts/recent", api.RecentPosts)
	r.Get("/api/posts/{id}", api.PostDetail)
	r.Get("/api/posts/{id}/views", api.PostViews)
	r.Get("/api/posts/{id}/comments", api.PostComments)
	r.Get("/api/search", api.Search)
	r.Get("/api/search/all", api.SearchAll)
	r.Get("/api/search/suggestions", api.Suggestions)
	return r
}

// get performs a GET against h and returns the recorder.
func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

// decode unmarshals the recorder body into v.
func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "blogstats")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "blogstats")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testEnv wires the real service over PostgreSQL with an in-memory cache.
type testEnv struct {
	db      *sql.DB
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testDB(t)
	svc := analytics.NewService(db, cache.New(cache.NewMemoryBackend()), analytics.DefaultTTLs())
	return &testEnv{db: db, handler: routes(NewAPI(svc, db))}
}

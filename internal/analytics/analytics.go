// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package analytics is the read API consumed by the HTTP handlers. Each
// operation delegates to the store and memoizes the result in the cache
// under a fingerprint of its parameters, with a TTL chosen per operation.
// Cached values may be stale for up to their TTL; writes do not evict them.
package analytics

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"blogstats/internal/cache"
	"blogstats/internal/models"
	"blogstats/internal/store"
)

// TTLs holds the cache lifetime of each family of results.
type TTLs struct {
	Stats      time.Duration
	Dashboard  time.Duration
	Popular    time.Duration
	PostTotals time.Duration
	Rankings   time.Duration
	Listings   time.Duration
	Search     time.Duration
}

// DefaultTTLs returns the production cache lifetimes.
func DefaultTTLs() TTLs {
	return TTLs{
		Stats:      15 * time.Minute,
		Dashboard:  15 * time.Minute,
		Popular:    time.Hour,
		PostTotals: 30 * time.Minute,
		Rankings:   10 * time.Minute,
		Listings:   5 * time.Minute,
		Search:     5 * time.Minute,
	}
}

const (
	// RecentViewWindow is how far back PostViewStats counts recent views.
	RecentViewWindow = 7 * 24 * time.Hour

	dashboardListSize = 10
	dashboardPopular  = 5
	defaultHighlights = 10
	popularPostsSort  = "-likes_count,-views_count"
)

// listingRelations are attached to posts shown in lists.
var listingRelations = []store.Relation{store.RelUser, store.RelCategory}

// popularRelations adds tags to the standalone popular list.
var popularRelations = []store.Relation{store.RelUser, store.RelCategory, store.RelTags}

// detailRelations are attached to a single post page.
var detailRelations = []store.Relation{store.RelUser, store.RelCategory, store.RelTags, store.RelComments, store.RelCommentsUser}

// Service answers analytics queries through the cache.
type Service struct {
	cache    *cache.Cache
	ttl      TTLs
	posts    *store.PostStore
	comments *store.CommentStore
	stats    *store.StatsStore
	search   *store.SearchStore
	now      func() time.Time
}

// NewService wires the stores over db. A nil cache disables memoization.
func NewService(db store.DB, c *cache.Cache, ttl TTLs) *Service {
	return &Service{
		cache:    c,
		ttl:      ttl,
		posts:    store.NewPostStore(db),
		comments: store.NewCommentStore(db),
		stats:    store.NewStatsStore(db),
		search:   store.NewSearchStore(db),
		now:      time.Now,
	}
}

// cached fingerprints params under namespace and memoizes compute for ttl.
// A parameter set that cannot be fingerprinted bypasses the cache.
func cached[T any](ctx context.Context, s *Service, namespace string, params any, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	key, err := cache.Fingerprint(namespace, params)
	if err != nil {
		slog.Warn("cache key failed, computing directly", "namespace", namespace, "error", err)
		return compute(ctx)
	}
	return cache.GetOrCompute(ctx, s.cache, key, ttl, compute)
}

// GlobalStats returns site-wide totals.
func (s *Service) GlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	return cached(ctx, s, "stats:global", struct{}{}, s.ttl.Stats, s.stats.GlobalStats)
}

// PostTotals returns post counts and counter sums.
func (s *Service) PostTotals(ctx context.Context) (*models.PostTotals, error) {
	return cached(ctx, s, "stats:posts", struct{}{}, s.ttl.PostTotals, s.stats.PostTotals)
}

// MonthlySeries returns per-month activity for the last months months.
func (s *Service) MonthlySeries(ctx context.Context, months int) ([]models.MonthlyPoint, error) {
	params := struct {
		Months int    `json:"months"`
		Month  string `json:"month"`
	}{months, s.now().UTC().Format("2006-01")}
	return cached(ctx, s, "stats:monthly", params, s.ttl.Rankings, func(ctx context.Context) ([]models.MonthlyPoint, error) {
		return s.stats.MonthlySeries(ctx, months)
	})
}

// EntityRanking ranks categories, tags or users by post count.
func (s *Service) EntityRanking(ctx context.Context, kind models.EntityKind, limit int, mode models.RankingMode) ([]models.EntityRank, error) {
	params := struct {
		Kind  models.EntityKind  `json:"kind"`
		Limit int                `json:"limit"`
		Mode  models.RankingMode `json:"mode"`
	}{kind, limit, mode}
	return cached(ctx, s, "rankings:entity", params, s.ttl.Rankings, func(ctx context.Context) ([]models.EntityRank, error) {
		return s.stats.EntityRanking(ctx, kind, limit, mode)
	})
}

// ListPosts returns one page of a post listing.
func (s *Service) ListPosts(ctx context.Context, q store.PostQuery) (store.Page[store.PostResult], error) {
	return cached(ctx, s, "posts:list", q, s.ttl.Listings, func(ctx context.Context) (store.Page[store.PostResult], error) {
		return s.posts.Fetch(ctx, q)
	})
}

// RankPosts returns posts ordered by keys; a nil offset selects top-K mode.
func (s *Service) RankPosts(ctx context.Context, filter store.PostFilter, keys []store.SortKey, limit int, offset *int) (store.Page[store.PostResult], error) {
	params := struct {
		Filter store.PostFilter `json:"filter"`
		Keys   []store.SortKey  `json:"keys"`
		Limit  int              `json:"limit"`
		Offset *int             `json:"offset"`
	}{filter, keys, limit, offset}
	return cached(ctx, s, "posts:rank", params, s.ttl.Rankings, func(ctx context.Context) (store.Page[store.PostResult], error) {
		return s.posts.Rank(ctx, filter, keys, limit, offset)
	})
}

// PopularPosts returns the most liked published posts, ties broken by
// views, with author, category and tags.
func (s *Service) PopularPosts(ctx context.Context, limit int) ([]store.PostResult, error) {
	if limit == 0 {
		limit = defaultHighlights
	}
	return cached(ctx, s, "posts:popular", limit, s.ttl.Popular, func(ctx context.Context) ([]store.PostResult, error) {
		return s.popular(ctx, limit, popularRelations)
	})
}

func (s *Service) popular(ctx context.Context, limit int, relations []store.Relation) ([]store.PostResult, error) {
	keys, err := store.ParseSort(popularPostsSort)
	if err != nil {
		return nil, err
	}
	page, err := s.posts.Fetch(ctx, store.PostQuery{
		Filter:    store.PostFilter{Status: models.PostStatusPublished},
		Sort:      keys,
		Relations: relations,
		Limit:     limit,
	})
	return page.Items, err
}

// RecentPosts returns the newest published posts with author and category.
func (s *Service) RecentPosts(ctx context.Context, limit int) ([]store.PostResult, error) {
	if limit == 0 {
		limit = defaultHighlights
	}
	return cached(ctx, s, "posts:recent", limit, s.ttl.Listings, func(ctx context.Context) ([]store.PostResult, error) {
		return s.recent(ctx, limit)
	})
}

func (s *Service) recent(ctx context.Context, limit int) ([]store.PostResult, error) {
	page, err := s.posts.Fetch(ctx, store.PostQuery{
		Filter:    store.PostFilter{Status: models.PostStatusPublished},
		Sort:      store.DefaultPostSort,
		Relations: listingRelations,
		Limit:     limit,
	})
	return page.Items, err
}

// PostDetail returns one post with author, category, tags and its latest
// approved comments with their authors.
func (s *Service) PostDetail(ctx context.Context, id int64) (*store.PostResult, error) {
	return cached(ctx, s, "posts:detail", id, s.ttl.Listings, func(ctx context.Context) (*store.PostResult, error) {
		return s.posts.FindByID(ctx, id, detailRelations...)
	})
}

// PostViewStats returns view counts for one post. The recent window is
// anchored to the hour so the result can be cached.
func (s *Service) PostViewStats(ctx context.Context, id int64) (*models.ViewStats, error) {
	since := s.now().UTC().Truncate(time.Hour).Add(-RecentViewWindow)
	params := struct {
		ID    int64     `json:"id"`
		Since time.Time `json:"since"`
	}{id, since}
	return cached(ctx, s, "posts:views", params, s.ttl.Listings, func(ctx context.Context) (*models.ViewStats, error) {
		return s.stats.PostViewStats(ctx, id, since)
	})
}

// CommentThread returns the approved comment tree of a post.
func (s *Service) CommentThread(ctx context.Context, postID int64) ([]models.CommentNode, error) {
	return cached(ctx, s, "comments:thread", postID, s.ttl.Listings, func(ctx context.Context) ([]models.CommentNode, error) {
		return s.comments.Thread(ctx, postID, 0)
	})
}

// Search runs a full-text post search.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]store.PostResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.search.Search(ctx, term, limit)
	}
	params := struct {
		Term  string `json:"term"`
		Limit int    `json:"limit"`
	}{term, limit}
	return cached(ctx, s, "search:posts", params, s.ttl.Search, func(ctx context.Context) ([]store.PostResult, error) {
		return s.search.Search(ctx, term, limit)
	})
}

// SearchAll searches posts, categories, tags and users.
func (s *Service) SearchAll(ctx context.Context, term string) (*store.SearchResults, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.search.SearchAll(ctx, term)
	}
	return cached(ctx, s, "search:all", term, s.ttl.Search, func(ctx context.Context) (*store.SearchResults, error) {
		return s.search.SearchAll(ctx, term)
	})
}

// Suggestions returns autocomplete candidates for term.
func (s *Service) Suggestions(ctx context.Context, term string) ([]string, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < store.MinSuggestionLength {
		return s.search.Suggestions(ctx, term)
	}
	return cached(ctx, s, "search:suggestions", strings.ToLower(term), s.ttl.Search, func(ctx context.Context) ([]string, error) {
		return s.search.Suggestions(ctx, term)
	})
}

// Dashboard is the composite overview page.
type Dashboard struct {
	Stats          *models.GlobalStats   `json:"stats"`
	RecentPosts    []store.PostResult    `json:"recent_posts"`
	RecentComments []store.CommentResult `json:"recent_comments"`
	PopularPosts   []store.PostResult    `json:"popular_posts"`
	TopCategories  []models.EntityRank   `json:"top_categories"`
	TopTags        []models.EntityRank   `json:"top_tags"`
	TopUsers       []models.EntityRank   `json:"top_users"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// Dashboard gathers the overview in parallel and caches it as one value.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	return cached(ctx, s, "dashboard", struct{}{}, s.ttl.Dashboard, s.buildDashboard)
}

func (s *Service) buildDashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{GeneratedAt: s.now().UTC()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		d.Stats, err = s.stats.GlobalStats(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.RecentPosts, err = s.recent(ctx, dashboardListSize)
		return err
	})
	g.Go(func() error {
		page, err := s.comments.Fetch(ctx, store.CommentQuery{
			Sort:      store.DefaultCommentSort,
			Relations: []store.Relation{store.RelUser, store.RelPost},
			Fields:    store.Fields{"post": {"id", "title", "slug"}},
			Limit:     dashboardListSize,
		})
		d.RecentComments = page.Items
		return err
	})
	g.Go(func() (err error) {
		d.PopularPosts, err = s.popular(ctx, dashboardPopular, listingRelations)
		return err
	})
	g.Go(func() (err error) {
		d.TopCategories, err = s.stats.EntityRanking(ctx, models.EntityCategory, dashboardListSize, models.RankingModeTopK)
		return err
	})
	g.Go(func() (err error) {
		d.TopTags, err = s.stats.EntityRanking(ctx, models.EntityTag, dashboardListSize, models.RankingModeTopK)
		return err
	})
	g.Go(func() (err error) {
		d.TopUsers, err = s.stats.EntityRanking(ctx, models.EntityUser, dashboardListSize, models.RankingModeTopK)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

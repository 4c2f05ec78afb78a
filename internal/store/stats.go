// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blogstats/internal/models"
)

// MaxMonths bounds MonthlySeries.
const MaxMonths = 120

// StatsStore computes aggregate counts with grouped and conditional
// aggregation, one statement per operation.
type StatsStore struct {
	db  Querier
	now func() time.Time
}

// NewStatsStore creates a new StatsStore.
func NewStatsStore(db Querier) *StatsStore {
	return &StatsStore{db: db, now: time.Now}
}

// GlobalStats returns site-wide totals and status breakdowns in one query.
func (s *StatsStore) GlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	var g models.GlobalStats
	err := s.db.QueryRowContext(ctx, `
		WITH p AS (
			SELECT
				COUNT(*) AS total,
				COUNT(*) FILTER (WHERE status = 'published') AS published,
				COUNT(*) FILTER (WHERE status = 'draft') AS draft,
				COUNT(*) FILTER (WHERE status = 'archived') AS archived
			FROM posts
		), c AS (
			SELECT
				COUNT(*) AS total,
				COUNT(*) FILTER (WHERE status = 'approved') AS approved,
				COUNT(*) FILTER (WHERE status = 'pending') AS pending,
				COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
			FROM comments
		)
		SELECT
			p.total, p.published, p.draft, p.archived,
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM tags),
			c.total, c.approved, c.pending, c.rejected,
			(SELECT COUNT(*) FROM likes),
			(SELECT COUNT(*) FROM views)
		FROM p, c`,
	).Scan(
		&g.TotalPosts, &g.PublishedPosts, &g.DraftPosts, &g.ArchivedPosts,
		&g.TotalUsers, &g.TotalCategories, &g.TotalTags,
		&g.TotalComments, &g.ApprovedComments, &g.PendingComments, &g.RejectedComments,
		&g.TotalLikes, &g.TotalViews,
	)
	if err != nil {
		return nil, wrapErr("global stats", err)
	}
	return &g, nil
}

// PostTotals returns post counts by status and the sums of the
// denormalized counters in one query.
func (s *StatsStore) PostTotals(ctx context.Context) (*models.PostTotals, error) {
	var t models.PostTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'published'),
			COUNT(*) FILTER (WHERE status = 'draft'),
			COUNT(*) FILTER (WHERE status = 'archived'),
			COALESCE(SUM(views_count), 0)::bigint,
			COALESCE(SUM(likes_count), 0)::bigint,
			COALESCE(SUM(comments_count), 0)::bigint
		FROM posts`,
	).Scan(&t.TotalPosts, &t.PublishedPosts, &t.DraftPosts, &t.ArchivedPosts,
		&t.TotalViews, &t.TotalLikes, &t.TotalComments)
	if err != nil {
		return nil, wrapErr("post totals", err)
	}
	return &t, nil
}

// monthStart truncates t to the first instant of its UTC month.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlySeries returns per-month counts of new posts, comments, likes
// and views for the last monthsBack calendar months including the
// current one, oldest first. Months without facts are reported as zero.
func (s *StatsStore) MonthlySeries(ctx context.Context, monthsBack int) ([]models.MonthlyPoint, error) {
	if monthsBack < 1 || monthsBack > MaxMonths {
		return nil, invalidf("months must be between 1 and %d, got %d", MaxMonths, monthsBack)
	}
	start := monthStart(s.now()).AddDate(0, -(monthsBack - 1), 0)

	points := make([]models.MonthlyPoint, monthsBack)
	index := make(map[string]int, monthsBack)
	for i := range points {
		month := start.AddDate(0, i, 0).Format("2006-01")
		points[i].Month = month
		index[month] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT 'posts', date_trunc('month', created_at, 'UTC'), COUNT(*)::bigint
		FROM posts WHERE created_at >= $1 GROUP BY 2
		UNION ALL
		SELECT 'comments', date_trunc('month', created_at, 'UTC'), COUNT(*)::bigint
		FROM comments WHERE created_at >= $1 GROUP BY 2
		UNION ALL
		SELECT 'likes', date_trunc('month', created_at, 'UTC'), COUNT(*)::bigint
		FROM likes WHERE created_at >= $1 GROUP BY 2
		UNION ALL
		SELECT 'views', date_trunc('month', viewed_at, 'UTC'), COUNT(*)::bigint
		FROM views WHERE viewed_at >= $1 GROUP BY 2`,
		start)
	if err != nil {
		return nil, wrapErr("monthly series", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind  string
			month time.Time
			n     int64
		)
		if err := rows.Scan(&kind, &month, &n); err != nil {
			return nil, wrapErr("scan monthly series", err)
		}
		i, ok := index[month.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		switch kind {
		case "posts":
			points[i].Posts = n
		case "comments":
			points[i].Comments = n
		case "likes":
			points[i].Likes = n
		case "views":
			points[i].Views = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("monthly series", err)
	}
	return points, nil
}

// EntityRanking ranks categories, tags or users by their post counts
// with a single join and group. RankingModeAll includes entities without
// posts as zero; RankingModeTopK omits them. Ties break by id ascending.
func (s *StatsStore) EntityRanking(ctx context.Context, kind models.EntityKind, limit int, mode models.RankingMode) ([]models.EntityRank, error) {
	if !kind.Valid() {
		return nil, invalidf("unknown entity kind %q", kind)
	}
	if !mode.Valid() {
		return nil, invalidf("unknown ranking mode %q", mode)
	}
	limit, err := normalizeLimit(limit, DefaultLimit, MaxLimit)
	if err != nil {
		return nil, err
	}

	join := "LEFT JOIN"
	if mode == models.RankingModeTopK {
		join = "JOIN"
	}

	var query string
	switch kind {
	case models.EntityCategory:
		query = fmt.Sprintf(`
			SELECT c.id, c.name, c.slug,
				COUNT(p.id),
				COALESCE(SUM(p.views_count), 0)::bigint,
				COALESCE(SUM(p.likes_count), 0)::bigint
			FROM categories c
			%s posts p ON p.category_id = c.id
			GROUP BY c.id
			ORDER BY 4 DESC, c.id ASC
			LIMIT $1`, join)
	case models.EntityTag:
		query = fmt.Sprintf(`
			SELECT t.id, t.name, t.slug, COUNT(pt.post_id)
			FROM tags t
			%s post_tag pt ON pt.tag_id = t.id
			GROUP BY t.id
			ORDER BY 4 DESC, t.id ASC
			LIMIT $1`, join)
	case models.EntityUser:
		query = fmt.Sprintf(`
			SELECT u.id, u.name,
				COALESCE(p.n, 0), COALESCE(c.n, 0), COALESCE(l.n, 0),
				COALESCE(p.n, 0) + COALESCE(c.n, 0) + COALESCE(l.n, 0)
			FROM users u
			%s (SELECT user_id, COUNT(*) AS n FROM posts GROUP BY user_id) p ON p.user_id = u.id
			LEFT JOIN (SELECT user_id, COUNT(*) AS n FROM comments GROUP BY user_id) c ON c.user_id = u.id
			LEFT JOIN (SELECT user_id, COUNT(*) AS n FROM likes GROUP BY user_id) l ON l.user_id = u.id
			ORDER BY 3 DESC, 6 DESC, u.id ASC
			LIMIT $1`, join)
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, wrapErr("entity ranking", err)
	}
	defer rows.Close()

	out := make([]models.EntityRank, 0, limit)
	for rows.Next() {
		r := models.EntityRank{Kind: kind}
		switch kind {
		case models.EntityCategory:
			err = rows.Scan(&r.ID, &r.Name, &r.Slug, &r.PostsCount, &r.TotalViews, &r.TotalLikes)
		case models.EntityTag:
			err = rows.Scan(&r.ID, &r.Name, &r.Slug, &r.PostsCount)
		case models.EntityUser:
			err = rows.Scan(&r.ID, &r.Name, &r.PostsCount, &r.CommentsCount, &r.LikesCount, &r.TotalActivity)
		}
		if err != nil {
			return nil, wrapErr("scan entity ranking", err)
		}
		out = append(out, r)
	}
	return out, wrapErr("entity ranking", rows.Err())
}

// PostViewStats returns total, unique (distinct IP) and recent views of
// one post, counting views at or after since as recent.
func (s *StatsStore) PostViewStats(ctx context.Context, postID int64, since time.Time) (*models.ViewStats, error) {
	vs := models.ViewStats{PostID: postID}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(v.id),
			COUNT(DISTINCT v.ip_address),
			COUNT(v.id) FILTER (WHERE v.viewed_at >= $2)
		FROM posts p
		LEFT JOIN views v ON v.post_id = p.id
		WHERE p.id = $1
		GROUP BY p.id`,
		postID, since,
	).Scan(&vs.TotalViews, &vs.UniqueViews, &vs.RecentViews)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("post view stats", err)
	}
	return &vs, nil
}

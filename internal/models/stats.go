// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// GlobalStats holds site-wide totals and status breakdowns.
type GlobalStats struct {
	TotalPosts      int64 `json:"total_posts"`
	TotalUsers      int64 `json:"total_users"`
	TotalCategories int64 `json:"total_categories"`
	TotalTags       int64 `json:"total_tags"`
	TotalComments   int64 `json:"total_comments"`
	TotalLikes      int64 `json:"total_likes"`
	TotalViews      int64 `json:"total_views"`

	PublishedPosts   int64 `json:"published_posts"`
	DraftPosts       int64 `json:"draft_posts"`
	ArchivedPosts    int64 `json:"archived_posts"`
	ApprovedComments int64 `json:"approved_comments"`
	PendingComments  int64 `json:"pending_comments"`
	RejectedComments int64 `json:"rejected_comments"`
}

// PostsByStatus returns the post breakdown keyed by status.
func (s *GlobalStats) PostsByStatus() map[PostStatus]int64 {
	return map[PostStatus]int64{
		PostStatusDraft:     s.DraftPosts,
		PostStatusPublished: s.PublishedPosts,
		PostStatusArchived:  s.ArchivedPosts,
	}
}

// CommentsByStatus returns the comment breakdown keyed by status.
func (s *GlobalStats) CommentsByStatus() map[CommentStatus]int64 {
	return map[CommentStatus]int64{
		CommentStatusPending:  s.PendingComments,
		CommentStatusApproved: s.ApprovedComments,
		CommentStatusRejected: s.RejectedComments,
	}
}

// PostTotals aggregates the posts table and its denormalized counters.
type PostTotals struct {
	TotalPosts     int64 `json:"total_posts"`
	PublishedPosts int64 `json:"published_posts"`
	DraftPosts     int64 `json:"draft_posts"`
	ArchivedPosts  int64 `json:"archived_posts"`
	TotalViews     int64 `json:"total_views"`
	TotalLikes     int64 `json:"total_likes"`
	TotalComments  int64 `json:"total_comments"`
}

// MonthlyPoint is one calendar month of activity. Month is formatted as
// "2006-01" in UTC.
type MonthlyPoint struct {
	Month    string `json:"month"`
	Posts    int64  `json:"posts"`
	Comments int64  `json:"comments"`
	Likes    int64  `json:"likes"`
	Views    int64  `json:"views"`
}

// EntityKind names an entity that can be ranked by its activity.
type EntityKind string

const (
	EntityCategory EntityKind = "category"
	EntityTag      EntityKind = "tag"
	EntityUser     EntityKind = "user"
)

// Valid reports whether k is a rankable entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityCategory, EntityTag, EntityUser:
		return true
	}
	return false
}

// RankingMode selects whether entities without activity are included.
type RankingMode string

const (
	// RankingModeAll lists every entity, reporting zero counts as 0.
	RankingModeAll RankingMode = "all"
	// RankingModeTopK lists only entities with at least one post.
	RankingModeTopK RankingMode = "top"
)

// Valid reports whether m is a known ranking mode.
func (m RankingMode) Valid() bool {
	return m == RankingModeAll || m == RankingModeTopK
}

// EntityRank is one row of an entity ranking. Fields that do not apply to
// the ranked kind stay zero (e.g. TotalViews for tags).
type EntityRank struct {
	Kind          EntityKind `json:"kind"`
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug,omitempty"`
	PostsCount    int64      `json:"posts_count"`
	CommentsCount int64      `json:"comments_count,omitempty"`
	LikesCount    int64      `json:"likes_count,omitempty"`
	TotalViews    int64      `json:"total_views,omitempty"`
	TotalLikes    int64      `json:"total_likes,omitempty"`
	TotalActivity int64      `json:"total_activity,omitempty"`
}

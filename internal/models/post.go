// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// PostStatus represents the publishing state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
)

// PostStatuses lists every status in display order.
var PostStatuses = []PostStatus{PostStatusDraft, PostStatusPublished, PostStatusArchived}

// Valid reports whether s is a known post status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether a post may move from s to next.
// Transitions only move forward: draft → published → archived, or
// draft → archived directly.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	switch s {
	case PostStatusDraft:
		return next == PostStatusPublished || next == PostStatusArchived
	case PostStatusPublished:
		return next == PostStatusArchived
	}
	return false
}

// Post is a blog article. ViewsCount, LikesCount and CommentsCount are
// denormalized counters maintained by the write path alongside the
// views, likes and comments fact tables.
type Post struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Excerpt       *string    `json:"excerpt,omitempty"`
	Content       string     `json:"content,omitempty"`
	FeaturedImage *string    `json:"featured_image,omitempty"`
	Status        PostStatus `json:"status,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	UserID        int64      `json:"user_id"`
	CategoryID    int64      `json:"category_id"`
	ViewsCount    int        `json:"views_count"`
	LikesCount    int        `json:"likes_count"`
	CommentsCount int        `json:"comments_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsPublished returns true if the post is in published status.
func (p *Post) IsPublished() bool {
	return p.Status == PostStatusPublished
}

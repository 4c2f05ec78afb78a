// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// View is one page view of a post. Views are an append-only log; a nil
// UserID means the reader was anonymous.
type View struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	IPAddress string    `json:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty"`
	Referer   *string   `json:"referer,omitempty"`
	ViewedAt  time.Time `json:"viewed_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ViewStats summarizes the views of a single post.
type ViewStats struct {
	PostID      int64 `json:"post_id"`
	TotalViews  int64 `json:"total_views"`
	UniqueViews int64 `json:"unique_views"`
	RecentViews int64 `json:"recent_views"`
}

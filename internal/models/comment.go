// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// CommentStatus is the moderation state of a comment.
type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "pending"
	CommentStatusApproved CommentStatus = "approved"
	CommentStatusRejected CommentStatus = "rejected"
)

// CommentStatuses lists every status in display order.
var CommentStatuses = []CommentStatus{CommentStatusPending, CommentStatusApproved, CommentStatusRejected}

// Valid reports whether s is a known comment status.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentStatusPending, CommentStatusApproved, CommentStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether moderation may move a comment from s to next.
// Only pending comments can be moderated.
func (s CommentStatus) CanTransitionTo(next CommentStatus) bool {
	return s == CommentStatusPending && (next == CommentStatusApproved || next == CommentStatusRejected)
}

// Comment is a reader comment on a post. ParentID links a reply to the
// comment it answers; a reply always belongs to the same post as its parent.
type Comment struct {
	ID         int64         `json:"id"`
	Content    string        `json:"content"`
	Status     CommentStatus `json:"status,omitempty"`
	UserID     int64         `json:"user_id"`
	PostID     int64         `json:"post_id"`
	ParentID   *int64        `json:"parent_id,omitempty"`
	LikesCount int           `json:"likes_count"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsReply returns true if the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// CommentNode is a comment with its author and nested replies, used for
// rendering a post's discussion thread.
type CommentNode struct {
	Comment
	Author  *User         `json:"author,omitempty"`
	Replies []CommentNode `json:"replies,omitempty"`
	Depth   int           `json:"depth"`
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"time"
)

// TargetKind names the kind of entity a like points at.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Valid reports whether k is a likeable kind.
func (k TargetKind) Valid() bool {
	return k == TargetPost || k == TargetComment
}

// Target identifies a likeable entity by kind and ID.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   int64      `json:"id"`
}

// PostTarget returns the like target for a post.
func PostTarget(id int64) Target { return Target{Kind: TargetPost, ID: id} }

// CommentTarget returns the like target for a comment.
func CommentTarget(id int64) Target { return Target{Kind: TargetComment, ID: id} }

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// Like records that a user liked a target. A user likes a given target at
// most once.
type Like struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Target    Target    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

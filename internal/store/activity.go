// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"blogstats/internal/models"
)

// ActivityStore records likes and views. Each fact is written in the same
// transaction as the counter it feeds.
type ActivityStore struct {
	db DB
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// counterTable maps a like target to the table holding its likes_count.
func counterTable(kind models.TargetKind) (string, error) {
	switch kind {
	case models.TargetPost:
		return "posts", nil
	case models.TargetComment:
		return "comments", nil
	}
	return "", fmt.Errorf("like: %w: unknown target kind %q", ErrInvalidInput, kind)
}

// Like records that userID likes target. A repeated like is a no-op and
// reports created as false.
func (s *ActivityStore) Like(ctx context.Context, userID int64, target models.Target) (created bool, err error) {
	table, err := counterTable(target.Kind)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, wrapErr("begin like", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO likes (user_id, target_kind, target_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, target_kind, target_id) DO NOTHING
		RETURNING id`,
		userID, string(target.Kind), target.ID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("insert like", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE `+table+` SET likes_count = likes_count + 1 WHERE id = $1`, target.ID)
	if err != nil {
		return false, wrapErr("increment likes count", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, fmt.Errorf("like %s: %w", target, ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return false, wrapErr("commit like", err)
	}
	return true, nil
}

// Unlike removes a like. Removing a like that does not exist reports
// removed as false.
func (s *ActivityStore) Unlike(ctx context.Context, userID int64, target models.Target) (removed bool, err error) {
	table, err := counterTable(target.Kind)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, wrapErr("begin unlike", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM likes WHERE user_id = $1 AND target_kind = $2 AND target_id = $3`,
		userID, string(target.Kind), target.ID)
	if err != nil {
		return false, wrapErr("delete like", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1`, target.ID); err != nil {
		return false, wrapErr("decrement likes count", err)
	}
	if err := tx.Commit(); err != nil {
		return false, wrapErr("commit unlike", err)
	}
	return true, nil
}

// HasLiked reports whether userID has liked target.
func (s *ActivityStore) HasLiked(ctx context.Context, userID int64, target models.Target) (bool, error) {
	var liked bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM likes WHERE user_id = $1 AND target_kind = $2 AND target_id = $3)`,
		userID, string(target.Kind), target.ID,
	).Scan(&liked)
	if err != nil {
		return false, wrapErr("check like", err)
	}
	return liked, nil
}

// RecordView appends a view and bumps the post's views_count.
func (s *ActivityStore) RecordView(ctx context.Context, v *models.View) error {
	if strings.TrimSpace(v.IPAddress) == "" {
		return fmt.Errorf("record view: %w: ip address is required", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin record view", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO views (post_id, user_id, ip_address, user_agent, referer)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, viewed_at, created_at`,
		v.PostID, v.UserID, v.IPAddress, v.UserAgent, v.Referer,
	).Scan(&v.ID, &v.ViewedAt, &v.CreatedAt)
	if err != nil {
		return wrapErr("insert view", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET views_count = views_count + 1 WHERE id = $1`, v.PostID); err != nil {
		return wrapErr("increment views count", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit record view", err)
	}
	return nil
}

// ReconcileResult counts the rows whose counters were repaired.
type ReconcileResult struct {
	Posts    int64 `json:"posts"`
	Comments int64 `json:"comments"`
}

// ReconcileCounters recomputes every denormalized counter from the fact
// tables and rewrites the rows that drifted. Both updates run in one
// transaction.
func (s *ActivityStore) ReconcileCounters(ctx context.Context) (ReconcileResult, error) {
	var out ReconcileResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, wrapErr("begin reconcile", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE posts p SET
			views_count = s.views,
			likes_count = s.likes,
			comments_count = s.comments
		FROM (
			SELECT p2.id,
				(SELECT COUNT(*) FROM views v WHERE v.post_id = p2.id) AS views,
				(SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'post' AND l.target_id = p2.id) AS likes,
				(SELECT COUNT(*) FROM comments c WHERE c.post_id = p2.id) AS comments
			FROM posts p2
		) s
		WHERE p.id = s.id
			AND (p.views_count, p.likes_count, p.comments_count) IS DISTINCT FROM (s.views, s.likes, s.comments)`)
	if err != nil {
		return out, wrapErr("reconcile post counters", err)
	}
	out.Posts, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
		UPDATE comments c SET likes_count = s.likes
		FROM (
			SELECT c2.id,
				(SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'comment' AND l.target_id = c2.id) AS likes
			FROM comments c2
		) s
		WHERE c.id = s.id AND c.likes_count IS DISTINCT FROM s.likes`)
	if err != nil {
		return out, wrapErr("reconcile comment counters", err)
	}
	out.Comments, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return out, wrapErr("commit reconcile", err)
	}
	return out, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// seedStatements build a small demo blog: three authors, categories and
// tags, a dozen posts across every status, threaded comments, likes and
// views spread over the last months. Denormalized counters are derived
// from the fact rows at the end.
var seedStatements = []string{
	`INSERT INTO users (name, email) VALUES
		('Ana Demo', 'ana@blogstats.local'),
		('Bogdan Demo', 'bogdan@blogstats.local'),
		('Carla Demo', 'carla@blogstats.local')`,

	`INSERT INTO categories (name, slug, description, user_id)
	 SELECT c.name, c.slug, c.description, u.id
	 FROM (VALUES
		('Engineering', 'engineering', 'Building and running software'),
		('Databases', 'databases', 'Storage engines, SQL and indexing'),
		('Culture', 'culture', 'How teams work')
	 ) AS c(name, slug, description)
	 CROSS JOIN (SELECT id FROM users WHERE email = 'ana@blogstats.local') u`,

	`INSERT INTO tags (name, slug, user_id)
	 SELECT t.name, t.slug, u.id
	 FROM (VALUES ('Go', 'go'), ('PostgreSQL', 'postgresql'), ('Caching', 'caching'), ('Testing', 'testing')) AS t(name, slug)
	 CROSS JOIN (SELECT id FROM users WHERE email = 'ana@blogstats.local') u`,

	`INSERT INTO posts (title, slug, excerpt, content, status, published_at, user_id, category_id, created_at)
	 SELECT
		'Demo post ' || n,
		'demo-post-' || n,
		'Excerpt for demo post ' || n,
		CASE n % 4
			WHEN 0 THEN 'Indexing strategies for PostgreSQL listings and rankings.'
			WHEN 1 THEN 'Caching aggregate queries in Valkey with bounded staleness.'
			WHEN 2 THEN 'Table-driven tests in Go keep edge cases visible.'
			ELSE 'Running a small engineering team without meetings.'
		END,
		CASE WHEN n <= 8 THEN 'published' WHEN n <= 10 THEN 'draft' ELSE 'archived' END,
		CASE WHEN n <= 8 OR n > 10 THEN NOW() - (n * INTERVAL '9 days') END,
		(SELECT id FROM users ORDER BY id OFFSET (n % 3) LIMIT 1),
		(SELECT id FROM categories ORDER BY id OFFSET (n % 3) LIMIT 1),
		NOW() - (n * INTERVAL '10 days')
	 FROM generate_series(1, 12) AS n`,

	`INSERT INTO post_tag (post_id, tag_id)
	 SELECT p.id, t.id
	 FROM posts p JOIN tags t ON (p.id + t.id) % 2 = 0`,

	`INSERT INTO comments (content, status, user_id, post_id, created_at)
	 SELECT
		'Comment ' || n || ' on ' || p.title,
		CASE WHEN n % 5 = 0 THEN 'pending' WHEN n % 7 = 0 THEN 'rejected' ELSE 'approved' END,
		(SELECT id FROM users ORDER BY id OFFSET (n % 3) LIMIT 1),
		p.id,
		p.created_at + (n * INTERVAL '1 day')
	 FROM posts p CROSS JOIN generate_series(1, 3) AS n
	 WHERE p.status = 'published'`,

	`INSERT INTO comments (content, status, user_id, post_id, parent_id, created_at)
	 SELECT 'Reply to comment ' || c.id, 'approved', c.user_id, c.post_id, c.id, c.created_at + INTERVAL '1 hour'
	 FROM comments c
	 WHERE c.status = 'approved' AND c.id % 2 = 0`,

	`INSERT INTO likes (user_id, target_kind, target_id, created_at)
	 SELECT u.id, 'post', p.id, p.created_at + INTERVAL '2 days'
	 FROM posts p CROSS JOIN users u
	 WHERE p.status = 'published' AND (p.id + u.id) % 3 <> 0`,

	`INSERT INTO likes (user_id, target_kind, target_id)
	 SELECT u.id, 'comment', c.id
	 FROM comments c CROSS JOIN users u
	 WHERE c.status = 'approved' AND (c.id + u.id) % 4 = 0`,

	`INSERT INTO views (post_id, user_id, ip_address, user_agent, viewed_at, created_at)
	 SELECT p.id,
		CASE WHEN n % 3 = 0 THEN NULL ELSE (SELECT id FROM users ORDER BY id OFFSET (n % 3) LIMIT 1) END,
		'198.51.100.' || (n % 20),
		'seed',
		NOW() - (n * INTERVAL '6 hours'),
		NOW() - (n * INTERVAL '6 hours')
	 FROM posts p CROSS JOIN generate_series(1, 40) AS n
	 WHERE p.status = 'published' AND n <= 10 + (p.id % 30)`,

	`UPDATE posts p SET
		views_count = (SELECT COUNT(*) FROM views v WHERE v.post_id = p.id),
		likes_count = (SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'post' AND l.target_id = p.id),
		comments_count = (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)`,

	`UPDATE comments c SET
		likes_count = (SELECT COUNT(*) FROM likes l WHERE l.target_kind = 'comment' AND l.target_id = c.id)`,
}

// Seed populates an empty database with demo data for development.
// It does nothing when any user already exists.
func Seed(db *sql.DB) error {
	ctx := context.Background()

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range seedStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo data")
	return nil
}

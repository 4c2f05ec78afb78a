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
	"blogstats/internal/slug"
)

// TagStore handles database operations for tags.
type TagStore struct {
	db DB
}

// NewTagStore creates a new TagStore.
func NewTagStore(db DB) *TagStore {
	return &TagStore{db: db}
}

func (s *TagStore) Create(ctx context.Context, t *models.Tag) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("create tag: %w: name is required", ErrInvalidInput)
	}
	if t.Slug == "" {
		t.Slug = slug.Generate(t.Name)
	}
	if t.Color == "" {
		t.Color = models.DefaultColor
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tags (name, slug, description, color, user_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		t.Name, t.Slug, t.Description, t.Color, t.UserID, t.IsActive,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return wrapErr("create tag", err)
}

func (s *TagStore) FindBySlug(ctx context.Context, tagSlug string) (*models.Tag, error) {
	var t models.Tag
	err := scanInto(s.db.QueryRowContext(ctx,
		`SELECT `+selectList("t", tagColumns.cols)+` FROM tags t WHERE t.slug = $1`, tagSlug,
	), tagColumns.cols, &t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %q: %w", tagSlug, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("find tag", err)
	}
	return &t, nil
}

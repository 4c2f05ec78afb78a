// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"strings"

	"blogstats/internal/models"
	"blogstats/internal/slug"
)

// CategoryStore handles database operations for categories.
type CategoryStore struct {
	db DB
}

// NewCategoryStore creates a new CategoryStore.
func NewCategoryStore(db DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// Create inserts a category, deriving the slug from the name when empty
// and applying the default color.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("create category: %w: name is required", ErrInvalidInput)
	}
	if c.Slug == "" {
		c.Slug = slug.Generate(c.Name)
	}
	if c.Color == "" {
		c.Color = models.DefaultColor
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, description, color, user_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		c.Name, c.Slug, c.Description, c.Color, c.UserID, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return wrapErr("create category", err)
}

// FindByID returns a category by id.
func (s *CategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	cats, err := loadCategories(ctx, s.db, []int64{id}, nil)
	if err != nil {
		return nil, err
	}
	c, ok := cats[id]
	if !ok {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return &c, nil
}

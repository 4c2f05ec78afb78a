// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"strings"

	"blogstats/internal/models"
)

// UserStore handles database operations for users.
type UserStore struct {
	db DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user. Emails are stored lowercased.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("create user: %w: name and email are required", ErrInvalidInput)
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email) VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		u.Name, u.Email,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return wrapErr("create user", err)
}

// FindByID returns a user by id.
func (s *UserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	users, err := loadUsers(ctx, s.db, []int64{id}, nil)
	if err != nil {
		return nil, err
	}
	u, ok := users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return &u, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"slices"
	"strings"

	"blogstats/internal/models"
)

// column binds a column name to the struct field it scans into.
type column[T any] struct {
	name string
	ptr  func(*T) any
}

// columnSet is the full, canonically ordered column list of one entity.
type columnSet[T any] struct {
	entity string
	cols   []column[T]
}

// names returns every column name in canonical order.
func (s columnSet[T]) names() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.name
	}
	return out
}

func (s columnSet[T]) has(name string) bool {
	return slices.ContainsFunc(s.cols, func(c column[T]) bool { return c.name == name })
}

// project returns the requested columns plus the required ones, kept in
// canonical order. An empty request selects every column. Unknown names
// are rejected.
func (s columnSet[T]) project(fields []string, required ...string) ([]column[T], error) {
	if len(fields) == 0 {
		return s.cols, nil
	}
	want := make(map[string]bool, len(fields)+len(required))
	for _, f := range fields {
		if !s.has(f) {
			return nil, invalidf("unknown %s field %q", s.entity, f)
		}
		want[f] = true
	}
	for _, r := range required {
		want[r] = true
	}
	out := make([]column[T], 0, len(want))
	for _, c := range s.cols {
		if want[c.name] {
			out = append(out, c)
		}
	}
	return out, nil
}

// selectList renders cols qualified by alias.
func selectList[T any](alias string, cols []column[T]) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = alias + "." + c.name
	}
	return strings.Join(parts, ", ")
}

// scanInto scans one row into v. Leading destinations in extra are
// scanned before the entity columns.
func scanInto[T any](scanner interface{ Scan(...any) error }, cols []column[T], v *T, extra ...any) error {
	dest := make([]any, 0, len(extra)+len(cols))
	dest = append(dest, extra...)
	for _, c := range cols {
		dest = append(dest, c.ptr(v))
	}
	return scanner.Scan(dest...)
}

var postColumns = columnSet[models.Post]{entity: "post", cols: []column[models.Post]{
	{"id", func(p *models.Post) any { return &p.ID }},
	{"title", func(p *models.Post) any { return &p.Title }},
	{"slug", func(p *models.Post) any { return &p.Slug }},
	{"excerpt", func(p *models.Post) any { return &p.Excerpt }},
	{"content", func(p *models.Post) any { return &p.Content }},
	{"featured_image", func(p *models.Post) any { return &p.FeaturedImage }},
	{"status", func(p *models.Post) any { return &p.Status }},
	{"published_at", func(p *models.Post) any { return &p.PublishedAt }},
	{"user_id", func(p *models.Post) any { return &p.UserID }},
	{"category_id", func(p *models.Post) any { return &p.CategoryID }},
	{"views_count", func(p *models.Post) any { return &p.ViewsCount }},
	{"likes_count", func(p *models.Post) any { return &p.LikesCount }},
	{"comments_count", func(p *models.Post) any { return &p.CommentsCount }},
	{"created_at", func(p *models.Post) any { return &p.CreatedAt }},
	{"updated_at", func(p *models.Post) any { return &p.UpdatedAt }},
}}

var userColumns = columnSet[models.User]{entity: "user", cols: []column[models.User]{
	{"id", func(u *models.User) any { return &u.ID }},
	{"name", func(u *models.User) any { return &u.Name }},
	{"email", func(u *models.User) any { return &u.Email }},
	{"created_at", func(u *models.User) any { return &u.CreatedAt }},
	{"updated_at", func(u *models.User) any { return &u.UpdatedAt }},
}}

var categoryColumns = columnSet[models.Category]{entity: "category", cols: []column[models.Category]{
	{"id", func(c *models.Category) any { return &c.ID }},
	{"name", func(c *models.Category) any { return &c.Name }},
	{"slug", func(c *models.Category) any { return &c.Slug }},
	{"description", func(c *models.Category) any { return &c.Description }},
	{"color", func(c *models.Category) any { return &c.Color }},
	{"user_id", func(c *models.Category) any { return &c.UserID }},
	{"is_active", func(c *models.Category) any { return &c.IsActive }},
	{"created_at", func(c *models.Category) any { return &c.CreatedAt }},
	{"updated_at", func(c *models.Category) any { return &c.UpdatedAt }},
}}

var tagColumns = columnSet[models.Tag]{entity: "tag", cols: []column[models.Tag]{
	{"id", func(t *models.Tag) any { return &t.ID }},
	{"name", func(t *models.Tag) any { return &t.Name }},
	{"slug", func(t *models.Tag) any { return &t.Slug }},
	{"description", func(t *models.Tag) any { return &t.Description }},
	{"color", func(t *models.Tag) any { return &t.Color }},
	{"user_id", func(t *models.Tag) any { return &t.UserID }},
	{"is_active", func(t *models.Tag) any { return &t.IsActive }},
	{"created_at", func(t *models.Tag) any { return &t.CreatedAt }},
	{"updated_at", func(t *models.Tag) any { return &t.UpdatedAt }},
}}

var commentColumns = columnSet[models.Comment]{entity: "comment", cols: []column[models.Comment]{
	{"id", func(c *models.Comment) any { return &c.ID }},
	{"content", func(c *models.Comment) any { return &c.Content }},
	{"status", func(c *models.Comment) any { return &c.Status }},
	{"user_id", func(c *models.Comment) any { return &c.UserID }},
	{"post_id", func(c *models.Comment) any { return &c.PostID }},
	{"parent_id", func(c *models.Comment) any { return &c.ParentID }},
	{"likes_count", func(c *models.Comment) any { return &c.LikesCount }},
	{"created_at", func(c *models.Comment) any { return &c.CreatedAt }},
	{"updated_at", func(c *models.Comment) any { return &c.UpdatedAt }},
}}

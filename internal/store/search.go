// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"blogstats/internal/models"
)

const (
	// DefaultSearchLimit is the number of posts Search returns when limit is 0.
	DefaultSearchLimit = 20
	// MinSuggestionLength is the shortest term Suggestions looks up.
	MinSuggestionLength = 2
	// MaxSuggestions caps the merged suggestion list.
	MaxSuggestions = 10

	suggestionsPerSource = 5
	searchAllEntityLimit = 10
)

// SearchRelations are attached to every search hit.
var SearchRelations = []Relation{RelUser, RelCategory, RelTags}

// SearchStore resolves free-text queries against the full-text index on
// posts and the trigram indexes on names.
type SearchStore struct {
	db DB
}

// NewSearchStore creates a new SearchStore.
func NewSearchStore(db DB) *SearchStore {
	return &SearchStore{db: db}
}

// Search returns posts matching term ordered by text relevance, with
// author, category and tags attached. A blank term returns an empty
// result without querying.
func (s *SearchStore) Search(ctx context.Context, term string, limit int) ([]PostResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []PostResult{}, nil
	}
	limit, err := normalizeLimit(limit, DefaultSearchLimit, MaxLimit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectList("p", postColumns.cols)+`, ts_rank(p.search_vector, q)::float8 AS score
		FROM posts p, websearch_to_tsquery('english', $1) q
		WHERE p.search_vector @@ q
		ORDER BY score DESC, p.id ASC
		LIMIT $2`,
		term, limit)
	if err != nil {
		return nil, wrapErr("search posts", err)
	}
	defer rows.Close()

	items := make([]PostResult, 0, limit)
	for rows.Next() {
		var r PostResult
		dest := make([]any, 0, len(postColumns.cols)+1)
		for _, c := range postColumns.cols {
			dest = append(dest, c.ptr(&r.Post))
		}
		dest = append(dest, &r.Score)
		if err := rows.Scan(dest...); err != nil {
			return nil, wrapErr("scan search hit", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("search posts", err)
	}
	rows.Close()

	rels, _ := parseRelations(PostRelations, SearchRelations)
	if err := attachPostRelations(ctx, s.db, items, rels, nil, DefaultCommentsPerPost); err != nil {
		return nil, err
	}
	return items, nil
}

// Suggestions returns up to MaxSuggestions distinct post titles and
// category, tag and user names containing term. Terms shorter than
// MinSuggestionLength return an empty list without querying.
func (s *SearchStore) Suggestions(ctx context.Context, term string) ([]string, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinSuggestionLength {
		return []string{}, nil
	}
	pattern := "%" + escapeLike(term) + "%"

	rows, err := s.db.QueryContext(ctx, `
		(SELECT title FROM posts WHERE title ILIKE $1 ORDER BY views_count DESC, id ASC LIMIT $2)
		UNION ALL
		(SELECT name FROM categories WHERE is_active AND name ILIKE $1 ORDER BY name, id LIMIT $2)
		UNION ALL
		(SELECT name FROM tags WHERE is_active AND name ILIKE $1 ORDER BY name, id LIMIT $2)
		UNION ALL
		(SELECT name FROM users WHERE name ILIKE $1 ORDER BY name, id LIMIT $2)`,
		pattern, suggestionsPerSource)
	if err != nil {
		return nil, wrapErr("search suggestions", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	out := make([]string, 0, MaxSuggestions)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, wrapErr("scan suggestion", err)
		}
		if seen[v] || len(out) == MaxSuggestions {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, wrapErr("search suggestions", rows.Err())
}

// CategoryHit is a category matched by name with its owner attached.
type CategoryHit struct {
	models.Category
	Owner *models.User `json:"owner,omitempty"`
}

// TagHit is a tag matched by name with its owner attached.
type TagHit struct {
	models.Tag
	Owner *models.User `json:"owner,omitempty"`
}

// SearchResults groups the hits of SearchAll by entity.
type SearchResults struct {
	Term       string        `json:"term"`
	Posts      []PostResult  `json:"posts"`
	Categories []CategoryHit `json:"categories"`
	Tags       []TagHit      `json:"tags"`
	Users      []models.User `json:"users"`
}

// Total is the number of hits across every entity.
func (r SearchResults) Total() int {
	return len(r.Posts) + len(r.Categories) + len(r.Tags) + len(r.Users)
}

// SearchAll searches posts by full text and active categories, tags and
// users by name. Category and tag owners are loaded in one batch.
func (s *SearchStore) SearchAll(ctx context.Context, term string) (*SearchResults, error) {
	term = strings.TrimSpace(term)
	res := &SearchResults{
		Term:       term,
		Posts:      []PostResult{},
		Categories: []CategoryHit{},
		Tags:       []TagHit{},
		Users:      []models.User{},
	}
	if term == "" {
		return res, nil
	}

	posts, err := s.Search(ctx, term, DefaultSearchLimit)
	if err != nil {
		return nil, err
	}
	res.Posts = posts

	pattern := "%" + escapeLike(term) + "%"

	cats, err := s.matchCategories(ctx, pattern)
	if err != nil {
		return nil, err
	}
	tags, err := s.matchTags(ctx, pattern)
	if err != nil {
		return nil, err
	}
	users, err := s.matchUsers(ctx, pattern)
	if err != nil {
		return nil, err
	}

	var owners []int64
	for _, c := range cats {
		owners = append(owners, c.UserID)
	}
	for _, t := range tags {
		owners = append(owners, t.UserID)
	}
	ownerByID, err := loadUsers(ctx, s.db, owners, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range cats {
		hit := CategoryHit{Category: c}
		if u, ok := ownerByID[c.UserID]; ok {
			hit.Owner = &u
		}
		res.Categories = append(res.Categories, hit)
	}
	for _, t := range tags {
		hit := TagHit{Tag: t}
		if u, ok := ownerByID[t.UserID]; ok {
			hit.Owner = &u
		}
		res.Tags = append(res.Tags, hit)
	}
	res.Users = users
	return res, nil
}

func (s *SearchStore) matchCategories(ctx context.Context, pattern string) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM categories c
		WHERE c.is_active AND c.name ILIKE $1
		ORDER BY c.name, c.id
		LIMIT $2`, selectList("c", categoryColumns.cols)),
		pattern, searchAllEntityLimit)
	if err != nil {
		return nil, wrapErr("search categories", err)
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		var c models.Category
		if err := scanInto(rows, categoryColumns.cols, &c); err != nil {
			return nil, wrapErr("scan category", err)
		}
		out = append(out, c)
	}
	return out, wrapErr("search categories", rows.Err())
}

func (s *SearchStore) matchTags(ctx context.Context, pattern string) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM tags t
		WHERE t.is_active AND t.name ILIKE $1
		ORDER BY t.name, t.id
		LIMIT $2`, selectList("t", tagColumns.cols)),
		pattern, searchAllEntityLimit)
	if err != nil {
		return nil, wrapErr("search tags", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := scanInto(rows, tagColumns.cols, &t); err != nil {
			return nil, wrapErr("scan tag", err)
		}
		out = append(out, t)
	}
	return out, wrapErr("search tags", rows.Err())
}

func (s *SearchStore) matchUsers(ctx context.Context, pattern string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM users u
		WHERE u.name ILIKE $1
		ORDER BY u.name, u.id
		LIMIT $2`, selectList("u", userColumns.cols)),
		pattern, searchAllEntityLimit)
	if err != nil {
		return nil, wrapErr("search users", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		var u models.User
		if err := scanInto(rows, userColumns.cols, &u); err != nil {
			return nil, wrapErr("scan user", err)
		}
		out = append(out, u)
	}
	return out, wrapErr("search users", rows.Err())
}

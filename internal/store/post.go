// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogstats/internal/models"
	"blogstats/internal/slug"
)

// PostStore handles listing, ranking and lifecycle writes for posts.
type PostStore struct {
	db DB
}

// NewPostStore creates a new PostStore.
func NewPostStore(db DB) *PostStore {
	return &PostStore{db: db}
}

// PostFilter narrows a post listing. Zero values are ignored.
type PostFilter struct {
	ID            int64             `json:"id,omitempty"`
	Status        models.PostStatus `json:"status,omitempty"`
	CategoryID    int64             `json:"category_id,omitempty"`
	UserID        int64             `json:"user_id,omitempty"`
	TagID         int64             `json:"tag_id,omitempty"`
	PublishedFrom *time.Time        `json:"published_from,omitempty"`
	PublishedTo   *time.Time        `json:"published_to,omitempty"`
}

// where renders the filter's predicates and returns the columns fixed by
// equality, which decide which indexes can serve the sort.
func (f PostFilter) where(args *argList) (string, []string, error) {
	var (
		clauses  []string
		equality []string
	)
	if f.ID != 0 {
		clauses = append(clauses, "p.id = "+args.add(f.ID))
		equality = append(equality, "id")
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return "", nil, invalidf("unknown post status %q", f.Status)
		}
		clauses = append(clauses, "p.status = "+args.add(string(f.Status)))
		equality = append(equality, "status")
	}
	if f.CategoryID != 0 {
		clauses = append(clauses, "p.category_id = "+args.add(f.CategoryID))
		equality = append(equality, "category_id")
	}
	if f.UserID != 0 {
		clauses = append(clauses, "p.user_id = "+args.add(f.UserID))
		equality = append(equality, "user_id")
	}
	if f.TagID != 0 {
		clauses = append(clauses, "p.id IN (SELECT pt.post_id FROM post_tag pt WHERE pt.tag_id = "+args.add(f.TagID)+")")
	}
	if f.PublishedFrom != nil && f.PublishedTo != nil && f.PublishedTo.Before(*f.PublishedFrom) {
		return "", nil, invalidf("published range ends before it starts")
	}
	if f.PublishedFrom != nil {
		clauses = append(clauses, "p.published_at >= "+args.add(*f.PublishedFrom))
	}
	if f.PublishedTo != nil {
		clauses = append(clauses, "p.published_at < "+args.add(*f.PublishedTo))
	}
	if len(clauses) == 0 {
		return "", equality, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), equality, nil
}

// PostQuery describes one listing: filter, order, relations to attach,
// projected columns and the page window. A nil Offset selects top-K mode.
type PostQuery struct {
	Filter          PostFilter `json:"filter"`
	Sort            []SortKey  `json:"sort,omitempty"`
	Relations       []Relation `json:"relations,omitempty"`
	Fields          Fields     `json:"fields,omitempty"`
	Limit           int        `json:"limit"`
	Offset          *int       `json:"offset,omitempty"`
	CommentsPerPost int        `json:"comments_per_post,omitempty"`
}

// DefaultPostSort orders listings newest published first.
var DefaultPostSort = []SortKey{Desc("published_at")}

type builtPostQuery struct {
	sql             string
	args            []any
	cols            []column[models.Post]
	rels            relationSet
	limit           int
	offset          int
	commentsPerPost int
}

func buildPostQuery(q PostQuery) (*builtPostQuery, error) {
	rels, err := parseRelations(PostRelations, q.Relations)
	if err != nil {
		return nil, err
	}
	if err := q.Fields.validate(); err != nil {
		return nil, err
	}
	limit, err := normalizeLimit(q.Limit, DefaultLimit, MaxLimit)
	if err != nil {
		return nil, err
	}
	offset, err := normalizeOffset(q.Offset)
	if err != nil {
		return nil, err
	}
	perPost, err := normalizeLimit(q.CommentsPerPost, DefaultCommentsPerPost, MaxLimit)
	if err != nil {
		return nil, err
	}

	required := []string{"id"}
	if rels.has(RelUser) {
		required = append(required, "user_id")
	}
	if rels.has(RelCategory) {
		required = append(required, "category_id")
	}
	cols, err := postColumns.project(q.Fields["post"], required...)
	if err != nil {
		return nil, err
	}

	var args argList
	where, equality, err := q.Filter.where(&args)
	if err != nil {
		return nil, err
	}
	keys := q.Sort
	if len(keys) == 0 {
		keys = DefaultPostSort
	}
	order, err := orderBy("posts", "p", postSortable, equality, keys)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM posts p%s ORDER BY %s LIMIT %s",
		selectList("p", cols), where, order, args.add(limit+1))
	if q.Offset != nil {
		query += " OFFSET " + args.add(offset)
	}

	return &builtPostQuery{
		sql:             query,
		args:            args.args,
		cols:            cols,
		rels:            rels,
		limit:           limit,
		offset:          offset,
		commentsPerPost: perPost,
	}, nil
}

// Fetch returns one page of posts with the requested relations attached.
// It issues one query for the page and one per relation.
func (s *PostStore) Fetch(ctx context.Context, q PostQuery) (Page[PostResult], error) {
	b, err := buildPostQuery(q)
	if err != nil {
		return Page[PostResult]{}, err
	}

	rows, err := s.db.QueryContext(ctx, b.sql, b.args...)
	if err != nil {
		return Page[PostResult]{}, wrapErr("fetch posts", err)
	}
	defer rows.Close()

	items := make([]PostResult, 0, b.limit+1)
	for rows.Next() {
		var r PostResult
		if err := scanInto(rows, b.cols, &r.Post); err != nil {
			return Page[PostResult]{}, wrapErr("scan post", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return Page[PostResult]{}, wrapErr("fetch posts", err)
	}
	rows.Close()

	page := Page[PostResult]{Limit: b.limit, Offset: b.offset}
	if len(items) > b.limit {
		page.HasMore = true
		items = items[:b.limit]
	}
	if err := attachPostRelations(ctx, s.db, items, b.rels, q.Fields, b.commentsPerPost); err != nil {
		return Page[PostResult]{}, err
	}
	page.Items = items
	return page, nil
}

// Rank returns posts ordered by keys, with id ascending as the final
// tie-break. A nil offset returns the top limit rows; a non-nil offset
// returns that page.
func (s *PostStore) Rank(ctx context.Context, filter PostFilter, keys []SortKey, limit int, offset *int) (Page[PostResult], error) {
	if len(keys) == 0 {
		return Page[PostResult]{}, invalidf("rank requires at least one sort key")
	}
	return s.Fetch(ctx, PostQuery{Filter: filter, Sort: keys, Limit: limit, Offset: offset})
}

// FindByID returns one post with the given relations attached.
func (s *PostStore) FindByID(ctx context.Context, id int64, relations ...Relation) (*PostResult, error) {
	page, err := s.Fetch(ctx, PostQuery{
		Filter:    PostFilter{ID: id},
		Sort:      []SortKey{Asc("id")},
		Relations: relations,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	return &page.Items[0], nil
}

// maxSlugAttempts bounds the numeric suffixes tried for a generated slug.
const maxSlugAttempts = 10

// Create inserts a new draft post. An empty slug is derived from the title;
// when that slug is taken the next free "-2", "-3" suffix is used.
func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("create post: %w: title is required", ErrInvalidInput)
	}
	generated := p.Slug == ""
	base := p.Slug
	if generated {
		base = slug.Generate(p.Title)
	}
	if base == "" {
		return fmt.Errorf("create post: %w: title yields an empty slug", ErrInvalidInput)
	}
	p.Status = models.PostStatusDraft
	p.PublishedAt = nil

	for n := 1; ; n++ {
		p.Slug = slug.WithSuffix(base, n)
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO posts (title, slug, excerpt, content, featured_image, status, user_id, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at, updated_at`,
			p.Title, p.Slug, p.Excerpt, p.Content, p.FeaturedImage, string(p.Status), p.UserID, p.CategoryID,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err == nil {
			return nil
		}
		err = wrapErr("create post", err)
		// Generated slugs take the next free numeric suffix; explicit ones conflict.
		if !generated || n >= maxSlugAttempts || !errors.Is(err, ErrConflict) || !strings.Contains(err.Error(), "slug") {
			return err
		}
	}
}

// Transition moves a post to next. Publishing stamps published_at the
// first time; moves back to draft or out of archived are rejected.
func (s *PostStore) Transition(ctx context.Context, id int64, next models.PostStatus) (*models.Post, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("transition post: %w: unknown status %q", ErrInvalidInput, next)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapErr("begin transition", err)
	}
	defer tx.Rollback()

	var current models.PostStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM posts WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("lock post", err)
	}
	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("post %d: %w: %s to %s", id, ErrInvalidTransition, current, next)
	}

	var p models.Post
	err = scanInto(tx.QueryRowContext(ctx, `
		UPDATE posts p SET
			status = $2,
			published_at = CASE WHEN $3::boolean THEN COALESCE(p.published_at, NOW()) ELSE p.published_at END,
			updated_at = NOW()
		WHERE p.id = $1
		RETURNING `+selectList("p", postColumns.cols),
		id, string(next), next == models.PostStatusPublished,
	), postColumns.cols, &p)
	if err != nil {
		return nil, wrapErr("update post status", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapErr("commit transition", err)
	}
	return &p, nil
}

// SetTags replaces the tags attached to a post.
func (s *PostStore) SetTags(ctx context.Context, postID int64, tagIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin set tags", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists); err != nil {
		return wrapErr("check post", err)
	}
	if !exists {
		return fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tag WHERE post_id = $1`, postID); err != nil {
		return wrapErr("clear post tags", err)
	}

	tagIDs = uniqueIDs(tagIDs)
	if len(tagIDs) > 0 {
		var args argList
		post := args.add(postID)
		values := make([]string, len(tagIDs))
		for i, id := range tagIDs {
			values[i] = "(" + post + ", " + args.add(id) + ")"
		}
		query := "INSERT INTO post_tag (post_id, tag_id) VALUES " + strings.Join(values, ", ") +
			" ON CONFLICT (post_id, tag_id) DO NOTHING"
		if _, err := tx.ExecContext(ctx, query, args.args...); err != nil {
			return wrapErr("insert post tags", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit set tags", err)
	}
	return nil
}

// PostResult is a post with the relations the caller asked the planner
// to load. Reading a relation that was not requested returns
// ErrRelationNotLoaded and never queries.
type PostResult struct {
	models.Post
	// Score is the text relevance of a search hit; zero elsewhere.
	Score float64

	loaded   relationSet
	user     *models.User
	category *models.Category
	tags     []models.Tag
	comments []CommentResult
}

func (r PostResult) User() (*models.User, error) {
	if !r.loaded.has(RelUser) {
		return nil, notLoaded("post", RelUser)
	}
	return r.user, nil
}

func (r PostResult) Category() (*models.Category, error) {
	if !r.loaded.has(RelCategory) {
		return nil, notLoaded("post", RelCategory)
	}
	return r.category, nil
}

func (r PostResult) Tags() ([]models.Tag, error) {
	if !r.loaded.has(RelTags) {
		return nil, notLoaded("post", RelTags)
	}
	return r.tags, nil
}

func (r PostResult) Comments() ([]CommentResult, error) {
	if !r.loaded.has(RelComments) {
		return nil, notLoaded("post", RelComments)
	}
	return r.comments, nil
}

// Loaded reports whether rel was requested when the result was fetched.
func (r PostResult) Loaded(rel Relation) bool {
	return r.loaded.has(rel)
}

type postJSON struct {
	models.Post
	Score     float64          `json:"score,omitempty"`
	Relations []Relation       `json:"relations,omitempty"`
	User      *models.User     `json:"user,omitempty"`
	Category  *models.Category `json:"category,omitempty"`
	Tags      *[]models.Tag    `json:"tags,omitempty"`
	Comments  *[]CommentResult `json:"comments,omitempty"`
}

// MarshalJSON renders the post with its loaded relations inline.
func (r PostResult) MarshalJSON() ([]byte, error) {
	out := postJSON{Post: r.Post, Score: r.Score, Relations: r.loaded.list(), User: r.user, Category: r.category}
	if r.loaded.has(RelTags) {
		out.Tags = &r.tags
	}
	if r.loaded.has(RelComments) {
		out.Comments = &r.comments
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a result encoded by MarshalJSON. The relations
// listed in the document are marked loaded even when their value is empty.
func (r *PostResult) UnmarshalJSON(data []byte) error {
	var in postJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = PostResult{Post: in.Post, Score: in.Score, loaded: newRelationSet(in.Relations)}
	r.user, r.category = in.User, in.Category
	if in.Tags != nil {
		r.tags = *in.Tags
	} else if r.loaded.has(RelTags) {
		r.tags = []models.Tag{}
	}
	if in.Comments != nil {
		r.comments = *in.Comments
	} else if r.loaded.has(RelComments) {
		r.comments = []CommentResult{}
	}
	return nil
}

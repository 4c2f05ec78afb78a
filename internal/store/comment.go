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

	"blogstats/internal/models"
)

// CommentStore handles comment listings, threads and moderation.
type CommentStore struct {
	db DB
}

// NewCommentStore creates a new CommentStore.
func NewCommentStore(db DB) *CommentStore {
	return &CommentStore{db: db}
}

// CommentFilter narrows a comment listing. Zero values are ignored;
// TopLevel restricts the listing to comments without a parent.
type CommentFilter struct {
	PostID   int64                `json:"post_id,omitempty"`
	UserID   int64                `json:"user_id,omitempty"`
	ParentID int64                `json:"parent_id,omitempty"`
	Status   models.CommentStatus `json:"status,omitempty"`
	TopLevel bool                 `json:"top_level,omitempty"`
}

func (f CommentFilter) where(args *argList) (string, []string, error) {
	var (
		clauses  []string
		equality []string
	)
	if f.PostID != 0 {
		clauses = append(clauses, "c.post_id = "+args.add(f.PostID))
		equality = append(equality, "post_id")
	}
	if f.UserID != 0 {
		clauses = append(clauses, "c.user_id = "+args.add(f.UserID))
		equality = append(equality, "user_id")
	}
	if f.ParentID != 0 && f.TopLevel {
		return "", nil, invalidf("parent_id and top_level are exclusive")
	}
	if f.ParentID != 0 {
		clauses = append(clauses, "c.parent_id = "+args.add(f.ParentID))
		equality = append(equality, "parent_id")
	}
	if f.TopLevel {
		clauses = append(clauses, "c.parent_id IS NULL")
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return "", nil, invalidf("unknown comment status %q", f.Status)
		}
		clauses = append(clauses, "c.status = "+args.add(string(f.Status)))
		equality = append(equality, "status")
	}
	if len(clauses) == 0 {
		return "", equality, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), equality, nil
}

// CommentQuery describes one comment listing.
type CommentQuery struct {
	Filter            CommentFilter `json:"filter"`
	Sort              []SortKey     `json:"sort,omitempty"`
	Relations         []Relation    `json:"relations,omitempty"`
	Fields            Fields        `json:"fields,omitempty"`
	Limit             int           `json:"limit"`
	Offset            *int          `json:"offset,omitempty"`
	RepliesPerComment int           `json:"replies_per_comment,omitempty"`
}

// DefaultCommentSort orders comments newest first.
var DefaultCommentSort = []SortKey{Desc("created_at")}

// Fetch returns one page of comments with the requested relations
// (user, post, replies) attached, one query per relation.
func (s *CommentStore) Fetch(ctx context.Context, q CommentQuery) (Page[CommentResult], error) {
	rels, err := parseRelations(CommentRelations, q.Relations)
	if err != nil {
		return Page[CommentResult]{}, err
	}
	if err := q.Fields.validate(); err != nil {
		return Page[CommentResult]{}, err
	}
	limit, err := normalizeLimit(q.Limit, DefaultLimit, MaxLimit)
	if err != nil {
		return Page[CommentResult]{}, err
	}
	offset, err := normalizeOffset(q.Offset)
	if err != nil {
		return Page[CommentResult]{}, err
	}
	perComment, err := normalizeLimit(q.RepliesPerComment, DefaultRepliesPerComment, MaxLimit)
	if err != nil {
		return Page[CommentResult]{}, err
	}

	required := []string{"id"}
	if rels.has(RelUser) {
		required = append(required, "user_id")
	}
	if rels.has(RelPost) {
		required = append(required, "post_id")
	}
	cols, err := commentColumns.project(q.Fields["comment"], required...)
	if err != nil {
		return Page[CommentResult]{}, err
	}

	var args argList
	where, equality, err := q.Filter.where(&args)
	if err != nil {
		return Page[CommentResult]{}, err
	}
	keys := q.Sort
	if len(keys) == 0 {
		keys = DefaultCommentSort
	}
	order, err := orderBy("comments", "c", commentSortable, equality, keys)
	if err != nil {
		return Page[CommentResult]{}, err
	}

	query := fmt.Sprintf("SELECT %s FROM comments c%s ORDER BY %s LIMIT %s",
		selectList("c", cols), where, order, args.add(limit+1))
	if q.Offset != nil {
		query += " OFFSET " + args.add(offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args.args...)
	if err != nil {
		return Page[CommentResult]{}, wrapErr("fetch comments", err)
	}
	defer rows.Close()

	items := make([]CommentResult, 0, limit+1)
	for rows.Next() {
		var r CommentResult
		if err := scanInto(rows, cols, &r.Comment); err != nil {
			return Page[CommentResult]{}, wrapErr("scan comment", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return Page[CommentResult]{}, wrapErr("fetch comments", err)
	}
	rows.Close()

	page := Page[CommentResult]{Limit: limit, Offset: offset}
	if len(items) > limit {
		page.HasMore = true
		items = items[:limit]
	}
	if err := attachCommentRelations(ctx, s.db, items, rels, q.Fields, q.Filter.Status, perComment); err != nil {
		return Page[CommentResult]{}, err
	}
	page.Items = items
	return page, nil
}

// Rank returns comments ordered by keys with id ascending as the final tie-break.
func (s *CommentStore) Rank(ctx context.Context, filter CommentFilter, keys []SortKey, limit int, offset *int) (Page[CommentResult], error) {
	if len(keys) == 0 {
		return Page[CommentResult]{}, invalidf("rank requires at least one sort key")
	}
	return s.Fetch(ctx, CommentQuery{Filter: filter, Sort: keys, Limit: limit, Offset: offset})
}

// Thread loads the approved comments of a post as a reply tree with
// authors attached. The comments and their authors are read with one
// query each; replies are grouped under their parents in memory. Replies
// whose parent is not part of the loaded set are dropped.
func (s *CommentStore) Thread(ctx context.Context, postID int64, limit int) ([]models.CommentNode, error) {
	limit, err := normalizeLimit(limit, MaxThread, MaxThread)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectList("c", commentColumns.cols)+`
		FROM comments c
		WHERE c.post_id = $1 AND c.status = $2
		ORDER BY c.created_at ASC, c.id ASC
		LIMIT $3`,
		postID, string(models.CommentStatusApproved), limit)
	if err != nil {
		return nil, wrapErr("load thread", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := scanInto(rows, commentColumns.cols, &c); err != nil {
			return nil, wrapErr("scan comment", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("load thread", err)
	}
	rows.Close()

	if len(comments) == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID).Scan(&exists); err != nil {
			return nil, wrapErr("check post", err)
		}
		if !exists {
			return nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
		}
		return []models.CommentNode{}, nil
	}

	ids := make([]int64, len(comments))
	for i, c := range comments {
		ids[i] = c.UserID
	}
	authors, err := loadUsers(ctx, s.db, ids, nil)
	if err != nil {
		return nil, err
	}
	return BuildTree(comments, authors), nil
}

// BuildTree groups comments by parent and returns the roots in input
// order. Children keep input order under each parent.
func BuildTree(comments []models.Comment, authors map[int64]models.User) []models.CommentNode {
	known := make(map[int64]bool, len(comments))
	for _, c := range comments {
		known[c.ID] = true
	}
	children := make(map[int64][]models.Comment)
	var roots []models.Comment
	for _, c := range comments {
		switch {
		case c.ParentID == nil:
			roots = append(roots, c)
		case known[*c.ParentID]:
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	var build func(c models.Comment, depth int) models.CommentNode
	build = func(c models.Comment, depth int) models.CommentNode {
		node := models.CommentNode{Comment: c, Depth: depth}
		if u, ok := authors[c.UserID]; ok {
			node.Author = &u
		}
		for _, child := range children[c.ID] {
			node.Replies = append(node.Replies, build(child, depth+1))
		}
		return node
	}

	nodes := make([]models.CommentNode, 0, len(roots))
	for _, r := range roots {
		nodes = append(nodes, build(r, 0))
	}
	return nodes
}

// Create inserts a pending comment and bumps the post's comment counter
// in the same transaction. A reply must name a parent on the same post.
func (s *CommentStore) Create(ctx context.Context, c *models.Comment) error {
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("create comment: %w: content is required", ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin create comment", err)
	}
	defer tx.Rollback()

	if c.ParentID != nil {
		var parentPost int64
		err := tx.QueryRowContext(ctx, `SELECT post_id FROM comments WHERE id = $1`, *c.ParentID).Scan(&parentPost)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("parent comment %d: %w", *c.ParentID, ErrNotFound)
		}
		if err != nil {
			return wrapErr("load parent comment", err)
		}
		if parentPost != c.PostID {
			return fmt.Errorf("comment on post %d: %w", c.PostID, ErrParentMismatch)
		}
	}

	c.Status = models.CommentStatusPending
	err = tx.QueryRowContext(ctx, `
		INSERT INTO comments (content, status, user_id, post_id, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, likes_count, created_at, updated_at`,
		c.Content, string(c.Status), c.UserID, c.PostID, c.ParentID,
	).Scan(&c.ID, &c.LikesCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return wrapErr("create comment", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1`, c.PostID); err != nil {
		return wrapErr("increment comments count", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit create comment", err)
	}
	return nil
}

// Moderate approves or rejects a pending comment.
func (s *CommentStore) Moderate(ctx context.Context, id int64, next models.CommentStatus) error {
	if !next.Valid() {
		return fmt.Errorf("moderate comment: %w: unknown status %q", ErrInvalidInput, next)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("begin moderate", err)
	}
	defer tx.Rollback()

	var current models.CommentStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM comments WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return wrapErr("lock comment", err)
	}
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("comment %d: %w: %s to %s", id, ErrInvalidTransition, current, next)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE comments SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(next)); err != nil {
		return wrapErr("update comment status", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("commit moderate", err)
	}
	return nil
}

// CommentResult is a comment with the relations requested from the
// planner. Unrequested relations return ErrRelationNotLoaded.
type CommentResult struct {
	models.Comment

	loaded  relationSet
	user    *models.User
	post    *models.Post
	replies []models.Comment
}

func (r CommentResult) User() (*models.User, error) {
	if !r.loaded.has(RelUser) {
		return nil, notLoaded("comment", RelUser)
	}
	return r.user, nil
}

func (r CommentResult) Post() (*models.Post, error) {
	if !r.loaded.has(RelPost) {
		return nil, notLoaded("comment", RelPost)
	}
	return r.post, nil
}

func (r CommentResult) Replies() ([]models.Comment, error) {
	if !r.loaded.has(RelReplies) {
		return nil, notLoaded("comment", RelReplies)
	}
	return r.replies, nil
}

type commentJSON struct {
	models.Comment
	Relations []Relation        `json:"relations,omitempty"`
	User      *models.User      `json:"user,omitempty"`
	Post      *models.Post      `json:"post,omitempty"`
	Replies   *[]models.Comment `json:"replies,omitempty"`
}

func (r CommentResult) MarshalJSON() ([]byte, error) {
	out := commentJSON{Comment: r.Comment, Relations: r.loaded.list(), User: r.user, Post: r.post}
	if r.loaded.has(RelReplies) {
		out.Replies = &r.replies
	}
	return json.Marshal(out)
}

func (r *CommentResult) UnmarshalJSON(data []byte) error {
	var in commentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = CommentResult{Comment: in.Comment, loaded: newRelationSet(in.Relations), user: in.User, post: in.Post}
	if in.Replies != nil {
		r.replies = *in.Replies
	} else if r.loaded.has(RelReplies) {
		r.replies = []models.Comment{}
	}
	return nil
}

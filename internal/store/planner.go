// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// planner.go batch-loads relations for a page of base rows. Each loader
// collects the foreign keys of the page, issues exactly one query with an
// IN list and hands back a map keyed by the owning id, so a listing costs
// one base query plus one query per requested relation no matter how many
// rows it returns.
package store

import (
	"context"
	"fmt"
	"slices"

	"blogstats/internal/models"
)

// Relation names a related collection the planner can attach.
type Relation string

const (
	RelUser         Relation = "user"
	RelCategory     Relation = "category"
	RelTags         Relation = "tags"
	RelComments     Relation = "comments"
	RelCommentsUser Relation = "comments.user"
	RelPost         Relation = "post"
	RelReplies      Relation = "replies"
)

// PostRelations are the relations PostStore.Fetch accepts.
var PostRelations = []Relation{RelUser, RelCategory, RelTags, RelComments, RelCommentsUser}

// CommentRelations are the relations CommentStore.Fetch accepts.
var CommentRelations = []Relation{RelUser, RelPost, RelReplies}

type relationSet map[Relation]bool

func (s relationSet) has(r Relation) bool { return s[r] }

// list returns the loaded relations in a stable order.
func (s relationSet) list() []Relation {
	out := make([]Relation, 0, len(s))
	for r, ok := range s {
		if ok {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}

func newRelationSet(rels []Relation) relationSet {
	set := make(relationSet, len(rels))
	for _, r := range rels {
		set[r] = true
	}
	return set
}

// parseRelations validates rels against the allowed list.
func parseRelations(allowed, rels []Relation) (relationSet, error) {
	set := make(relationSet, len(rels))
	for _, r := range rels {
		if !slices.Contains(allowed, r) {
			return nil, invalidf("unknown relation %q", r)
		}
		set[r] = true
	}
	if set.has(RelCommentsUser) && !set.has(RelComments) {
		return nil, invalidf("relation %q requires %q", RelCommentsUser, RelComments)
	}
	return set, nil
}

// Fields restricts the columns loaded per entity. Keys are entity names
// ("post", "user", "category", "tag", "comment"); a missing key loads
// every column of that entity. Keys the planner needs to associate rows
// are always loaded.
type Fields map[string][]string

func (f Fields) validate() error {
	for entity := range f {
		switch entity {
		case "post", "user", "category", "tag", "comment":
		default:
			return invalidf("unknown field entity %q", entity)
		}
	}
	return nil
}

// Page is one bounded slice of a listing. HasMore is derived from reading
// one row past the limit.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func loadUsers(ctx context.Context, q Querier, ids []int64, fields []string) (map[int64]models.User, error) {
	out := make(map[int64]models.User)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	cols, err := userColumns.project(fields, "id")
	if err != nil {
		return nil, err
	}

	var args argList
	query := fmt.Sprintf(`SELECT %s FROM users u WHERE u.id IN (%s)`, selectList("u", cols), args.addAll(ids))
	rows, err := q.QueryContext(ctx, query, args.args...)
	if err != nil {
		return nil, wrapErr("load users", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := scanInto(rows, cols, &u); err != nil {
			return nil, wrapErr("scan user", err)
		}
		out[u.ID] = u
	}
	return out, wrapErr("load users", rows.Err())
}

func loadCategories(ctx context.Context, q Querier, ids []int64, fields []string) (map[int64]models.Category, error) {
	out := make(map[int64]models.Category)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	cols, err := categoryColumns.project(fields, "id")
	if err != nil {
		return nil, err
	}

	var args argList
	query := fmt.Sprintf(`SELECT %s FROM categories c WHERE c.id IN (%s)`, selectList("c", cols), args.addAll(ids))
	rows, err := q.QueryContext(ctx, query, args.args...)
	if err != nil {
		return nil, wrapErr("load categories", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Category
		if err := scanInto(rows, cols, &c); err != nil {
			return nil, wrapErr("scan category", err)
		}
		out[c.ID] = c
	}
	return out, wrapErr("load categories", rows.Err())
}

// loadPostTags returns the tags of each post, ordered by tag name.
func loadPostTags(ctx context.Context, q Querier, postIDs []int64, fields []string) (map[int64][]models.Tag, error) {
	out := make(map[int64][]models.Tag)
	postIDs = uniqueIDs(postIDs)
	if len(postIDs) == 0 {
		return out, nil
	}
	cols, err := tagColumns.project(fields, "id")
	if err != nil {
		return nil, err
	}

	var args argList
	query := fmt.Sprintf(`
		SELECT pt.post_id, %s
		FROM post_tag pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id IN (%s)
		ORDER BY pt.post_id, t.name, t.id`,
		selectList("t", cols), args.addAll(postIDs))
	rows, err := q.QueryContext(ctx, query, args.args...)
	if err != nil {
		return nil, wrapErr("load post tags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			postID int64
			t      models.Tag
		)
		if err := scanInto(rows, cols, &t, &postID); err != nil {
			return nil, wrapErr("scan tag", err)
		}
		out[postID] = append(out[postID], t)
	}
	return out, wrapErr("load post tags", rows.Err())
}

func loadPosts(ctx context.Context, q Querier, ids []int64, fields []string) (map[int64]models.Post, error) {
	out := make(map[int64]models.Post)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	cols, err := postColumns.project(fields, "id")
	if err != nil {
		return nil, err
	}

	var args argList
	query := fmt.Sprintf(`SELECT %s FROM posts p WHERE p.id IN (%s)`, selectList("p", cols), args.addAll(ids))
	rows, err := q.QueryContext(ctx, query, args.args...)
	if err != nil {
		return nil, wrapErr("load posts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Post
		if err := scanInto(rows, cols, &p); err != nil {
			return nil, wrapErr("scan post", err)
		}
		out[p.ID] = p
	}
	return out, wrapErr("load posts", rows.Err())
}

// commentBatch describes a capped, per-owner batch load of comments.
type commentBatch struct {
	key     string // "post_id" or "parent_id"
	keys    []int64
	status  models.CommentStatus
	perKey  int
	order   string // ORDER BY within each owner, columns qualified with c.
	fields  []string
	require []string
}

// loadComments loads at most perKey comments per owner in one query,
// numbering rows per owner with ROW_NUMBER so the cap is applied by the
// database rather than in memory.
func loadComments(ctx context.Context, q Querier, b commentBatch) (map[int64][]models.Comment, error) {
	out := make(map[int64][]models.Comment)
	keys := uniqueIDs(b.keys)
	if len(keys) == 0 {
		return out, nil
	}
	cols, err := commentColumns.project(b.fields, append([]string{"id", b.key}, b.require...)...)
	if err != nil {
		return nil, err
	}

	var args argList
	where := fmt.Sprintf("c.%s IN (%s)", b.key, args.addAll(keys))
	if b.status != "" {
		where += " AND c.status = " + args.add(string(b.status))
	}
	query := fmt.Sprintf(`
		SELECT %s FROM (
			SELECT c.*, ROW_NUMBER() OVER (PARTITION BY c.%s ORDER BY %s) AS rn
			FROM comments c
			WHERE %s
		) c
		WHERE c.rn <= %s
		ORDER BY c.%s, %s`,
		selectList("c", cols), b.key, b.order, where, args.add(b.perKey), b.key, b.order)

	rows, err := q.QueryContext(ctx, query, args.args...)
	if err != nil {
		return nil, wrapErr("load comments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Comment
		if err := scanInto(rows, cols, &c); err != nil {
			return nil, wrapErr("scan comment", err)
		}
		owner := c.PostID
		if b.key == "parent_id" && c.ParentID != nil {
			owner = *c.ParentID
		}
		out[owner] = append(out[owner], c)
	}
	return out, wrapErr("load comments", rows.Err())
}

// attachPostRelations fills the requested relations of every result,
// issuing one query per relation.
func attachPostRelations(ctx context.Context, q Querier, items []PostResult, rels relationSet, fields Fields, commentsPerPost int) error {
	for i := range items {
		items[i].loaded = rels
	}
	if len(items) == 0 {
		return nil
	}

	postIDs := make([]int64, len(items))
	for i := range items {
		postIDs[i] = items[i].ID
	}

	if rels.has(RelUser) {
		ids := make([]int64, len(items))
		for i := range items {
			ids[i] = items[i].UserID
		}
		users, err := loadUsers(ctx, q, ids, fields["user"])
		if err != nil {
			return err
		}
		for i := range items {
			if u, ok := users[items[i].UserID]; ok {
				items[i].user = &u
			}
		}
	}

	if rels.has(RelCategory) {
		ids := make([]int64, len(items))
		for i := range items {
			ids[i] = items[i].CategoryID
		}
		cats, err := loadCategories(ctx, q, ids, fields["category"])
		if err != nil {
			return err
		}
		for i := range items {
			if c, ok := cats[items[i].CategoryID]; ok {
				items[i].category = &c
			}
		}
	}

	if rels.has(RelTags) {
		tags, err := loadPostTags(ctx, q, postIDs, fields["tag"])
		if err != nil {
			return err
		}
		for i := range items {
			items[i].tags = tags[items[i].ID]
			if items[i].tags == nil {
				items[i].tags = []models.Tag{}
			}
		}
	}

	if rels.has(RelComments) {
		var require []string
		if rels.has(RelCommentsUser) {
			require = append(require, "user_id")
		}
		comments, err := loadComments(ctx, q, commentBatch{
			key:     "post_id",
			keys:    postIDs,
			status:  models.CommentStatusApproved,
			perKey:  commentsPerPost,
			order:   "c.created_at DESC, c.id DESC",
			fields:  fields["comment"],
			require: require,
		})
		if err != nil {
			return err
		}

		var authors map[int64]models.User
		if rels.has(RelCommentsUser) {
			var ids []int64
			for _, cs := range comments {
				for _, c := range cs {
					ids = append(ids, c.UserID)
				}
			}
			if authors, err = loadUsers(ctx, q, ids, fields["user"]); err != nil {
				return err
			}
		}

		commentRels := relationSet{}
		if rels.has(RelCommentsUser) {
			commentRels[RelUser] = true
		}
		for i := range items {
			cs := comments[items[i].ID]
			items[i].comments = make([]CommentResult, len(cs))
			for j, c := range cs {
				cr := CommentResult{Comment: c, loaded: commentRels}
				if u, ok := authors[c.UserID]; ok {
					cr.user = &u
				}
				items[i].comments[j] = cr
			}
		}
	}
	return nil
}

// attachCommentRelations fills the requested relations of every comment.
func attachCommentRelations(ctx context.Context, q Querier, items []CommentResult, rels relationSet, fields Fields, status models.CommentStatus, repliesPerComment int) error {
	for i := range items {
		items[i].loaded = rels
	}
	if len(items) == 0 {
		return nil
	}

	if rels.has(RelUser) {
		ids := make([]int64, len(items))
		for i := range items {
			ids[i] = items[i].UserID
		}
		users, err := loadUsers(ctx, q, ids, fields["user"])
		if err != nil {
			return err
		}
		for i := range items {
			if u, ok := users[items[i].UserID]; ok {
				items[i].user = &u
			}
		}
	}

	if rels.has(RelPost) {
		ids := make([]int64, len(items))
		for i := range items {
			ids[i] = items[i].PostID
		}
		posts, err := loadPosts(ctx, q, ids, fields["post"])
		if err != nil {
			return err
		}
		for i := range items {
			if p, ok := posts[items[i].PostID]; ok {
				items[i].post = &p
			}
		}
	}

	if rels.has(RelReplies) {
		ids := make([]int64, len(items))
		for i := range items {
			ids[i] = items[i].ID
		}
		replies, err := loadComments(ctx, q, commentBatch{
			key:    "parent_id",
			keys:   ids,
			status: status,
			perKey: repliesPerComment,
			order:  "c.created_at ASC, c.id ASC",
			fields: fields["comment"],
		})
		if err != nil {
			return err
		}
		for i := range items {
			items[i].replies = replies[items[i].ID]
			if items[i].replies == nil {
				items[i].replies = []models.Comment{}
			}
		}
	}
	return nil
}

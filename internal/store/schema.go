// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// schema.go mirrors the indexes created by the goose migrations so the
// query builders can refuse filter and sort combinations that no index
// serves, and so startup can detect a database missing an index.
package store

import (
	"context"
	"fmt"
	"slices"
)

// IndexKind distinguishes ordinary B-tree indexes from GIN indexes.
type IndexKind string

const (
	IndexBTree    IndexKind = "btree"
	IndexFullText IndexKind = "fulltext"
	IndexTrigram  IndexKind = "trigram"
)

// Index describes one database index.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Kind    IndexKind
}

// IndexCatalog is the set of indexes the schema is expected to carry.
type IndexCatalog struct {
	indexes []Index
}

func btree(table, name string, columns ...string) Index {
	return Index{Name: name, Table: table, Columns: columns, Kind: IndexBTree}
}

func unique(table, name string, columns ...string) Index {
	return Index{Name: name, Table: table, Columns: columns, Unique: true, Kind: IndexBTree}
}

// Catalog lists every index created by the migrations. Primary keys and
// the implicit indexes behind UNIQUE column constraints are not listed;
// Supports treats "id" as always indexed.
var Catalog = IndexCatalog{indexes: []Index{
	btree("posts", "idx_posts_status", "status"),
	btree("posts", "idx_posts_published_at", "published_at"),
	btree("posts", "idx_posts_user_id", "user_id"),
	btree("posts", "idx_posts_category_id", "category_id"),
	btree("posts", "idx_posts_views_count", "views_count"),
	btree("posts", "idx_posts_likes_count", "likes_count"),
	btree("posts", "idx_posts_comments_count", "comments_count"),
	btree("posts", "idx_posts_created_at", "created_at"),
	btree("posts", "idx_posts_status_published_at", "status", "published_at"),
	btree("posts", "idx_posts_category_published_at", "category_id", "published_at"),
	btree("posts", "idx_posts_user_published_at", "user_id", "published_at"),
	btree("posts", "idx_posts_status_likes_count", "status", "likes_count"),
	btree("posts", "idx_posts_status_views_count", "status", "views_count"),
	{Name: "idx_posts_search_vector", Table: "posts", Columns: []string{"search_vector"}, Kind: IndexFullText},
	{Name: "idx_posts_title_trgm", Table: "posts", Columns: []string{"title"}, Kind: IndexTrigram},

	unique("post_tag", "idx_post_tag_post_tag", "post_id", "tag_id"),
	btree("post_tag", "idx_post_tag_tag_post", "tag_id", "post_id"),

	btree("comments", "idx_comments_status", "status"),
	btree("comments", "idx_comments_user_id", "user_id"),
	btree("comments", "idx_comments_post_id", "post_id"),
	btree("comments", "idx_comments_parent_id", "parent_id"),
	btree("comments", "idx_comments_likes_count", "likes_count"),
	btree("comments", "idx_comments_created_at", "created_at"),
	btree("comments", "idx_comments_post_status", "post_id", "status"),
	btree("comments", "idx_comments_user_status", "user_id", "status"),
	btree("comments", "idx_comments_parent_status", "parent_id", "status"),
	btree("comments", "idx_comments_status_likes_count", "status", "likes_count"),

	btree("likes", "idx_likes_user_id", "user_id"),
	btree("likes", "idx_likes_target", "target_kind", "target_id"),
	btree("likes", "idx_likes_created_at", "created_at"),
	unique("likes", "idx_likes_user_target", "user_id", "target_kind", "target_id"),

	btree("views", "idx_views_post_id", "post_id"),
	btree("views", "idx_views_user_id", "user_id"),
	btree("views", "idx_views_ip_address", "ip_address"),
	btree("views", "idx_views_viewed_at", "viewed_at"),
	btree("views", "idx_views_post_viewed_at", "post_id", "viewed_at"),
	btree("views", "idx_views_ip_viewed_at", "ip_address", "viewed_at"),
	btree("views", "idx_views_user_viewed_at", "user_id", "viewed_at"),

	btree("categories", "idx_categories_name", "name"),
	btree("categories", "idx_categories_user_id", "user_id"),
	btree("categories", "idx_categories_is_active", "is_active"),
	btree("categories", "idx_categories_active_name", "is_active", "name"),
	{Name: "idx_categories_name_trgm", Table: "categories", Columns: []string{"name"}, Kind: IndexTrigram},

	btree("tags", "idx_tags_name", "name"),
	btree("tags", "idx_tags_user_id", "user_id"),
	btree("tags", "idx_tags_is_active", "is_active"),
	{Name: "idx_tags_name_trgm", Table: "tags", Columns: []string{"name"}, Kind: IndexTrigram},

	{Name: "idx_users_name_trgm", Table: "users", Columns: []string{"name"}, Kind: IndexTrigram},
}}

// Indexes returns a copy of every index in the catalog.
func (c IndexCatalog) Indexes() []Index {
	return slices.Clone(c.indexes)
}

// Has reports whether a B-tree index with exactly the given leading
// columns exists on table.
func (c IndexCatalog) Has(table string, columns ...string) bool {
	for _, idx := range c.indexes {
		if idx.Table == table && idx.Kind == IndexBTree && slices.Equal(idx.Columns, columns) {
			return true
		}
	}
	return false
}

// HasKind reports whether table carries an index of the given kind on column.
func (c IndexCatalog) HasKind(table, column string, kind IndexKind) bool {
	for _, idx := range c.indexes {
		if idx.Table == table && idx.Kind == kind && slices.Contains(idx.Columns, column) {
			return true
		}
	}
	return false
}

// Supports reports whether an index on table can deliver rows ordered by
// sortCol once the equality-filtered columns are fixed: some B-tree index
// must list sortCol right after a prefix made only of equality columns.
func (c IndexCatalog) Supports(table string, equality []string, sortCol string) bool {
	if sortCol == "id" || slices.Contains(equality, sortCol) {
		return true
	}
	for _, idx := range c.indexes {
		if idx.Table != table || idx.Kind != IndexBTree {
			continue
		}
		for _, col := range idx.Columns {
			if col == sortCol {
				return true
			}
			if !slices.Contains(equality, col) {
				break
			}
		}
	}
	return false
}

// VerifyIndexes compares the catalog against pg_indexes and returns the
// names of catalog indexes missing from the connected database.
func VerifyIndexes(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT indexname FROM pg_indexes WHERE schemaname = current_schema()
	`)
	if err != nil {
		return nil, wrapErr("verify indexes", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, wrapErr("scan index name", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("verify indexes", err)
	}

	var missing []string
	for _, idx := range Catalog.indexes {
		if !present[idx.Name] {
			missing = append(missing, idx.Name)
		}
	}
	return missing, nil
}

// String renders an index as table(col, ...).
func (i Index) String() string {
	return fmt.Sprintf("%s(%v)", i.Table, i.Columns)
}

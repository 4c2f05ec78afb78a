// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"slices"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortKey is one ORDER BY term.
type SortKey struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// Asc sorts column ascending.
func Asc(column string) SortKey { return SortKey{Column: column, Direction: Ascending} }

// Desc sorts column descending.
func Desc(column string) SortKey { return SortKey{Column: column, Direction: Descending} }

func (k SortKey) String() string {
	if k.Direction == Descending {
		return "-" + k.Column
	}
	return k.Column
}

// ParseSort parses a comma-separated sort expression such as
// "-likes_count,-views_count". A leading "-" sorts descending.
func ParseSort(expr string) ([]SortKey, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	var keys []SortKey
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		key := Asc(part)
		if name, ok := strings.CutPrefix(part, "-"); ok {
			key = Desc(name)
		}
		if key.Column == "" {
			return nil, invalidf("empty sort key in %q", expr)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

var (
	postSortable    = []string{"id", "published_at", "created_at", "views_count", "likes_count", "comments_count"}
	commentSortable = []string{"id", "created_at", "likes_count"}
)

// orderBy validates keys and renders an ORDER BY clause. The leading key
// must be served by an index given the equality-filtered columns, every
// key must be sortable, and id ASC is appended as the final tie-break so
// the order is total.
func orderBy(table, alias string, sortable, equality []string, keys []SortKey) (string, error) {
	if len(keys) == 0 {
		return "", invalidf("no sort keys")
	}
	seen := make(map[string]bool, len(keys))
	parts := make([]string, 0, len(keys)+1)
	for i, k := range keys {
		if !slices.Contains(sortable, k.Column) {
			return "", invalidf("%s cannot be sorted by %q", table, k.Column)
		}
		if seen[k.Column] {
			return "", invalidf("duplicate sort key %q", k.Column)
		}
		seen[k.Column] = true

		var dir string
		switch k.Direction {
		case Ascending, "":
			dir = "ASC"
		case Descending:
			dir = "DESC"
		default:
			return "", invalidf("unknown sort direction %q", k.Direction)
		}
		if i == 0 && !Catalog.Supports(table, equality, k.Column) {
			return "", invalidf("no index on %s serves sort by %q", table, k.Column)
		}
		parts = append(parts, alias+"."+k.Column+" "+dir)
	}
	if !seen["id"] {
		parts = append(parts, alias+".id ASC")
	}
	return strings.Join(parts, ", "), nil
}

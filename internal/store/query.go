// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"slices"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the page size used when a caller passes 0.
	DefaultLimit = 15
	// MaxLimit bounds every listing, ranking and search.
	MaxLimit = 100
	// MaxThread bounds the number of comments loaded for one thread.
	MaxThread = 500
	// DefaultCommentsPerPost caps comments attached by the planner per post.
	DefaultCommentsPerPost = 20
	// DefaultRepliesPerComment caps replies attached per comment.
	DefaultRepliesPerComment = 20
)

// argList accumulates positional arguments and hands out their $n
// placeholders in order.
type argList struct {
	args []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	return "$" + strconv.Itoa(len(a.args))
}

// addAll appends every id and returns a comma-separated placeholder list
// suitable for an IN (...) predicate.
func (a *argList) addAll(ids []int64) string {
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = a.add(id)
	}
	return strings.Join(placeholders, ", ")
}

// normalizeLimit applies the default page size and rejects out of range values.
func normalizeLimit(limit, def, max int) (int, error) {
	switch {
	case limit == 0:
		return def, nil
	case limit < 0:
		return 0, invalidf("limit %d is negative", limit)
	case limit > max:
		return 0, invalidf("limit %d exceeds maximum %d", limit, max)
	}
	return limit, nil
}

func normalizeOffset(offset *int) (int, error) {
	if offset == nil {
		return 0, nil
	}
	if *offset < 0 {
		return 0, invalidf("offset %d is negative", *offset)
	}
	return *offset, nil
}

// PageOffset returns a pointer to n, selecting paged mode for Fetch and Rank.
func PageOffset(n int) *int {
	return &n
}

// escapeLike escapes the LIKE wildcards in s using the default backslash escape.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// uniqueIDs returns the distinct non-zero ids in ascending order.
func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

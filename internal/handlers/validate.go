package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"blogstats/internal/models"
	"blogstats/internal/store"
)

// Limits on query parameters.
const (
	maxSearchTermLen = 200
	maxPage          = 10_000
)

// badParam reports a malformed query parameter as an invalid filter so it
// maps to 400 like every other rejected query.
func badParam(name, value, reason string) error {
	return fmt.Errorf("%w: %s=%q %s", store.ErrInvalidFilter, name, value, reason)
}

// intParam parses an optional non-negative integer parameter. An absent
// parameter yields fallback.
func intParam(q url.Values, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, badParam(name, raw, "must be a non-negative integer")
	}
	return n, nil
}

// idParam parses an optional positive entity id.
func idParam(q url.Values, name string) (int64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	return parseID(name, raw)
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badParam(name, raw, "must be a positive id")
	}
	return id, nil
}

// timeParam accepts RFC 3339 timestamps or plain dates (midnight UTC).
func timeParam(q url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return &t, nil
	}
	return nil, badParam(name, raw, "must be a date (2006-01-02) or RFC 3339 time")
}

func isPlainDate(raw string) bool {
	_, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	return err == nil
}

// listParam splits a comma-separated parameter, dropping blanks.
func listParam(q url.Values, name string) []string {
	var out []string
	for _, part := range strings.Split(q.Get(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// searchTerm validates the q parameter. Blank terms are allowed and yield
// empty results downstream.
func searchTerm(q url.Values) (string, error) {
	term := strings.TrimSpace(q.Get("q"))
	if utf8.RuneCountInString(term) > maxSearchTermLen {
		return "", badParam("q", string([]rune(term)[:20])+"...", fmt.Sprintf("is too long (max %d characters)", maxSearchTermLen))
	}
	return term, nil
}

// postFilter builds a filter from status, category, author, tag, from and to.
func postFilter(q url.Values) (store.PostFilter, error) {
	var f store.PostFilter
	var err error

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		f.Status = models.PostStatus(raw)
		if !f.Status.Valid() {
			return f, badParam("status", raw, "is not a post status")
		}
	}
	if f.CategoryID, err = idParam(q, "category"); err != nil {
		return f, err
	}
	if f.UserID, err = idParam(q, "author"); err != nil {
		return f, err
	}
	if f.TagID, err = idParam(q, "tag"); err != nil {
		return f, err
	}
	if f.PublishedFrom, err = timeParam(q, "from"); err != nil {
		return f, err
	}
	if f.PublishedTo, err = timeParam(q, "to"); err != nil {
		return f, err
	}
	if f.PublishedFrom != nil && f.PublishedTo != nil && f.PublishedTo.Before(*f.PublishedFrom) {
		return f, badParam("to", q.Get("to"), "is before from")
	}
	if f.PublishedTo != nil && isPlainDate(q.Get("to")) {
		// A plain date includes the whole day: the bound moves to the next midnight.
		end := f.PublishedTo.AddDate(0, 0, 1)
		f.PublishedTo = &end
	}
	return f, nil
}

// postQuery builds a listing query from the request parameters. page is
// 1-based; per_page defaults to store.DefaultLimit.
func postQuery(q url.Values) (store.PostQuery, error) {
	filter, err := postFilter(q)
	if err != nil {
		return store.PostQuery{}, err
	}

	sort := store.DefaultPostSort
	if raw := q.Get("sort"); strings.TrimSpace(raw) != "" {
		if sort, err = store.ParseSort(raw); err != nil {
			return store.PostQuery{}, err
		}
	}

	perPage, err := intParam(q, "per_page", store.DefaultLimit)
	if err != nil {
		return store.PostQuery{}, err
	}
	if perPage == 0 || perPage > store.MaxLimit {
		return store.PostQuery{}, badParam("per_page", q.Get("per_page"), fmt.Sprintf("must be between 1 and %d", store.MaxLimit))
	}
	page, err := intParam(q, "page", 1)
	if err != nil {
		return store.PostQuery{}, err
	}
	if page < 1 || page > maxPage {
		return store.PostQuery{}, badParam("page", q.Get("page"), fmt.Sprintf("must be between 1 and %d", maxPage))
	}

	rels := []store.Relation{store.RelUser, store.RelCategory}
	if q.Has("include") {
		rels = nil
		for _, name := range listParam(q, "include") {
			rels = append(rels, store.Relation(name))
		}
	}

	var fields store.Fields
	if cols := listParam(q, "fields"); len(cols) > 0 {
		fields = store.Fields{"post": cols}
	}

	return store.PostQuery{
		Filter:    filter,
		Sort:      sort,
		Relations: rels,
		Fields:    fields,
		Limit:     perPage,
		Offset:    store.PageOffset((page - 1) * perPage),
	}, nil
}

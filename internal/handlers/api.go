// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers exposes the analytics service as a read-only JSON API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"blogstats/internal/analytics"
	"blogstats/internal/middleware"
	"blogstats/internal/models"
	"blogstats/internal/store"
)

// Analytics is the read surface the API serves. *analytics.Service
// satisfies it.
type Analytics interface {
	GlobalStats(ctx context.Context) (*models.GlobalStats, error)
	PostTotals(ctx context.Context) (*models.PostTotals, error)
	MonthlySeries(ctx context.Context, months int) ([]models.MonthlyPoint, error)
	EntityRanking(ctx context.Context, kind models.EntityKind, limit int, mode models.RankingMode) ([]models.EntityRank, error)
	ListPosts(ctx context.Context, q store.PostQuery) (store.Page[store.PostResult], error)
	RankPosts(ctx context.Context, filter store.PostFilter, keys []store.SortKey, limit int, offset *int) (store.Page[store.PostResult], error)
	PopularPosts(ctx context.Context, limit int) ([]store.PostResult, error)
	RecentPosts(ctx context.Context, limit int) ([]store.PostResult, error)
	PostDetail(ctx context.Context, id int64) (*store.PostResult, error)
	PostViewStats(ctx context.Context, id int64) (*models.ViewStats, error)
	CommentThread(ctx context.Context, postID int64) ([]models.CommentNode, error)
	Search(ctx context.Context, term string, limit int) ([]store.PostResult, error)
	SearchAll(ctx context.Context, term string) (*store.SearchResults, error)
	Suggestions(ctx context.Context, term string) ([]string, error)
	Dashboard(ctx context.Context) (*analytics.Dashboard, error)
}

// Pinger reports whether the database is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// API groups the JSON endpoints.
type API struct {
	svc Analytics
	db  Pinger
}

// NewAPI creates the handler group. db may be nil, in which case the
// health check does not probe the database.
func NewAPI(svc Analytics, db Pinger) *API {
	return &API{svc: svc, db: db}
}

// Health reports liveness and, when configured, database reachability.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			slog.Warn("health check: database unreachable", "error", err)
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats serves GET /api/stats.
func (a *API) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.GlobalStats(r.Context())
	respond(w, r, stats, err)
}

// PostTotals serves GET /api/stats/posts.
func (a *API) PostTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := a.svc.PostTotals(r.Context())
	respond(w, r, totals, err)
}

// Monthly serves GET /api/stats/monthly?months=.
func (a *API) Monthly(w http.ResponseWriter, r *http.Request) {
	months, err := intParam(r.URL.Query(), "months", 12)
	if err != nil {
		writeError(w, r, err)
		return
	}
	series, err := a.svc.MonthlySeries(r.Context(), months)
	respond(w, r, series, err)
}

// Rankings serves GET /api/rankings/{kind}?limit=&mode=.
func (a *API) Rankings(w http.ResponseWriter, r *http.Request) {
	kind := models.EntityKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeError(w, r, badParam("kind", string(kind), "must be category, tag or user"))
		return
	}
	q := r.URL.Query()
	mode := models.RankingModeTopK
	if raw := q.Get("mode"); raw != "" {
		mode = models.RankingMode(raw)
		if !mode.Valid() {
			writeError(w, r, badParam("mode", raw, "must be all or top"))
			return
		}
	}
	limit, err := intParam(q, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ranks, err := a.svc.EntityRanking(r.Context(), kind, limit, mode)
	respond(w, r, ranks, err)
}

// Dashboard serves GET /api/dashboard.
func (a *API) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := a.svc.Dashboard(r.Context())
	respond(w, r, d, err)
}

// ListPosts serves GET /api/posts with filters, sort and page/per_page.
// from is inclusive and to is exclusive; a plain date in to covers that
// whole day.
func (a *API) ListPosts(w http.ResponseWriter, r *http.Request) {
	q, err := postQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.svc.ListPosts(r.Context(), q)
	respond(w, r, page, err)
}

// TopPosts serves GET /api/posts/top?sort=&limit=, a bounded top-K ranking
// without offset paging.
func (a *API) TopPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := postFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	keys, err := store.ParseSort(q.Get("sort"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(keys) == 0 {
		keys = []store.SortKey{store.Desc("views_count")}
	}
	limit, err := intParam(q, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := a.svc.RankPosts(r.Context(), filter, keys, limit, nil)
	respond(w, r, page.Items, err)
}

// PopularPosts serves GET /api/posts/popular?limit=.
func (a *API) PopularPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := a.svc.PopularPosts(r.Context(), limit)
	respond(w, r, posts, err)
}

// RecentPosts serves GET /api/posts/recent?limit=.
func (a *API) RecentPosts(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := a.svc.RecentPosts(r.Context(), limit)
	respond(w, r, posts, err)
}

// PostDetail serves GET /api/posts/{id}.
func (a *API) PostDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	post, err := a.svc.PostDetail(r.Context(), id)
	respond(w, r, post, err)
}

// PostViews serves GET /api/posts/{id}/views.
func (a *API) PostViews(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := a.svc.PostViewStats(r.Context(), id)
	respond(w, r, stats, err)
}

// PostComments serves GET /api/posts/{id}/comments as a nested thread.
func (a *API) PostComments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	thread, err := a.svc.CommentThread(r.Context(), id)
	respond(w, r, thread, err)
}

// Search serves GET /api/search?q=&limit=.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term, err := searchTerm(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := intParam(q, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := a.svc.Search(r.Context(), term, limit)
	respond(w, r, posts, err)
}

// SearchAll serves GET /api/search/all?q=.
func (a *API) SearchAll(w http.ResponseWriter, r *http.Request) {
	term, err := searchTerm(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.svc.SearchAll(r.Context(), term)
	respond(w, r, res, err)
}

// Suggestions serves GET /api/search/suggestions?q=.
func (a *API) Suggestions(w http.ResponseWriter, r *http.Request) {
	term, err := searchTerm(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s, err := a.svc.Suggestions(r.Context(), term)
	respond(w, r, s, err)
}

// respond writes v as JSON, or the mapped error when err is set.
func respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError maps the store's error taxonomy onto HTTP statuses. Client
// errors echo the message; server errors are logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{RequestID: middleware.GetRequestID(r.Context())}
	var status int

	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		body.Error = "not found"
	case errors.Is(err, store.ErrInvalidFilter), errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
		body.Error = err.Error()
	case errors.Is(err, store.ErrStorage), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		body.Error = "temporarily unavailable"
		w.Header().Set("Retry-After", "1")
		slog.Warn("storage failure", "request_id", body.RequestID, "path", r.URL.Path, "error", err)
	default:
		status = http.StatusInternalServerError
		body.Error = "internal server error"
		slog.Error("request failed", "request_id", body.RequestID, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store is the data-access layer. It owns every SQL statement the
// application runs: bounded listings with batch-loaded relations, rankings
// over indexed sort keys, grouped aggregations, full-text search and the
// small write path that keeps denormalized counters in step with the fact
// tables.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"
	"time"
)

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx used by read paths.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is a Querier that can also open transactions. *sql.DB satisfies it.
type DB interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// DefaultSlowQuery is the duration above which CountingDB logs a warning.
const DefaultSlowQuery = 250 * time.Millisecond

// CountingDB wraps a DB, counting every statement issued through it and
// logging slow ones. Statements run inside transactions opened with
// BeginTx are not counted.
type CountingDB struct {
	DB
	slow    time.Duration
	queries atomic.Int64
}

// NewCountingDB wraps db. A zero slow threshold uses DefaultSlowQuery.
func NewCountingDB(db DB, slow time.Duration) *CountingDB {
	if slow == 0 {
		slow = DefaultSlowQuery
	}
	return &CountingDB{DB: db, slow: slow}
}

// Queries returns the number of statements issued since creation or the last Reset.
func (c *CountingDB) Queries() int64 {
	return c.queries.Load()
}

// Reset sets the statement counter back to zero.
func (c *CountingDB) Reset() {
	c.queries.Store(0)
}

func (c *CountingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := c.begin()
	res, err := c.DB.ExecContext(ctx, query, args...)
	c.observe(query, start, err)
	return res, err
}

func (c *CountingDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := c.begin()
	rows, err := c.DB.QueryContext(ctx, query, args...)
	c.observe(query, start, err)
	return rows, err
}

func (c *CountingDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := c.begin()
	row := c.DB.QueryRowContext(ctx, query, args...)
	c.observe(query, start, row.Err())
	return row
}

func (c *CountingDB) begin() time.Time {
	c.queries.Add(1)
	return time.Now()
}

func (c *CountingDB) observe(query string, start time.Time, err error) {
	elapsed := time.Since(start)
	if elapsed >= c.slow {
		slog.Warn("slow query", "duration", elapsed.String(), "query", compact(query))
	}
	if err != nil && err != sql.ErrNoRows {
		slog.Debug("query failed", "error", err, "query", compact(query))
	}
}

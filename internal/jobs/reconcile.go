// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"blogstats/internal/store"
)

// DefaultReconcileSchedule runs the counter repair nightly at 03:00.
const DefaultReconcileSchedule = "0 3 * * *"

// Reconciler repairs denormalized counters. *store.ActivityStore satisfies it.
type Reconciler interface {
	ReconcileCounters(ctx context.Context) (store.ReconcileResult, error)
}

// CounterReconcileJob periodically recomputes views_count, likes_count and
// comments_count from the fact tables. A run that is still going when the
// next one is due causes that next run to be skipped.
type CounterReconcileJob struct {
	reconciler Reconciler
	timeout    time.Duration
	cron       *cron.Cron
}

// NewCounterReconcileJob schedules the job with a standard five-field
// cron expression. Each run is bounded by timeout.
func NewCounterReconcileJob(r Reconciler, schedule string, timeout time.Duration) (*CounterReconcileJob, error) {
	if schedule == "" {
		schedule = DefaultReconcileSchedule
	}
	logger := slogLogger{}
	j := &CounterReconcileJob{
		reconciler: r,
		timeout:    timeout,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("schedule counter reconcile %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins running the job on its schedule.
func (j *CounterReconcileJob) Start() {
	slog.Info("counter reconcile job started", "next", j.Next())
	j.cron.Start()
}

// Stop halts the schedule and returns a context that is done once any
// running job has finished.
func (j *CounterReconcileJob) Stop() context.Context {
	ctx := j.cron.Stop()
	slog.Info("counter reconcile job stopped")
	return ctx
}

// Next returns the next scheduled run, or the zero time before Start.
func (j *CounterReconcileJob) Next() time.Time {
	entries := j.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if entries[0].Next.IsZero() {
		return entries[0].Schedule.Next(time.Now())
	}
	return entries[0].Next
}

func (j *CounterReconcileJob) run() {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	if _, err := j.RunOnce(ctx); err != nil {
		slog.Error("counter reconcile failed", "error", err)
	}
}

// RunOnce performs a single reconciliation.
func (j *CounterReconcileJob) RunOnce(ctx context.Context) (store.ReconcileResult, error) {
	start := time.Now()
	res, err := j.reconciler.ReconcileCounters(ctx)
	if err != nil {
		return res, fmt.Errorf("reconcile counters: %w", err)
	}
	slog.Info("counters reconciled",
		"posts_repaired", res.Posts,
		"comments_repaired", res.Comments,
		"duration", time.Since(start).String(),
	)
	return res, nil
}

// slogLogger adapts cron's logger interface to slog.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}

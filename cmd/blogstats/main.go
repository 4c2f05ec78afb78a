// Package main is the entry point for the blogstats API server.
// It loads configuration, connects to services, sets up routing, starts the
// background counter reconciliation and serves HTTP with graceful shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogstats/internal/analytics"
	"blogstats/internal/cache"
	"blogstats/internal/config"
	"blogstats/internal/database"
	"blogstats/internal/handlers"
	"blogstats/internal/jobs"
	"blogstats/internal/middleware"
	"blogstats/internal/router"
	"blogstats/internal/store"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional file of KEY=value pairs loaded before the environment is read")
	flag.Parse()

	config.LoadDotEnv(*envFile)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: text in development, JSON otherwise.
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Every query shape relies on the catalog's indexes; report any that
	// the live schema lacks.
	if missing, err := store.VerifyIndexes(context.Background(), db); err != nil {
		slog.Warn("could not verify indexes", "error", err)
	} else if len(missing) > 0 {
		slog.Warn("indexes missing from schema", "indexes", missing)
	}

	// Result cache: Valkey when reachable, process memory otherwise.
	backend := cacheBackend(cfg)
	resultCache := cache.New(backend)

	svc := analytics.NewService(
		store.NewCountingDB(db, store.DefaultSlowQuery),
		resultCache,
		analytics.TTLs{
			Stats:      cfg.StatsTTL,
			Dashboard:  cfg.DashboardTTL,
			Popular:    cfg.PopularTTL,
			PostTotals: cfg.PostTotalsTTL,
			Rankings:   cfg.RankingsTTL,
			Listings:   cfg.ListingTTL,
			Search:     cfg.SearchTTL,
		},
	)

	// Nightly repair of denormalized counters.
	reconcile, err := jobs.NewCounterReconcileJob(store.NewActivityStore(db), cfg.ReconcileSchedule, cfg.ReconcileTimeout)
	if err != nil {
		slog.Error("failed to schedule counter reconciliation", "error", err)
		os.Exit(1)
	}
	reconcile.Start()

	searchLimiter := middleware.NewRateLimiter(cfg.SearchRateLimit, cfg.SearchRateBurst)
	defer searchLimiter.Stop()

	r := router.New(handlers.NewAPI(svc, db), router.Options{
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		SearchLimiter:  searchLimiter,
	})

	// WriteTimeout leaves headroom over the per-request deadline so a
	// timed-out query can still be reported as 503.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Let a running reconciliation finish within the same deadline.
	select {
	case <-reconcile.Stop().Done():
	case <-ctx.Done():
		slog.Warn("counter reconciliation still running at shutdown")
	}

	if rb, ok := backend.(*cache.RedisBackend); ok {
		rb.Close()
	}

	slog.Info("server stopped gracefully")
}

// cacheBackend connects to Valkey unless caching there is disabled or the
// server is unreachable, in which case results are cached in process.
func cacheBackend(cfg *config.Config) cache.Backend {
	if cfg.CacheDisabled {
		slog.Info("valkey disabled, using in-process cache")
		return cache.NewMemoryBackend()
	}
	client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Warn("valkey unavailable, using in-process cache", "error", err)
		return cache.NewMemoryBackend()
	}
	return cache.NewRedisBackend(client)
}

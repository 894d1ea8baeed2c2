package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mockvest/trading-engine/internal/contest"
	"github.com/mockvest/trading-engine/internal/leaderboard"
	"github.com/mockvest/trading-engine/internal/ledger"
	"github.com/mockvest/trading-engine/internal/metrics"
	"github.com/mockvest/trading-engine/internal/model"
	"github.com/mockvest/trading-engine/internal/pricefeed"
	"github.com/mockvest/trading-engine/internal/server"
	"github.com/mockvest/trading-engine/internal/store"
	"github.com/mockvest/trading-engine/internal/valuation"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	feedURL := os.Getenv("FEED_URL")
	if feedURL == "" {
		slog.Error("FEED_URL is required")
		os.Exit(1)
	}

	var cleanup []func()
	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Redis (quote cache + journal read cache) ---
	var rdb *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	// --- Price feed ---
	var feed pricefeed.Source = pricefeed.NewClient(feedURL, pricefeed.DefaultTimeout)
	if rdb != nil {
		feed = pricefeed.NewCache(feed, rdb, 15*time.Second)
		slog.Info("quote cache enabled")
	}

	// --- Trade journal ---
	var journal store.Store
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		journal = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		if rdb != nil {
			journal = store.NewCachedStore(journal, rdb, 30*time.Second)
			slog.Info("journal cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory journal (trades will not persist)")
		journal = store.NewMemoryStore()
	}

	// --- Contest catalog ---
	var catalog []model.Contest
	if path := os.Getenv("CONTESTS_FILE"); path != "" {
		var err error
		catalog, err = contest.LoadCatalog(path)
		if err != nil {
			slog.Error("failed to load contest catalog", "path", path, "err", err)
			os.Exit(1)
		}
		slog.Info("contest catalog loaded", "path", path, "contests", len(catalog))
	} else {
		catalog = contest.DefaultCatalog()
	}
	registry, err := contest.NewRegistry(catalog)
	if err != nil {
		slog.Error("invalid contest catalog", "err", err)
		os.Exit(1)
	}

	// --- Core components ---
	led := ledger.New()
	valuator := valuation.New(feed)
	ranker := leaderboard.NewRanker(registry, led, valuator)

	// --- WebSocket hub ---
	wsHub := server.NewWSHub()
	go wsHub.Run()

	svc := server.NewService(led, registry, valuator, ranker, feed, journal, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"trading-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		svc.Mount(r)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("trading-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down trading-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("trading-engine stopped")
}

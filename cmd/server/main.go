package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"ripple-feed/internal/cache"
	"ripple-feed/internal/config"
	"ripple-feed/internal/database"
	"ripple-feed/internal/feed"
	"ripple-feed/internal/handlers"
	"ripple-feed/internal/middleware"
	"ripple-feed/internal/utils"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg.Debug)

	db, err := database.NewMongoDB(cfg.Database.URI, cfg.Database.Name)
	if err != nil {
		slog.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureIndexes(ctx); err != nil {
		cancel()
		slog.Error("failed to ensure indexes", "error", err)
		os.Exit(1)
	}
	cancel()

	store, err := cache.NewRedis(cfg.Cache.Addr, cfg.Cache.Password)
	if err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := utils.NewMetrics(registry)

	pages := feed.NewPageCache(store, cfg.Cache.FeedTTL).
		WithMetrics(metrics.PageCacheHits.Inc, metrics.PageCacheMisses.Inc, metrics.PageCacheCorruptions.Inc)
	rels := feed.NewSnapshotCache(db, store, cfg.Cache.RelationshipTTL, metrics.SnapshotRebuilds.Inc)
	ranker := feed.NewRanker(db)
	scores := feed.NewScoreMaintainer(db, *cfg.Score)

	feedService := feed.NewService(db, pages, rels, ranker, scores, metrics, *cfg.Feed)
	auth := middleware.NewAuthenticator(cfg.JWTSecret)
	server := handlers.NewServer(feedService, auth)

	corsConfig := middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.ApplyCORS(auth.Wrap(h), corsConfig)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HandleHealth())
	if cfg.Server.MetricsEnabled {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/feed", protected(server.HandleFeed()))
	mux.HandleFunc("/feed/trending", protected(server.HandleTrending()))
	mux.HandleFunc("/feed/hashtag", protected(server.HandleHashtagFeed()))

	mux.HandleFunc("/post", protected(server.HandlePost()))
	mux.HandleFunc("/post/like", protected(server.HandleLike()))
	mux.HandleFunc("/post/unlike", protected(server.HandleUnlike()))
	mux.HandleFunc("/post/share", protected(server.HandleShare()))
	mux.HandleFunc("/post/view", protected(server.HandleView()))
	mux.HandleFunc("/post/save", protected(server.HandleSave()))
	mux.HandleFunc("/post/unsave", protected(server.HandleUnsave()))
	mux.HandleFunc("/comment", protected(server.HandleComment()))

	mux.HandleFunc("/user/follow", protected(server.HandleFollow()))
	mux.HandleFunc("/user/unfollow", protected(server.HandleUnfollow()))
	mux.HandleFunc("/user/block", protected(server.HandleBlock()))
	mux.HandleFunc("/user/unblock", protected(server.HandleUnblock()))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("starting feed server", "addr", addr, "metrics", cfg.Server.MetricsEnabled)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

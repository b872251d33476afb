package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/speechtotext/internal/api"
	"github.com/nikhilbhutani/speechtotext/internal/api/handlers"
	"github.com/nikhilbhutani/speechtotext/internal/auth"
	"github.com/nikhilbhutani/speechtotext/internal/cache"
	"github.com/nikhilbhutani/speechtotext/internal/config"
	"github.com/nikhilbhutani/speechtotext/internal/database"
	"github.com/nikhilbhutani/speechtotext/internal/history"
	"github.com/nikhilbhutani/speechtotext/internal/queue"
	"github.com/nikhilbhutani/speechtotext/internal/stt"
	"github.com/nikhilbhutani/speechtotext/internal/transcription"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	// Redis connection (optional; history falls back to Postgres on every read)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache", "error", err)
	}
	defer rdb.Close()
	historyCache := cache.NewCache(rdb, "stt:")

	provider, err := stt.NewFromConfig(cfg.STT)
	if err != nil {
		slog.Error("failed to create STT provider", "error", err)
		os.Exit(1)
	}
	relay := transcription.NewRelay(provider, transcription.Config{
		SpoolDir:      cfg.STT.SpoolDir,
		MaxAudioBytes: cfg.STT.MaxAudioBytes,
		Timeout:       cfg.STT.Timeout,
	})

	jobs := queue.NewClient(cfg.Redis, cfg.STT.Timeout)
	defer jobs.Close()

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	router := api.NewRouter(cfg, api.Deps{
		Auth:    auth.NewService(auth.NewPostgresStore(db), tokens, cfg.Auth.BcryptCost),
		Tokens:  tokens,
		History: history.NewService(history.NewPostgresStore(db), historyCache),
		Relay:   relay,
		Jobs:    jobs,
		Health: map[string]handlers.Pinger{
			"database": db,
			"redis":    historyCache,
		},
	})
	defer router.Close()

	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router.Setup(),
		ReadTimeout: 2 * time.Minute,
		// A synchronous transcription holds the response open for up to STT_TIMEOUT.
		WriteTimeout: cfg.STT.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "stt_backend", provider.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/speechtotext/internal/cache"
	"github.com/nikhilbhutani/speechtotext/internal/config"
	"github.com/nikhilbhutani/speechtotext/internal/database"
	"github.com/nikhilbhutani/speechtotext/internal/history"
	"github.com/nikhilbhutani/speechtotext/internal/queue"
	"github.com/nikhilbhutani/speechtotext/internal/queue/workers"
	"github.com/nikhilbhutani/speechtotext/internal/stt"
	"github.com/nikhilbhutani/speechtotext/internal/transcription"
)

const concurrency = 4

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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

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
	historySvc := history.NewService(history.NewPostgresStore(db), cache.NewCache(rdb, "stt:"))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				queue.QueueDefault: 1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	// Register workers
	transcriptionWorker := workers.NewTranscriptionWorker(relay, historySvc)
	registry.Register(queue.TypeTranscriptionRun, asynq.HandlerFunc(transcriptionWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", concurrency, "stt_backend", provider.Name())
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

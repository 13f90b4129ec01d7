package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/maraichr/notebook/internal/config"
	"github.com/maraichr/notebook/internal/export"
	"github.com/maraichr/notebook/internal/metadata"
	"github.com/maraichr/notebook/internal/question"
	"github.com/maraichr/notebook/internal/store"
	minioclient "github.com/maraichr/notebook/internal/store/minio"
	"github.com/maraichr/notebook/internal/store/postgres"
	vk "github.com/maraichr/notebook/internal/store/valkey"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	s := store.New(pool)

	// Valkey
	vkClient, err := vk.NewClient(ctx, cfg.Valkey)
	if err != nil {
		logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer vkClient.Close()
	logger.Info("connected to valkey")

	// MinIO
	mc, err := minioclient.NewClient(cfg.MinIO)
	if err != nil {
		logger.Error("failed to connect to minio", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mc.EnsureBucket(ctx); err != nil {
		logger.Error("failed to ensure bucket", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("connected to minio", slog.String("bucket", mc.Bucket()))

	var catalog metadata.Source = s
	if cfg.Notebook.SampleCatalog {
		catalog = metadata.WithFallback(s, metadata.SampleDatabase())
	}
	questions := question.NewService(s, catalog, mc, logger)

	consumer := export.NewConsumer(vkClient, cfg.Export.ConsumerName, logger)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure consumer group", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("starting export worker, consuming from stream",
		slog.String("stream", export.StreamName),
		slog.String("consumer", cfg.Export.ConsumerName))
	err = consumer.Consume(ctx, func(ctx context.Context, msg export.Message) error {
		key, err := questions.Export(ctx, msg.QuestionID)
		if err != nil {
			return err
		}
		logger.Info("exported question",
			slog.String("question_id", msg.QuestionID.String()),
			slog.String("requested_by", msg.RequestedBy),
			slog.String("key", key))
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("consumer error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

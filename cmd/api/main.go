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

	"github.com/joho/godotenv"

	"github.com/maraichr/notebook/internal/api"
	"github.com/maraichr/notebook/internal/auth"
	"github.com/maraichr/notebook/internal/config"
	"github.com/maraichr/notebook/internal/export"
	"github.com/maraichr/notebook/internal/metadata"
	"github.com/maraichr/notebook/internal/notebook/session"
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

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database pool
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	s := store.New(pool)

	var catalog metadata.Source = s
	if cfg.Notebook.SampleCatalog {
		catalog = metadata.WithFallback(s, metadata.SampleDatabase())
		logger.Info("sample catalog enabled")
	}

	deps := &api.RouterDeps{DB: pool}

	// MinIO (optional, enables question snapshots)
	var snapshots question.Snapshots
	mc, err := minioclient.NewClient(cfg.MinIO)
	if err != nil {
		logger.Warn("minio connection failed, snapshots disabled", slog.String("error", err.Error()))
	} else if err := mc.EnsureBucket(ctx); err != nil {
		logger.Warn("minio bucket unavailable, snapshots disabled", slog.String("error", err.Error()))
	} else {
		snapshots = mc
		logger.Info("connected to minio", slog.String("bucket", mc.Bucket()))
	}

	// Valkey (optional, enables notebook sessions and async exports)
	vkClient, err := vk.NewClient(ctx, cfg.Valkey)
	if err != nil {
		logger.Warn("valkey connection failed, notebook sessions disabled", slog.String("error", err.Error()))
	} else {
		deps.Sessions = session.NewManager(vkClient, cfg.Notebook.SessionTTL)
		if snapshots != nil {
			deps.Exports = export.NewProducer(vkClient)
		}
		defer vkClient.Close()
		logger.Info("connected to valkey")
	}

	// Auth (optional, requires AUTH_ENABLED=true and an issuer URL)
	if cfg.Auth.Enabled {
		verifier, err := auth.NewVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.PublicIssuer, cfg.Auth.Audience)
		if err != nil {
			logger.Error("failed to init OIDC verifier", slog.String("error", err.Error()))
			os.Exit(1)
		}
		deps.Verifier = verifier
		logger.Info("OIDC auth enabled", slog.String("issuer", cfg.Auth.IssuerURL))
	}

	questions := question.NewService(s, catalog, snapshots, logger)
	router := api.NewRouter(logger, questions, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting API server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

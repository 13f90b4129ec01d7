package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/modelcontextprotocol/go-sdk/oauthex"

	"github.com/maraichr/notebook/internal/auth"
	"github.com/maraichr/notebook/internal/config"
	"github.com/maraichr/notebook/internal/mcp"
	"github.com/maraichr/notebook/internal/mcp/tools"
	"github.com/maraichr/notebook/internal/metadata"
	"github.com/maraichr/notebook/internal/notebook/session"
	"github.com/maraichr/notebook/internal/question"
	"github.com/maraichr/notebook/internal/store"
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

	var catalog metadata.Source = s
	if cfg.Notebook.SampleCatalog {
		catalog = metadata.WithFallback(s, metadata.SampleDatabase())
	}

	deps := mcp.ServerDeps{
		Questions: question.NewService(s, catalog, nil, logger),
		Logger:    logger,
	}

	// Valkey (optional for sessions)
	vkClient, err := vk.NewClient(ctx, cfg.Valkey)
	if err != nil {
		logger.Warn("valkey unavailable, sessions disabled", slog.String("error", err.Error()))
	} else {
		defer vkClient.Close()
		deps.Sessions = session.NewManager(vkClient, cfg.Notebook.SessionTTL)
		logger.Info("connected to valkey")
	}

	mcpServer := mcp.NewServer(deps)

	// Wire tool handlers (in cmd to avoid import cycle mcp <-> mcp/tools)
	listQuestions := tools.NewListQuestionsHandler(mcpServer, logger)
	getSteps := tools.NewGetNotebookStepsHandler(mcpServer, logger)
	revertStep := tools.NewRevertStepHandler(mcpServer, logger)

	sdkServer := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "notebook", Version: "1.0.0"}, nil)

	sdkmcp.AddTool(sdkServer, &sdkmcp.Tool{
		Name:        mcp.ToolListQuestions,
		Description: "List saved questions with their database and query type. Supports limit and offset.",
	}, tools.WrapHandler[tools.ListQuestionsParams](listQuestions))

	sdkmcp.AddTool(sdkServer, &sdkmcp.Tool{
		Name:        mcp.ToolGetNotebookSteps,
		Description: "Show the notebook steps (data, join, custom column, filter, summarize, sort, limit) of a saved question or an inline dataset query. Pass open_steps as comma-separated step ids to show empty steps, and session_id to remember them across calls.",
	}, tools.WrapHandler[tools.GetNotebookStepsParams](getSteps))

	sdkmcp.AddTool(sdkServer, &sdkmcp.Tool{
		Name:        mcp.ToolRevertStep,
		Description: "Remove the clauses of one notebook step and show the resulting notebook. Set save=true with question_id to write the change back.",
	}, tools.WrapHandler[tools.RevertStepParams](revertStep))

	// Stateless mode ignores stale session IDs after restarts. Notebook
	// sessions live in Valkey via the session_id tool param.
	sdkHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return sdkServer },
		&sdkmcp.StreamableHTTPOptions{Stateless: true},
	)

	mux := http.NewServeMux()

	var mcpHandler http.Handler = sdkHandler
	if cfg.Auth.Enabled {
		verifier, err := auth.NewVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.PublicIssuer, cfg.Auth.Audience)
		if err != nil {
			logger.Error("failed to init OIDC verifier for MCP", slog.String("error", err.Error()))
			os.Exit(1)
		}

		resourceMetadataURL := ""
		if cfg.MCP.BaseURL != "" {
			resourceMetadataURL = cfg.MCP.BaseURL + "/.well-known/oauth-protected-resource"

			authServerURL := cfg.Auth.PublicIssuer
			if authServerURL == "" {
				authServerURL = cfg.Auth.IssuerURL
			}

			// RFC 9728 Protected Resource Metadata
			prm := &oauthex.ProtectedResourceMetadata{
				Resource:               cfg.MCP.BaseURL,
				AuthorizationServers:   []string{authServerURL},
				ScopesSupported:        []string{"openid", auth.ScopeRead, auth.ScopeWrite},
				BearerMethodsSupported: []string{"header"},
				ResourceName:           "Notebook MCP Server",
			}
			mux.Handle("/.well-known/oauth-protected-resource", sdkauth.ProtectedResourceMetadataHandler(prm))
			logger.Info("RFC 9728 metadata endpoint enabled", slog.String("url", resourceMetadataURL))
		}

		mcpVerifier := auth.NewMCPTokenVerifier(verifier)
		mcpHandler = sdkauth.RequireBearerToken(mcpVerifier, &sdkauth.RequireBearerTokenOptions{
			ResourceMetadataURL: resourceMetadataURL,
		})(sdkHandler)
		logger.Info("MCP OIDC auth enabled", slog.String("issuer", cfg.Auth.IssuerURL))
	} else {
		mcpHandler = auth.DevModeMiddleware(logger)(sdkHandler)
	}

	mux.Handle("/mcp", mcpHandler)

	httpServer := &http.Server{Addr: cfg.MCP.Addr, Handler: mux}

	go func() {
		logger.Info("MCP server listening", slog.String("addr", cfg.MCP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP HTTP server error", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	logger.Info("MCP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("MCP HTTP shutdown", slog.String("error", err.Error()))
	}
	logger.Info("MCP server stopped")
}

// Shoply - Conversational Storefront Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkrylov/shoply/internal/api"
	"github.com/dkrylov/shoply/internal/auth"
	"github.com/dkrylov/shoply/internal/chat"
	"github.com/dkrylov/shoply/internal/config"
	"github.com/dkrylov/shoply/internal/metrics"
	"github.com/dkrylov/shoply/internal/middleware"
	"github.com/dkrylov/shoply/internal/rag"
	"github.com/dkrylov/shoply/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Pick the assistant. Without an API key the store still works,
	// with canned chat responses instead of retrieval-backed ones.
	var assistant rag.Assistant
	if cfg.AIEnabled() {
		assistant = rag.NewOpenAI(cfg.AI)
		slog.Info("AI assistant enabled", "chat_model", cfg.AI.ChatModel, "embedding_model", cfg.AI.EmbeddingModel)
	} else {
		assistant = rag.NewFallback()
		slog.Info("AI assistant disabled (OPENAI_API_KEY not set), using fallback responses")
	}

	// Build the retrieval index from the current catalog. Failure is
	// not fatal: /chat/init rebuilds it on demand.
	if products, err := repo.ListProducts(context.Background(), store.ProductFilter{}); err != nil {
		slog.Warn("Failed to load catalog for indexing", "error", err)
	} else if err := assistant.Reindex(context.Background(), products); err != nil {
		slog.Warn("Failed to build retrieval index", "error", err)
	} else {
		slog.Info("Retrieval index built", "products", len(products))
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, cfg)
	authHandler := api.NewAuthHandler(baseHandler)
	productHandler := api.NewProductHandler(baseHandler)
	orderHandler := api.NewOrderHandler(baseHandler)
	chatHandler := chat.NewHandler(repo, assistant, chat.NewPresenter(cfg.CurrencySymbol))
	wsHandler := chat.NewWSHandler(chatHandler)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(metrics.Middleware)
	corsOrigins := []string{cfg.FrontendURL}
	if cfg.FrontendURL == "" {
		corsOrigins = []string{"*"}
	}
	r.Use(middleware.CORS(corsOrigins))
	r.Use(auth.Middleware(repo))

	r.Handle("/metrics", metrics.Handler())

	authHandler.RegisterRoutes(r)
	productHandler.RegisterRoutes(r)
	orderHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Expired auth sessions are swept in the background.
	auth.StartSessionSweeper(ctx, repo, time.Hour)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

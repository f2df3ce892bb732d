package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"boardsync/internal/auth"
	"boardsync/internal/board"
	"boardsync/internal/cache"
	"boardsync/internal/config"
	"boardsync/internal/domain/models"
	"boardsync/internal/handler"
	"boardsync/internal/middleware"
	"boardsync/internal/store"
	"boardsync/internal/store/postgres"
	"boardsync/internal/syncer"
	"boardsync/internal/template"
	"boardsync/internal/users"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	colls := store.NewCollections(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool,
		colls.Boards, colls.Columns, colls.Cards, colls.Comments, colls.Users); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	adapter, err := postgres.New(ctx, pool)
	if err != nil {
		log.Fatalf("Failed to create store adapter: %v", err)
	}
	defer adapter.Close()

	// Local cache mirror of live boards for offline rendering
	if cfg.CachePath != "" {
		mirror, err := cache.Open(cfg.CachePath)
		if err != nil {
			log.Fatalf("Failed to open cache: %v", err)
		}
		defer mirror.Close()
		err = mirror.Follow(ctx, adapter, store.Query{
			Collection: colls.Boards,
			Filters:    []store.Filter{{Field: "archived", Op: store.OpEqual, Value: false}},
		}, logger)
		if err != nil {
			log.Fatalf("Failed to start cache mirror: %v", err)
		}
		logger.Info("cache mirror started", "path", cfg.CachePath)
	}

	// YAML board blueprints
	blueprints := map[string]*models.TemplateSpec{}
	if cfg.TemplateDir != "" {
		blueprints, err = template.LoadDir(cfg.TemplateDir)
		if err != nil {
			log.Fatalf("Failed to load templates: %v", err)
		}
		logger.Info("blueprints loaded", "count", len(blueprints))
	}

	// Services
	userService := users.NewService(adapter, colls, logger)
	boardService := board.NewService(adapter, colls, userService, logger)
	engine := syncer.New(logger)

	// Handlers
	boardHandler := handler.NewBoardHandler(boardService, engine, logger)
	cardHandler := handler.NewCardHandler(boardService, engine, logger)
	membershipHandler := handler.NewMembershipHandler(boardService, userService, engine, logger)
	subBoardHandler := handler.NewSubBoardHandler(boardService, engine, blueprints, logger)
	syncHandler := handler.NewSyncHandler(engine, logger)
	eventsHandler := handler.NewEventsHandler(adapter, colls, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", boardHandler.HealthCheck)

	// Board routes
	mux.HandleFunc("GET /api/boards", boardHandler.ListBoards)
	mux.HandleFunc("POST /api/boards", boardHandler.CreateBoard)
	mux.HandleFunc("GET /api/boards/{id}", boardHandler.GetBoard)
	mux.HandleFunc("PATCH /api/boards/{id}", boardHandler.UpdateBoard)
	mux.HandleFunc("DELETE /api/boards/{id}", boardHandler.DeleteBoard)
	mux.HandleFunc("POST /api/boards/{id}/archive", boardHandler.ArchiveBoard)
	mux.HandleFunc("POST /api/boards/{id}/restore", boardHandler.RestoreBoard)
	mux.HandleFunc("POST /api/boards/{id}/templates", boardHandler.CreateTemplateBoard)

	// Membership routes (mutations propagate to descendants)
	mux.HandleFunc("GET /api/boards/{id}/members", membershipHandler.ListMembers)
	mux.HandleFunc("POST /api/boards/{id}/members", membershipHandler.AddMember)
	mux.HandleFunc("DELETE /api/boards/{id}/members/{userId}", membershipHandler.RemoveMember)

	// Column routes
	mux.HandleFunc("POST /api/boards/{id}/columns", cardHandler.CreateColumn)
	mux.HandleFunc("PUT /api/boards/{id}/columns/order", cardHandler.ReorderColumns)

	// Card routes
	mux.HandleFunc("POST /api/cards", cardHandler.CreateCard)
	mux.HandleFunc("POST /api/cards/{id}/move", cardHandler.MoveCard)
	mux.HandleFunc("POST /api/cards/{id}/archive", cardHandler.ArchiveCard)
	mux.HandleFunc("POST /api/cards/{id}/restore", cardHandler.RestoreCard)
	mux.HandleFunc("POST /api/cards/{id}/comments", cardHandler.AddComment)
	mux.HandleFunc("GET /api/cards/{id}/comments", cardHandler.ListComments)

	// Bulk import
	mux.HandleFunc("POST /api/boards/{id}/import", cardHandler.ImportCards)

	// Sub-board lifecycle routes
	mux.HandleFunc("POST /api/cards/{id}/subboard", subBoardHandler.CreateSubBoard)
	mux.HandleFunc("POST /api/cards/{id}/subboard/from-template", subBoardHandler.CreateFromBlueprint)
	mux.HandleFunc("POST /api/cards/{id}/subboard/clone", subBoardHandler.CloneTemplateBoard)
	mux.HandleFunc("DELETE /api/cards/{id}/subboard", subBoardHandler.RemoveSubBoard)
	mux.HandleFunc("POST /api/cards/{id}/recount", subBoardHandler.Recount)

	// Sync status routes
	mux.HandleFunc("GET /api/sync/status", syncHandler.Status)
	mux.HandleFunc("POST /api/sync/retry", syncHandler.Retry)

	// Realtime routes
	mux.HandleFunc("GET /api/boards/{id}/events", eventsHandler.StreamBoard)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS -> Recovery -> Auth -> Routes
	root = middleware.AuthMiddleware(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the benefit eligibility server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (development convenience) and configuration
  2. Build the zap logger
  3. Initialize SQLite store
  4. Build the program catalog, rules client, and orchestrator
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  See config/config.go. Everything can be set via environment variables:
    SERVER_PORT, DB_PATH, RULES_URL, RULES_TOKEN, RULES_TIMEOUT,
    RULES_CACHETTL, RULES_FPLYEAR, LOG_LEVEL

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  DB_PATH=./data/benefits.db ./server

  # Run with in-memory database against a local rules service
  DB_PATH=":memory:" RULES_URL=http://localhost:5000/calculate ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/benefit-engine/api"
	"github.com/warp/benefit-engine/config"
	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/fpl"
	"github.com/warp/benefit-engine/programs"
	"github.com/warp/benefit-engine/rules"
	"github.com/warp/benefit-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	year := fpl.Year2023()
	if cfg.Rules.FPLYear != year.Year {
		logger.Warn("unsupported poverty-limit year, using bundled table",
			zap.Int("requested", cfg.Rules.FPLYear), zap.Int("using", year.Year))
	}

	registry, err := programs.DefaultCatalog(year)
	if err != nil {
		logger.Fatal("failed to build program catalog", zap.Error(err))
	}

	client := rules.NewClient(cfg.Rules.URL,
		rules.WithBearerToken(cfg.Rules.Token),
		rules.WithHTTPClient(&http.Client{Timeout: cfg.Rules.Timeout}),
		rules.WithCacheTTL(cfg.Rules.CacheTTL),
		rules.WithLogger(logger),
	)

	orch := engine.NewOrchestrator(registry, client,
		engine.NewAlreadyHasFilter(programs.DefaultMapping()),
		engine.WithLogger(logger),
	)

	handler := api.NewHandler(store, orch, registry, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("rules_url", cfg.Rules.URL),
			zap.Int("programs", len(registry.Programs())))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level.SetLevel(lvl)
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	return logger
}

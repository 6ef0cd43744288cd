/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the recovery engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Initialize logger
  3. Initialize SQLite store
  4. Create handling service and API handler
  5. Configure HTTP router
  6. Start idle session sweeper
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS (override environment):
  -port    HTTP server port (env PORT, default: 8080)
  -db      SQLite database path (env DB_PATH, default: recovery.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  LOG_LEVEL, LOG_PRETTY, SESSION_TTL, SWEEP_SCHEDULE, CORS_ORIGINS
  See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the session sweeper
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/recovery.db"

  # Run with in-memory database and readable logs
  LOG_PRETTY=true ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/citybenefits/recovery-engine/api"
	"github.com/citybenefits/recovery-engine/config"
	"github.com/citybenefits/recovery-engine/logger"
	"github.com/citybenefits/recovery-engine/recovery"
	"github.com/citybenefits/recovery-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags override the environment; validate once they are applied
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	flag.Parse()
	cfg.Port, cfg.DatabasePath = *port, *dbPath
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	l := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(l)

	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer store.Close()

	// Initialize service and handler
	sessions := recovery.NewSessionRegistry()
	service := recovery.NewHandlingService(store, sessions, l)
	handler := api.NewHandler(service, l)

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins)

	sweeper, err := api.NewSessionSweeper(sessions, cfg.SweepSchedule, cfg.SessionTTL, l)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule session sweep")
	}
	sweeper.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("db", cfg.DatabasePath).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	sweeper.Stop()

	log.Info().Msg("Server stopped")
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the daily ledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize logger and SQLite store
  3. Wire services (sales recorder, expense service, summary engine)
  4. Configure HTTP router and nightly stale-register check
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags override environment variables; .env feeds the environment.
  -port / PORT          HTTP server port (default: 8080)
  -db / DB_PATH         SQLite database path (default: opsledger.db)
                        Use ":memory:" for an in-memory database
  -log-level / LOG_LEVEL  zap level: debug|info|warn|error (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler and close the database
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/opsledger.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fonda/opsledger/api"
	"github.com/fonda/opsledger/expense"
	"github.com/fonda/opsledger/pkg/logger"
	"github.com/fonda/opsledger/sales"
	"github.com/fonda/opsledger/store/sqlite"
	"github.com/fonda/opsledger/summary"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	// Flags
	port := flag.String("port", envOr("PORT", "8080"), "HTTP server port")
	dbPath := flag.String("db", envOr("DB_PATH", "opsledger.db"), "SQLite database path")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	flag.Parse()

	log := logger.Must(logger.New(*logLevel))
	defer log.Sync()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Wire services
	expenses := expense.NewService(store, store)
	recorder := sales.NewRecorder(store)
	engine := summary.NewEngine(store, store, store)
	handler := api.NewHandler(store, expenses, engine, store, recorder, logger.Named(log, "api"))

	// Nightly stale-register check
	sched := api.NewStaleCheckScheduler(store, logger.Named(log, "scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fundbooks reporting server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Configure logging
  3. Initialize SQLite store (runs migrations)
  4. Optionally seed a demo scenario
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port              HTTP server port (default: 8080)
  -db                SQLite database path (default: fundbooks.db)
                     Use ":memory:" for in-memory database
  -log-level         debug, info, warn, error
  -log-format        human or json
  -seed              Demo scenario to load at startup
  -shutdown-timeout  Graceful shutdown budget

  Every flag has an environment variable; see config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/fundbooks.db"

  # In-memory demo
  ./server -db=":memory:" -seed=food-bank

SEE ALSO:
  - api/server.go: Router configuration
  - report/service.go: Report orchestration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/warp/fundbooks/api"
	"github.com/warp/fundbooks/config"
	"github.com/warp/fundbooks/engine"
	"github.com/warp/fundbooks/store/sqlite"
)

func main() {
	dotenvErr := config.LoadDotEnv()
	cfg := config.FromEnv()
	if err := cfg.ParseFlags(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	setupLogging(cfg)

	if dotenvErr != nil {
		log.Warn().Err(dotenvErr).Msg("ignoring unreadable .env file")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to initialize database")
	}
	defer store.Close()

	handler := api.NewHandler(store)

	if cfg.SeedScenario != "" {
		if _, err := handler.Seed(context.Background(), cfg.SeedScenario, engine.Today()); err != nil {
			log.Fatal().Err(err).Str("scenario", cfg.SeedScenario).Msg("failed to seed scenario")
		}
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, log.Logger, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.Addr()).Str("db", cfg.DBPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// setupLogging configures the global logger. Human format writes to a
// console writer; json writes one object per line.
func setupLogging(cfg *config.Config) {
	output := io.Writer(os.Stdout)
	if cfg.LogFormat == "human" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	zerolog.SetGlobalLevel(cfg.Level())
	log.Logger = log.Output(output).With().Timestamp().Logger()

	// Loggers pulled from a context without a request fall back to the global one.
	zerolog.DefaultContextLogger = &log.Logger
}

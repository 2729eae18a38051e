package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tickerpulse/tickerpulse/config"
	"github.com/tickerpulse/tickerpulse/internal/app"
	"github.com/tickerpulse/tickerpulse/internal/etl"
	"github.com/tickerpulse/tickerpulse/internal/logger"
	"github.com/tickerpulse/tickerpulse/internal/provider"
	"github.com/tickerpulse/tickerpulse/internal/storage"
	"github.com/tickerpulse/tickerpulse/internal/universe"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// resolveUniverse decides which symbols a batch mode operates on.
//
// Precedence:
//   - --symbols flag, when non-empty.
//   - Wikipedia S&P 500 constituents, when --source=wiki.
//   - DEFAULT_SYMBOLS from configuration otherwise.
func resolveUniverse(ctx context.Context, source, symbolsFlag string) ([]string, error) {
	if symbolsFlag != "" {
		return universe.NewStaticSource(config.SplitSymbols(symbolsFlag)).Symbols(ctx)
	}
	if source == "wiki" {
		return universe.NewWikiSource(config.AppConfig.Universe.WikiURL).Symbols(ctx)
	}
	return universe.NewStaticSource(config.AppConfig.Universe.Symbols).Symbols(ctx)
}

// newRunner wires the provider and store into a batch runner.
func newRunner(workers int) (*etl.Runner, func(), error) {
	db, err := app.InitPostgres(config.AppConfig)
	if err != nil {
		return nil, nil, err
	}

	cfg := config.AppConfig.Provider
	av := provider.NewAlphaVantage(
		cfg.BaseURL,
		cfg.APIKey,
		uint64(cfg.MaxRetries),
		time.Duration(cfg.BackoffSeconds)*time.Second,
	)

	repo := storage.NewMetricsRepository(db)
	cleanup := func() { _ = db.Close() }
	return etl.NewRunner(repo, av, workers), cleanup, nil
}

// main is the entry point of the tickerpulse application.
//
// Modes (selected via --mode flag):
//   - sync:    Fetches one latest price per symbol and reconciles it against
//     the stored snapshots (hi52w ratchet, sma150 carry-forward).
//   - derive:  Rebuilds full snapshots from daily history (sma150, hi52w).
//   - api:     Starts the REST API exposing the derived metrics.
//   - init-db: Applies database migrations and exits.
//
// Flags:
//   - --mode:       Execution mode ("sync", "derive", "api", "init-db"). Default: "sync".
//   - --source:     Universe source for batch modes ("static" or "wiki"). Default: "static".
//   - --symbols:    Comma-separated tickers overriding the universe source.
//   - --parallel:   Concurrent provider fetches (0=auto up to CPU, max 8).
//   - --port:       Port for API mode. Defaults to value from config (SERVER_PORT).
//   - --migrations: Directory with migration files for init-db mode.
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "sync", "Mode: sync, derive, api or init-db")
	source := flag.String("source", "static", "Universe source: static or wiki")
	symbols := flag.String("symbols", "", "Comma-separated tickers (overrides --source)")
	parallel := flag.Int("parallel", 0, "Concurrent provider fetches (0=auto up to CPU, max 8)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	migrations := flag.String("migrations", "./db/migrations", "Directory with migration files")
	flag.Parse()

	switch *mode {
	case "sync", "derive":
		tickers, err := resolveUniverse(ctx, *source, *symbols)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("universe resolution failed")
		}
		if len(tickers) == 0 {
			logger.L().Fatal().Msg("universe is empty")
		}

		runner, cleanup, err := newRunner(*parallel)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer cleanup()

		var res etl.Result
		if *mode == "sync" {
			res, err = runner.RunIncrementalSync(ctx, tickers)
		} else {
			res, err = runner.RunFullDerivation(ctx, tickers)
		}
		if err != nil {
			logger.L().Fatal().Err(err).Str("mode", *mode).Msg("batch run failed")
		}
		logger.L().Info().
			Str("mode", *mode).
			Int("succeeded", res.Succeeded).
			Int("skipped", res.Skipped).
			Int("failed", res.Failed).
			Msg("batch run completed")

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	case "init-db":
		db, err := app.InitPostgres(config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()

		if err := storage.Migrate(db, *migrations); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}
		logger.L().Info().Msg("database schema is up to date")

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}

/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (YAML file + LEAVE_* environment)
  2. Build the zap logger
  3. Open the store (SQLite or PostgreSQL) and migrate
  4. Seed the standard policy when no default exists
  5. Create engine, handler and router
  6. Start the carryover scheduler and the HTTP server

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdown_timeout)
  3. Stop the scheduler
  4. Close the store

EXAMPLES:
  ./server -config=config.yaml
  LEAVE_DATABASE_PATH=":memory:" ./server
  LEAVE_DATABASE_DRIVER=postgres LEAVE_DATABASE_URL=postgres://... ./server

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
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

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/postgres"
	"github.com/warp/leave-engine/store/sqlite"
	"go.uber.org/zap"
)

// store is what main needs beyond leave.Store.
type store interface {
	leave.Store
	Close() error
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer st.Close()

	if err := seedDefaultPolicy(ctx, st); err != nil {
		logger.Warn("Failed to seed default policy", zap.Error(err))
	}

	engine := leave.NewEngine(st,
		leave.WithLogger(logger.Named("engine")),
		leave.WithCarryoverCap(cfg.Engine.EnforceCarryoverCap))

	handler := api.NewHandler(st, engine, logger.Named("api"))
	handler.Scheduler.Enabled = cfg.Scheduler.Enabled
	handler.Scheduler.CheckInterval = cfg.Scheduler.Interval
	handler.Scheduler.Start(ctx)
	defer handler.Scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("addr", cfg.Addr()),
			zap.String("database", cfg.Database.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		pg := postgres.New(pool)
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return sqlite.New(cfg.Path)
	}
}

// seedDefaultPolicy saves the standard policy on an empty database so the
// engine has a default to resolve.
func seedDefaultPolicy(ctx context.Context, st leave.Store) error {
	existing, err := st.FindDefaultActivePolicy(ctx)
	if err != nil || existing != nil {
		return err
	}
	return st.SavePolicy(ctx, leave.StandardPolicy("standard"))
}

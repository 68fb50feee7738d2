package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/fittrack/internal/config"
	"github.com/dukerupert/fittrack/internal/database"
	"github.com/dukerupert/fittrack/internal/handler"
	"github.com/dukerupert/fittrack/internal/logging"
	"github.com/dukerupert/fittrack/internal/server"
	"github.com/dukerupert/fittrack/internal/store"
	"github.com/dukerupert/fittrack/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE:  runServe,
}

const (
	cleanupInterval = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Data.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	data := handler.Data{Location: cfg.Location()}
	switch cfg.Data.Backend {
	case config.BackendPostgres:
		pool, err := postgres.Open(ctx, cfg.Data.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		data.Habits = postgres.NewHabitStore(pool)
		data.Logs = postgres.NewLogStore(pool)
	default:
		data.Habits = store.NewHabitStore(db)
		data.Logs = store.NewLogStore(db)
	}

	srv, err := server.New(db, data, server.Options{
		SecureCookies:   cfg.HTTP.SecureCookies,
		DefaultTimezone: cfg.Timezone,
	}, logger)
	if err != nil {
		return err
	}

	go srv.RateLimiter().RunCleanup(ctx, cleanupInterval)
	go runCleanup(ctx, srv, logger.With("component", "cleanup"))

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fittrack listening", "addr", cfg.Addr(), "backend", cfg.Data.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// runCleanup drops expired sessions and lapsed delete confirmations until
// ctx is cancelled.
func runCleanup(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := srv.SessionStore().DeleteExpired(ctx)
			if err != nil {
				logger.Error("delete expired sessions", "error", err)
			} else if n > 0 {
				logger.Debug("deleted expired sessions", "count", n)
			}
			srv.Actions().Cleanup()
		}
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/reyschwartz19/OpTracker/internal/app"
	"github.com/reyschwartz19/OpTracker/internal/config"
	"github.com/reyschwartz19/OpTracker/internal/logger"
	"github.com/reyschwartz19/OpTracker/internal/routes"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout  = 10 * time.Second
	tokenPurgePeriod = time.Hour
)

func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the daily reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	defer logger.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return err
	}
	defer func() {
		closeErr := a.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRoutes(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "url", "http://localhost:"+cfg.Port)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	})

	if cfg.ReminderSchedulerEnabled {
		g.Go(func() error {
			return a.Scheduler.Start(gctx)
		})
	} else {
		slog.Info("reminder scheduler disabled")
	}

	g.Go(func() error {
		purgeTokens(gctx, a)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if err != nil {
		slog.Error("server stopped with error", "error", err)
		return err
	}
	return nil
}

// purgeTokens drops stale auth tokens every tokenPurgePeriod until ctx ends.
func purgeTokens(ctx context.Context, a *app.App) {
	ticker := time.NewTicker(tokenPurgePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := a.AuthService.PurgeExpiredTokens(ctx)
			if err != nil {
				slog.Warn("token purge failed", "error", err)
			}
		}
	}
}

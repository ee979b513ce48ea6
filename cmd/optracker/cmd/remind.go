package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/reyschwartz19/OpTracker/internal/app"
	"github.com/reyschwartz19/OpTracker/internal/config"
	"github.com/reyschwartz19/OpTracker/internal/logger"
	"github.com/spf13/cobra"
)

func RemindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send today's deadline reminders once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemind(cmd)
		},
	}
}

func runRemind(cmd *cobra.Command) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
	defer logger.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := a.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	res, err := a.Scheduler.Run(ctx)
	if err != nil {
		return fmt.Errorf("reminder run failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sent=%d failed=%d skipped=%d\n", res.Sent, res.Failed, res.Skipped)
	return nil
}

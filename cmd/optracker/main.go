package main

import (
	"context"
	"os"

	"github.com/reyschwartz19/OpTracker/cmd/optracker/cmd"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "optracker",
		Short:         "Track opportunities and send deadline reminders",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.ServeCmd())
	rootCmd.AddCommand(cmd.RemindCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

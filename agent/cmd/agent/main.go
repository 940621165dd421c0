package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "vitalscore-agent",
		Short:         "Fetch patient vitals, score risk, and submit the assessment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scoreCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("vitalscore-agent failed", "err", err)
		os.Exit(1)
	}
}

// setupLogging installs the JSON handler used by every command.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

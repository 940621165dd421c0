package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vitalscore/vitalscore/agent/internal/config"
	"github.com/vitalscore/vitalscore/agent/internal/runner"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one assessment against the health-data API",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			watch, _ := cmd.Flags().GetBool("watch")
			debug, _ := cmd.Flags().GetBool("debug")

			setupLogging(debug)
			if watch && configPath == "" {
				return errors.New("--watch requires --config")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runAgent(ctx, configPath, runner.Options{DryRun: dryRun}, watch)
		},
	}
	cmd.Flags().String("config", "", "Path to config file (defaults apply when empty)")
	cmd.Flags().Bool("dry-run", false, "Fetch and score but do not submit")
	cmd.Flags().Bool("watch", false, "Re-run whenever the config file changes")
	cmd.Flags().Bool("debug", false, "Enable debug logging")
	return cmd
}

func runAgent(ctx context.Context, configPath string, opts runner.Options, watch bool) error {
	slog.Info("vitalscore-agent starting", "config", configPath, "dry_run", opts.DryRun, "watch", watch)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.LoadDotEnv(cfg.Agent.DotEnv); err != nil {
		return err
	}
	slog.Info("config loaded",
		"base_url", cfg.Agent.BaseURL,
		"page_size", cfg.Agent.PageSize,
		"max_attempts", cfg.Agent.MaxAttempts,
		"webhooks", len(cfg.Agent.Notify.Webhooks),
	)

	_, err = runner.Run(ctx, cfg.Agent, opts)
	if !watch {
		return err
	}
	if err != nil {
		slog.Error("run failed, waiting for config change", "err", err)
	}

	// Reloads queue behind the run in progress; only the newest is kept.
	reloads := make(chan *config.Config, 1)
	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			select {
			case <-reloads:
			default:
			}
			reloads <- updated
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("vitalscore-agent shutting down")
			return nil
		case updated := <-reloads:
			slog.Info("config hot-reloaded, re-running", "base_url", updated.Agent.BaseURL)
			if err := reloadEnv(updated); err != nil {
				slog.Error("dotenv reload failed, keeping previous environment", "err", err)
			}
			if _, err := runner.Run(ctx, updated.Agent, opts); err != nil {
				slog.Error("run failed, waiting for config change", "err", err)
			}
		}
	}
}

// reloadEnv re-reads the .env file named by a reloaded config so that a
// changed dotenv path or edited secrets apply to the next run.
func reloadEnv(updated *config.Config) error {
	return config.LoadDotEnv(updated.Agent.DotEnv)
}

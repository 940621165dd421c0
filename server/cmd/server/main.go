package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vitalscore/vitalscore/server/internal/api"
	"github.com/vitalscore/vitalscore/server/internal/auth"
	"github.com/vitalscore/vitalscore/server/internal/config"
	"github.com/vitalscore/vitalscore/server/internal/dataset"
	"github.com/vitalscore/vitalscore/server/internal/limit"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	envFile := flag.String("env-file", ".env", "optional .env file loaded before secrets are resolved")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("vitalscore-mock starting", "config", *configPath)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envFile, "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	s := cfg.Server

	slog.Info("config loaded",
		"listen", s.Listen,
		"patients", s.Dataset.Patients,
		"fault_rate", s.Faults.Rate,
		"rps", s.RateLimit.RPS,
		"auth", s.Auth.Key() != "",
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	patients := dataset.Generate(s.Dataset.Patients, s.Dataset.Seed)
	handler := api.New(patients, s.Page, api.NewFaults(s.Faults.Rate, s.Faults.Seed))

	limiter := limit.New(s.RateLimit.RPS, s.RateLimit.Burst, limit.DefaultIdleTTL)
	go limiter.Run(ctx)

	header := s.Auth.EffectiveHeader()
	protected := auth.APIKey(header, s.Auth.Key())(limiter.Middleware(header)(handler))

	mux := http.NewServeMux()
	mux.Handle("/healthz", handler)
	mux.Handle("/", protected)

	srv := &http.Server{
		Addr:              s.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "addr", s.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("vitalscore-mock shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	srv.Shutdown(shutdownCtx) //nolint:errcheck
}

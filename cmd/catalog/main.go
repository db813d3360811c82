package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yigiterenyilmaz/intern-project-product-review/internal/app"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/config"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/logging"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/telemetry"
	"github.com/yigiterenyilmaz/intern-project-product-review/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (optional, defaults to ~/.config/catalog/config.toml)")
	envPath := flag.String("env", ".env", "dotenv file loaded before the config (optional)")
	apiURL := flag.String("api", "", "override the catalog API base URL")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadEnvFile(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		return 1
	}
	if *apiURL != "" {
		cfg.APIBaseURL = *apiURL
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := logging.OpenFile(cfg.LogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		return 1
	}
	defer logFile.Close()
	log := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: "catalog",
		Writer:    logFile,
	})

	deps := app.Deps{Logger: log}
	if cfg.MetricsAddr != "" {
		exporter, err := telemetry.NewPrometheus(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
			return 1
		}
		defer func() { _ = exporter.Shutdown(context.Background()) }()
		metrics, err := exporter.Metrics()
		if err != nil {
			fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
			return 1
		}
		deps.Metrics = metrics
		go func() {
			if err := exporter.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	session, err := app.New(cfg, deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		return 1
	}
	log.Info().Str("api", cfg.APIBaseURL).Str("user", session.UserID()).Msg("starting")

	if err := session.Run(ctx, tui.New(session, cfg.LogPath())); err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		return 1
	}
	return 0
}

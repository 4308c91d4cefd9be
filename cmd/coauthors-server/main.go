package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/coauthors/internal/telemetry"
	"github.com/tendant/coauthors/pkg/coauthors/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "err", err)
	}

	opts := []config.Option{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		opts = append(opts, config.WithFile(path))
	}
	opts = append(opts, config.WithEnv(""))

	serverConfig, err := config.Load(opts...)
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := newLogger(serverConfig)
	slog.SetDefault(logger)

	if err := run(serverConfig, logger); err != nil {
		logger.Error("Server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(serverConfig *config.ServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     serverConfig.TracingEnabled,
		ServiceName: "coauthors",
		Environment: serverConfig.Environment,
		PrettyPrint: serverConfig.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", "err", err)
		}
	}()

	svc, closeRepo, err := serverConfig.BuildService(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer closeRepo()

	// Request logging, request ids and metrics come from our own middleware
	// on the API routes, so the app shell gets only CORS and its security
	// headers.
	server := app.NewApp(
		app.WithAppConfig(app.DefaultAppConfig()),
		app.WithCors(app.DefaultCorsOptions()),
	)
	app.RoutesHealthz(server.R)
	if serverConfig.DatabaseType == "postgres" {
		server.R.Get("/healthz/ready", readinessHandler(func(ctx context.Context) error {
			return config.PingPostgres(ctx, serverConfig.DatabaseURL)
		}, logger))
	} else {
		app.RoutesHealthzReady(server.R)
	}

	if err := NewHTTPServer(svc, serverConfig, logger).Mount(server.R); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + serverConfig.Port,
		Handler:           server.R,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Coauthors server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"auth", serverConfig.AuthMode,
			"namespace", serverConfig.APINamespace,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exiting")
	return nil
}

func newLogger(cfg *config.ServerConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	if cfg.IsDevelopment() {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freeplm/docvault/pkg/docvault"
	"github.com/freeplm/docvault/pkg/docvault/api"
	"github.com/freeplm/docvault/pkg/docvault/config"
	"github.com/freeplm/docvault/pkg/docvault/repo/postgres"
)

// Config holds process-level settings read from the environment. Service
// wiring (database, storage, workflow) is handled by config.WithEnv.
type Config struct {
	LogLevel        string `env:"DOCVAULT_LOG_LEVEL" env-default:"info"`
	LogFormat       string `env:"DOCVAULT_LOG_FORMAT" env-default:"text"`
	RunMigrations   bool   `env:"DOCVAULT_RUN_MIGRATIONS" env-default:"true"`
	ShutdownTimeout int    `env:"DOCVAULT_SHUTDOWN_TIMEOUT_SECONDS" env-default:"10"`
	RequestTimeout  int    `env:"DOCVAULT_REQUEST_TIMEOUT_SECONDS" env-default:"60"`
}

func main() {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read environment", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	serverConfig, err := config.Load(config.WithEnv("DOCVAULT_"))
	if err != nil {
		slog.Error("Failed to load server configuration", "error", err)
		os.Exit(1)
	}

	if serverConfig.DatabaseType == "postgres" && cfg.RunMigrations {
		if err := postgres.Migrate(serverConfig.DatabaseURL, logger); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
	}

	svc, err := serverConfig.BuildService()
	if err != nil {
		slog.Error("Failed to build service", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: newRouter(svc, serverConfig, cfg),
	}

	go func() {
		slog.Info("Document vault server starting",
			"port", serverConfig.Port,
			"environment", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"storage", serverConfig.Storage.Type)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}

func newLogger(cfg Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newRouter(svc docvault.Service, serverConfig *config.ServerConfig, cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.RequestTimeout) * time.Second))
	r.Use(api.MetricsMiddleware())

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","environment":%q,"storage":%q}`,
			serverConfig.Environment, serverConfig.Storage.Type)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/documents", api.NewDocumentHandler(svc).Routes())
		r.Mount("/checkout", api.NewCheckOutHandler(svc).Routes())
		r.Mount("/workflow", api.NewWorkflowHandler(svc).Routes())
	})

	return r
}

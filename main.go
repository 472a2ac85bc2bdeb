package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	appLogger "github.com/FACorreiaa/kamino-places-api/app/logger"
	"github.com/FACorreiaa/kamino-places-api/app/tracer"
	"github.com/FACorreiaa/kamino-places-api/config"
	"github.com/FACorreiaa/kamino-places-api/internal/container"
	"github.com/FACorreiaa/kamino-places-api/internal/router"
)

// @title                      Kamino Places API
// @version                    1.0
// @description                Places catalog with proximity search, opening hours, narratives and a chatbot.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := appLogger.New(cfg.Mode, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := tracer.InitTracingAndMetrics("kamino-places-api", cfg.Handlers.Prometheus.Port, logger)
	if err != nil {
		return err
	}

	c, err := container.NewContainer(ctx, &cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer c.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		c.Maintainer.Run(ctx, cfg.Narratives.RefreshHour, loc)
	}()

	timeout := cfg.Server.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	root := chi.NewMux()
	root.Use(middleware.RequestID)
	root.Use(middleware.RealIP)
	root.Use(appLogger.StructuredLogger(logger))
	root.Use(middleware.Recoverer)
	root.Use(middleware.StripSlashes)
	root.Use(middleware.Timeout(timeout))
	root.Use(middleware.Compress(5, "application/json"))
	root.Mount("/", router.SetupRouter(c.Router))

	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}
	workers.Wait()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn("Telemetry shutdown failed", slog.Any("error", err))
	}
	return nil
}

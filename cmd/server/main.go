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

	"tickets-web/internal/config"
	"tickets-web/internal/middleware"
	"tickets-web/internal/server"
	"tickets-web/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Create session store
	sessionStore := middleware.NewCookieStore(cfg.Session)

	var backend services.BackendService
	if cfg.UsesMockBackend() {
		logger.Warn("serving the in-memory demo backend", "email", services.DemoEmail)
		backend = services.NewMockBackendService()
	} else {
		backend = services.NewBackendClient(services.BackendConfig{
			BaseURL:            cfg.Backend.BaseURL,
			Timeout:            cfg.Backend.Timeout,
			BreakerMaxFailures: cfg.Backend.BreakerMaxFailures,
			BreakerOpenTimeout: cfg.Backend.BreakerOpenTimeout,
		}, logger)
	}

	srv := server.New(cfg, backend, sessionStore, logger)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Backend.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", httpServer.Addr, "env", cfg.Server.Env, "backend", cfg.Backend.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

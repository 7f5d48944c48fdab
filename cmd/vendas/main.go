package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vendas/internal/config"
	apphttp "vendas/internal/http"
	applog "vendas/internal/log"
	"vendas/internal/warehouse"
)

func main() {
	// A local .env overrides the environment, matching how credential
	// files ship next to the binary.
	if err := godotenv.Overload(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed loading .env", "error", err)
	}

	cfg := config.Load()
	logger := applog.New(applog.ParseLevel(cfg.LogLevel), applog.ComponentApp)
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	repo, err := warehouse.New(connectCtx, cfg, logger)
	connectCancel()
	if err != nil {
		logger.Error("Failed to connect to warehouse", "error", err, "host", cfg.Host, "database", cfg.Database)
		os.Exit(1)
	}
	defer repo.Close()

	srv := apphttp.NewServer(":"+cfg.HTTPPort, repo)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting vendas server", "port", cfg.HTTPPort, "schema", cfg.Schema)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.HTTPPort)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

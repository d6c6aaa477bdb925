package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"assistente-api/internal/config"
	"assistente-api/internal/factory"
	"assistente-api/internal/util"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		util.Fatal("Failed to load configuration", zap.Error(err))
	}

	util.Init(cfg.Environment, cfg.Logging)
	defer util.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, router, err := factory.New(ctx, cfg)
	if err != nil {
		util.Fatal("Failed to initialize service", zap.Error(err))
	}
	defer f.Close()

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		util.Info("Server listening",
			zap.String("addr", server.Addr),
			zap.String("environment", cfg.Environment))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		util.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		util.Error("Graceful shutdown failed", zap.Error(err))
	}

	util.Info("Server stopped")
}

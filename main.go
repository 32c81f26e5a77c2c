package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"taskmanager/internal/config"
	"taskmanager/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.New(cfg.Env)

	// Graceful shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, lg)
	if err != nil {
		lg.Error("failed to initialize application", logger.Err(err))
		os.Exit(1)
	}

	go func() {
		lg.Info("starting server", slog.String("addr", cfg.ListenAddr()), slog.String("env", cfg.Env))
		if err := app.Fiber.Listen(cfg.ListenAddr()); err != nil {
			lg.Error("server failed", logger.Err(err))
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	lg.Info("shutting down server")

	if err := app.Fiber.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		lg.Error("error during Fiber shutdown", logger.Err(err))
	}
	if err := app.Close(); err != nil {
		lg.Error("error releasing resources", logger.Err(err))
	}

	lg.Info("server gracefully stopped")
}

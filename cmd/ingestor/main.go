package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/myriadflow/config"
	"github.com/spacesedan/myriadflow/internal/app"
	"github.com/spacesedan/myriadflow/internal/logging"
	"github.com/spacesedan/myriadflow/internal/scheduler"
)

const SHUTDOWN_TIMEOUT = 30 * time.Second

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	cfg := config.Load()
	logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		service *app.App
		err     error
	)
	for {
		service, err = app.New(ctx, cfg)
		if err == nil {
			break
		}
		slog.Warn("[Ingestor] Startup failed, retrying...", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}

	service.Start(ctx)
	sched := scheduler.New(service.Jobs()...)
	sched.Start(ctx)
	slog.Info("[Ingestor] Running", slog.String("env", env), slog.String("storage", cfg.StorageBackend))

	<-ctx.Done()
	slog.Info("[Ingestor] Shutting down gracefully...")
	sched.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	service.Shutdown(shutdownCtx)
	slog.Info("[Ingestor] Stopped")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/app"
	"github.com/hackgods/booking-engine/internal/appointment"
	"github.com/hackgods/booking-engine/internal/config"
	"github.com/hackgods/booking-engine/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	// the worker never takes day locks
	cfg.LockBackend = config.LockBackendLocal

	logger, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("complete-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Duration("grace", cfg.CompleteGrace),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	// Run once at startup
	runOnce(rootCtx, a.Service, cfg.CompleteGrace, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping complete-worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, a.Service, cfg.CompleteGrace, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, grace time.Duration, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.CompleteElapsed(runCtx, start, grace)
	if err != nil {
		logger.Error("complete run failed", zap.Error(err))
		return
	}
	logger.Info("complete run finished", zap.Int("completed", n), zap.Duration("took", time.Since(start)))
}

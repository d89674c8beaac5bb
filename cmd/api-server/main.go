package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/api"
	"github.com/hackgods/booking-engine/internal/app"
	"github.com/hackgods/booking-engine/internal/config"
	"github.com/hackgods/booking-engine/internal/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api-server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("lock_backend", cfg.LockBackend),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := []api.Dependency{{Name: "postgres", Critical: true, Ping: a.Pool.Ping}}
	if a.Redis != nil {
		deps = append(deps, api.Dependency{
			Name:     "redis",
			Critical: true,
			Ping:     func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() },
		})
	}

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Service:      a.Service,
			Dependencies: deps,
			Logger:       logger.Named("http"),
			Env:          cfg.Env,
			Version:      version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// cmd/worker-manager/main.go
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

	"company-intel/internal/app"
	"company-intel/internal/common/camunda"
	"company-intel/internal/common/config"
	"company-intel/internal/common/logger"
	"company-intel/pkg/registry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}
	if err := config.ValidateForWorkers(cfg); err != nil {
		bootLog.Fatal("invalid worker configuration", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(zap.String("service", "worker-manager"))
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Shared services with retry ---
	a, err := app.New(ctx, cfg, log, app.Options{
		ServiceName: "worker-manager",
		Connect: func(name string, op func() error) error {
			return retryWithBackoff(op, 15, 2*time.Second, zapLog, name)
		},
	})
	if err != nil {
		zapLog.Fatal("service initialization failed", zap.Error(err))
	}

	// --- Zeebe client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(ctx, camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	workers, err := registerWorkers(zeebe.GetClient(), cfg, registry.MustDefault(), a, log)
	if err != nil {
		zapLog.Fatal("worker registration failed", zap.Error(err))
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newServerMux(readinessChecks(zeebe, a)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health/metrics server: %w", err)
		}
		return nil
	})

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping workers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		for _, w := range workers {
			w.Close()
		}
		for _, w := range workers {
			w.AwaitClose()
		}

		var errs []error
		errs = append(errs, srv.Shutdown(shutdownCtx))
		errs = append(errs, zeebe.Close())
		errs = append(errs, a.Close(shutdownCtx))
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("worker manager stopped with errors", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("Worker manager stopped gracefully")
}

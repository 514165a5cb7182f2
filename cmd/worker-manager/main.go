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

	"go.uber.org/zap"

	"ticketpin-workers/internal/common/camunda"
	"ticketpin-workers/internal/common/config"
	"ticketpin-workers/internal/common/logger"
	"ticketpin-workers/internal/common/observability"
	tip "ticketpin-workers/internal/workers/ticket/ticket-image-pin"
	"ticketpin-workers/pkg/registry"
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
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			zapLog.Warn("observability shutdown failed", zap.Error(err))
		}
	}()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer camundaClient.Close()
	zapLog.Info("Zeebe client connected successfully")

	deps, err := connectDependencies(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("dependency setup failed", zap.Error(err))
	}
	defer deps.Close()

	credentials := buildCredentials(cfg, deps.redis)
	recorder, err := buildRecorder(ctx, cfg, deps, log)
	if err != nil {
		zapLog.Fatal("fulfillment recording setup failed", zap.Error(err))
	}
	zapLog.Info("Fulfillment recording configured", zap.Int("sinks", recorder.Len()))

	var inputSchema map[string]interface{}
	if reg, err := registry.LoadRegistry(cfg.RegistryPath); err != nil {
		zapLog.Warn("activity registry unavailable, using built-in schema", zap.Error(err))
	} else if activity, ok := reg.Find(tip.TaskType); ok {
		inputSchema = activity.InputSchema
	}

	handler, err := tip.NewHandler(tip.HandlerOptions{
		AppConfig:   cfg,
		Camunda:     camundaClient,
		Logger:      log,
		Credentials: credentials,
		Recorder:    recorder,
		Observer:    obs,
		InputSchema: inputSchema,
	})
	if err != nil {
		zapLog.Fatal("failed to create ticket-image-pin handler", zap.Error(err))
	}
	if err := handler.Register(); err != nil {
		zapLog.Fatal("failed to register ticket-image-pin worker", zap.Error(err))
	}
	defer handler.Close()

	server := newHealthServer(cfg.Observability.MetricsPort, handler, deps)
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

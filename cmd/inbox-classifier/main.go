package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-classifier/internal/adapters/httpapi"
	"github.com/mikey/inbox-classifier/internal/adapters/session"
	"github.com/mikey/inbox-classifier/internal/config"
	"github.com/mikey/inbox-classifier/internal/core"
	"github.com/mikey/inbox-classifier/internal/di"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	server *httpapi.Server,
	sessions *session.MemoryStore,
	generator core.TextGenerator,
	usageRepo core.UsageRepository,
) error {
	defer logger.Sync()

	if err := cfg.ValidateServer(); err != nil {
		logger.Error("Invalid configuration", zap.Error(err))
		return err
	}

	serverCfg, err := cfg.GetServer()
	if err != nil {
		return err
	}

	if serverCfg.ShutdownTimeout < serverCfg.RequestTimeout {
		logger.Warn("Shutdown timeout is shorter than the request timeout, batches running at shutdown may not record usage",
			zap.Duration("shutdown_timeout", serverCfg.ShutdownTimeout),
			zap.Duration("request_timeout", serverCfg.RequestTimeout))
	}

	httpServer := &http.Server{
		Addr:              serverCfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", serverCfg.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Shutting down...")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
			return err
		}
	}

	// in-flight batches finish and record usage before the stores close
	ctx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	sessions.Stop()

	// Close any resources that need closing
	if closer, ok := generator.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close text generator", zap.Error(err))
		}
	}
	if closer, ok := usageRepo.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close usage store", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

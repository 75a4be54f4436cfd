package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// App represents the application with all its components
type App struct {
	server          *http.Server
	pipeline        *Pipeline
	logger          *zap.Logger
	shutdownTimeout time.Duration
}

// Run starts the HTTP server and blocks until a shutdown signal or a server error
func (a *App) Run() error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		a.logger.Error("Server error", zap.Error(err))
		a.release()
		return err
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	return a.shutdown()
}

// shutdown waits for in-flight requests, so no ingestion is cut between its write and its commit
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down server gracefully", zap.Duration("timeout", a.shutdownTimeout))

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
		a.release()
		return err
	}

	a.release()
	a.logger.Info("Application stopped gracefully")
	return nil
}

func (a *App) release() {
	a.logger.Info("Releasing pipeline resources")
	if err := a.pipeline.Close(); err != nil {
		a.logger.Warn("Failed to release pipeline resources", zap.Error(err))
	}
	_ = a.logger.Sync()
}

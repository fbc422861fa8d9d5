package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/triggerworker/internal/watch"
)

// serverShutdownTimeout bounds the graceful HTTP shutdown.
const serverShutdownTimeout = 10 * time.Second

// run serves HTTP on ln and forwards filesystem changes until ctx is done,
// then shuts down the server, the watcher and the worker in that order.
func (app *application) run(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The manifest may be stale from before startup.
	app.worker.Trigger()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("Starting server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if app.watcher != nil {
		g.Go(func() error {
			if err := app.watcher.Run(gctx); err != nil && !errors.Is(err, watch.ErrWatcherClosed) {
				return fmt.Errorf("watcher failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("Server shutdown failed", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()

	if cleanupErr := app.cleanup(); cleanupErr != nil && err == nil {
		err = cleanupErr
	}

	if err == nil {
		app.logger.Info("Server shutdown completed")
	}
	return err
}

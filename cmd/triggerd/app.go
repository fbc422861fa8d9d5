package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/triggerworker/internal/api/middleware"
	"github.com/phrazzld/triggerworker/internal/config"
	"github.com/phrazzld/triggerworker/internal/manifest"
	"github.com/phrazzld/triggerworker/internal/task"
	"github.com/phrazzld/triggerworker/internal/watch"
)

// application holds the wired components of triggerd.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	builder *manifest.Builder
	worker  *task.Worker
	watcher *watch.Watcher
	auth    *middleware.TokenAuth
}

// newApplication wires the manifest builder, the coalescing worker, the
// optional filesystem watcher and the optional API authentication.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logConfig(logger, cfg)

	builder, err := manifest.NewBuilder(cfg.Watch.SourceDir, cfg.Watch.ManifestPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest builder: %w", err)
	}

	worker, err := task.NewWorker(builder.Build, logger,
		task.WithName(cfg.Worker.Name),
		task.WithErrorHandler(func(runID uuid.UUID, err error) {
			logger.Warn("manifest rebuild failed, waiting for the next change",
				"run_id", runID.String(),
				"error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		builder: builder,
		worker:  worker,
	}

	if cfg.AuthEnabled() {
		app.auth, err = middleware.NewTokenAuth(cfg.Auth.TokenSecret)
		if err != nil {
			_ = app.cleanup()
			return nil, fmt.Errorf("failed to configure API authentication: %w", err)
		}
	}

	if cfg.Watch.Enabled {
		app.watcher, err = watch.New(builder.SourceDir(), worker, logger,
			watch.WithIgnore(builder.Ignores))
		if err != nil {
			_ = app.cleanup()
			return nil, fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	return app, nil
}

// cleanup stops the watcher and then the worker, waiting up to the
// configured shutdown timeout for an in-flight rebuild.
func (app *application) cleanup() error {
	var errs []error

	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.logger.Error("Failed to close watcher", "error", err)
			errs = append(errs, err)
		}
	}

	if err := app.worker.Shutdown(app.config.Worker.ShutdownTimeout); err != nil {
		if errors.Is(err, task.ErrShutdownTimeout) {
			app.logger.Error("Worker did not stop in time",
				"timeout", app.config.Worker.ShutdownTimeout.String())
		}
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

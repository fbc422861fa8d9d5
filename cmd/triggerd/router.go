package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/triggerworker/internal/api"
	apiMiddleware "github.com/phrazzld/triggerworker/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	workerHandler := api.NewWorkerHandler(app.worker, app.config.Worker.IdleTimeout, app.logger)

	r.Route("/api", func(r chi.Router) {
		if app.auth != nil {
			r.Use(app.auth.Authenticate)
		}

		r.Post("/trigger", workerHandler.Trigger)
		r.Post("/idle", workerHandler.AwaitIdle)
		r.Get("/status", workerHandler.Status)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

package task

import (
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Worker
type Option func(*Worker)

// WithName sets the worker name used in logs, spans and stats.
// Blank names are ignored.
func WithName(name string) Option {
	return func(w *Worker) {
		if name = strings.TrimSpace(name); name != "" {
			w.name = name
		}
	}
}

// WithExecutorFactory sets the factory that builds the worker's executor.
// Defaults to DefaultExecutorFactory.
func WithExecutorFactory(factory ExecutorFactory) Option {
	return func(w *Worker) {
		if factory != nil {
			w.executorFactory = factory
		}
	}
}

// WithErrorHandler sets a handler called on the executor goroutine after a run
// fails or panics. The handler must not block.
func WithErrorHandler(handler func(runID uuid.UUID, err error)) Option {
	return func(w *Worker) {
		w.errorHandler = handler
	}
}

// WithTracerProvider sets the tracer provider used for run spans.
// Defaults to the global OpenTelemetry provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(w *Worker) {
		w.tracerProvider = provider
	}
}

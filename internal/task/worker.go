package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultWorkerName is used when no name is configured
	DefaultWorkerName = "worker"

	tracerName = "github.com/phrazzld/triggerworker/internal/task"
)

// Worker runs a single task on a dedicated executor, coalescing triggers.
//
// Every call to Trigger is followed by at least one run of the task that
// starts after the call. Triggers that arrive while a run is scheduled but not
// yet started are absorbed by that run. Triggers that arrive while the task
// body executes schedule exactly one more run.
//
// Worker is safe for concurrent use.
type Worker struct {
	name string
	task Func

	// permit holds the task while no scheduled run owns it. Capacity 1.
	permit chan Func

	executor        Executor
	executorFactory ExecutorFactory

	tracerProvider trace.TracerProvider
	tracer         trace.Tracer

	// errorHandler is called after a run fails. If nil, failures are only logged.
	errorHandler func(runID uuid.UUID, err error)

	logger *slog.Logger

	mu           sync.Mutex
	state        State
	lastRunID    uuid.UUID
	lastError    string
	lastStarted  time.Time
	lastFinished time.Time
	lastDuration time.Duration

	running   atomic.Bool
	triggers  atomic.Uint64
	coalesced atomic.Uint64
	runs      atomic.Uint64
	failures  atomic.Uint64
}

// NewWorker creates a Worker for task, starts its executor and arms the
// permit so the first Trigger schedules a run.
func NewWorker(task Func, logger *slog.Logger, opts ...Option) (*Worker, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		name:            DefaultWorkerName,
		task:            task,
		permit:          make(chan Func, 1),
		executorFactory: DefaultExecutorFactory,
		state:           StateCreated,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	w.logger = logger.With("component", "triggerable_worker", "worker", w.name)
	if w.tracerProvider == nil {
		w.tracerProvider = otel.GetTracerProvider()
	}
	w.tracer = w.tracerProvider.Tracer(tracerName)

	w.executor = w.executorFactory(w.logger)
	if w.executor == nil {
		return nil, fmt.Errorf("%w: executor factory returned nil", ErrWorkerFault)
	}

	w.permit <- task
	w.setState(StateActive)

	w.logger.Debug("worker started")
	return w, nil
}

// Name returns the configured worker name
func (w *Worker) Name() string {
	return w.name
}

// Trigger requests a run of the task. It never blocks and never fails.
//
// If no run is currently scheduled, a run is submitted to the executor.
// Otherwise the trigger is coalesced into the scheduled run. After Shutdown,
// Trigger does nothing.
func (w *Worker) Trigger() {
	w.triggers.Add(1)

	select {
	case task := <-w.permit:
		runID := uuid.New()
		err := w.executor.Execute(func() {
			// Re-arm before the body runs so a trigger arriving during the
			// body schedules one follow-up run instead of being lost.
			w.permit <- task
			w.run(task, runID)
		})
		if err != nil {
			w.restorePermit(task)
			w.logger.Debug("trigger dropped, worker is not accepting runs",
				"run_id", runID,
				"error", err)
			return
		}
		w.logger.Debug("run scheduled", "run_id", runID)
	default:
		w.coalesced.Add(1)
		w.logger.Debug("trigger coalesced into scheduled run")
	}
}

// AwaitIdle blocks until every work item submitted to the executor before the
// call has completed. It schedules no runs of the task.
//
// Returns an error wrapping ErrWorkerFault if the executor cannot run the
// idle marker (for example after Shutdown), or ctx.Err() if ctx is done first.
func (w *Worker) AwaitIdle(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	done := make(chan struct{})
	if err := w.executor.Execute(func() { close(done) }); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkerFault, err)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the worker and waits up to timeout for queued and in-flight
// runs to finish. See ShutdownContext.
func (w *Worker) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return w.ShutdownContext(ctx)
}

// ShutdownContext stops accepting runs and waits for the executor to finish
// the queued and in-flight ones. Running task bodies are not interrupted.
//
// If ctx is done before the executor terminates, it returns an error wrapping
// ErrShutdownTimeout and ctx.Err(); the executor keeps draining in the
// background and the call may be retried.
func (w *Worker) ShutdownContext(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	w.mu.Lock()
	switch w.state {
	case StateTerminated:
		w.mu.Unlock()
		return nil
	case StateActive, StateCreated:
		w.state = StateShuttingDown
	}
	w.mu.Unlock()

	w.logger.Info("worker shutting down")
	w.executor.Shutdown()

	select {
	case <-w.executor.Terminated():
		return w.terminated()
	default:
	}

	select {
	case <-w.executor.Terminated():
		return w.terminated()
	case <-ctx.Done():
		w.transition(StateShuttingDown, StateShutdownFailed)
		w.logger.Warn("worker did not terminate in time", "error", ctx.Err())
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// State returns the worker's lifecycle state
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Stats returns a snapshot of the worker's counters and last run
func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := Stats{
		Name:         w.name,
		State:        w.state,
		Triggers:     w.triggers.Load(),
		Coalesced:    w.coalesced.Load(),
		Runs:         w.runs.Load(),
		Failures:     w.failures.Load(),
		Pending:      len(w.permit) == 0,
		Running:      w.running.Load(),
		LastError:    w.lastError,
		LastStarted:  w.lastStarted,
		LastFinished: w.lastFinished,
		LastDuration: w.lastDuration,
	}
	if w.lastRunID != uuid.Nil {
		st.LastRunID = w.lastRunID.String()
	}
	return st
}

// run executes one run of the task on the executor goroutine
func (w *Worker) run(task Func, runID uuid.UUID) {
	ctx, span := w.tracer.Start(context.Background(), "task.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("worker.name", w.name),
			attribute.String("run.id", runID.String()),
		))
	defer span.End()

	logger := w.logger.With("run_id", runID)
	startedAt := time.Now()

	w.running.Store(true)
	w.runs.Add(1)
	w.mu.Lock()
	w.lastRunID = runID
	w.lastStarted = startedAt
	w.mu.Unlock()

	logger.Debug("run started")

	err := execute(ctx, task)

	finishedAt := time.Now()
	duration := finishedAt.Sub(startedAt)

	w.mu.Lock()
	w.lastFinished = finishedAt
	w.lastDuration = duration
	if err != nil {
		w.lastError = err.Error()
	}
	w.mu.Unlock()
	w.running.Store(false)

	if err != nil {
		w.failures.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("task execution failed",
			"error", err,
			"duration_ms", duration.Milliseconds())
		if w.errorHandler != nil {
			w.errorHandler(runID, err)
		}
		return
	}

	span.SetStatus(codes.Ok, "")
	logger.Debug("run completed", "duration_ms", duration.Milliseconds())
}

// execute invokes the task body, converting a panic into ErrTaskPanicked
func execute(ctx context.Context, task Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return task(ctx)
}

func (w *Worker) restorePermit(task Func) {
	select {
	case w.permit <- task:
	default:
	}
}

func (w *Worker) terminated() error {
	w.transition(StateShuttingDown, StateTerminated)
	w.logger.Info("worker terminated")
	return nil
}

func (w *Worker) setState(state State) {
	w.mu.Lock()
	w.state = state
	w.mu.Unlock()
}

// transition moves the worker from one state to another, if it is still in from
func (w *Worker) transition(from, to State) {
	w.mu.Lock()
	if w.state == from {
		w.state = to
	}
	w.mu.Unlock()
}

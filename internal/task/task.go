package task

import (
	"context"
	"log/slog"
	"time"
)

// Func is the unit of work a Worker runs. It must be idempotent: the worker
// may run it fewer times than it was triggered, never more.
//
// The context carries the run's trace span. It is never cancelled by the
// worker; in-flight runs are always allowed to finish.
type Func func(ctx context.Context) error

// Executor runs submitted work items one at a time, in submission order.
// Version: 1.0
type Executor interface {
	// Execute queues item for execution. It must not block on the item itself
	// and must not run the item when it returns an error.
	Execute(item func()) error

	// Shutdown stops accepting new items. Items already queued still run.
	// Shutdown must be safe to call more than once.
	Shutdown()

	// Terminated is closed once Shutdown was called and every queued item ran.
	Terminated() <-chan struct{}
}

// ExecutorFactory builds the single executor a Worker runs on.
type ExecutorFactory func(logger *slog.Logger) Executor

// State is the lifecycle state of a Worker.
type State string

// Worker lifecycle states
const (
	StateCreated        State = "created"
	StateActive         State = "active"
	StateShuttingDown   State = "shutting_down"
	StateTerminated     State = "terminated"
	StateShutdownFailed State = "shutdown_failed"
)

// Stats is a point-in-time view of a Worker.
type Stats struct {
	Name  string `json:"name"`
	State State  `json:"state"`

	// Triggers counts every Trigger call; Coalesced counts the ones absorbed
	// by an already scheduled run.
	Triggers  uint64 `json:"triggers"`
	Coalesced uint64 `json:"coalesced"`
	Runs      uint64 `json:"runs"`
	Failures  uint64 `json:"failures"`

	// Pending is true while a run is scheduled but has not started yet.
	Pending bool `json:"pending"`
	Running bool `json:"running"`

	LastRunID string `json:"last_run_id,omitempty"`
	// LastError is the error of the most recent failed run. It is not
	// cleared by later successful runs.
	LastError    string        `json:"last_error,omitempty"`
	LastStarted  time.Time     `json:"last_started"`
	LastFinished time.Time     `json:"last_finished"`
	LastDuration time.Duration `json:"last_duration"`
}

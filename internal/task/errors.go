package task

import "errors"

// Errors returned by Worker and its executors
var (
	ErrNilTask         = errors.New("task is nil")
	ErrShutdownTimeout = errors.New("timed out while waiting for termination")
	ErrWorkerFault     = errors.New("worker fault")
	ErrExecutorClosed  = errors.New("executor is shut down")
	ErrTaskPanicked    = errors.New("task panicked")
)

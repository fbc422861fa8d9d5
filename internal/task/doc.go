// Package task provides the coalescing worker: a single-goroutine runner that
// guarantees a task runs at least once after every trigger, while collapsing
// triggers that arrive before a scheduled run starts into that one run.
//
// A Worker owns exactly one Executor (a single goroutine draining a FIFO work
// queue) and a one-slot permit holding the task. Trigger claims the permit and
// submits a run; the run restores the permit before invoking the task body, so
// a trigger arriving mid-run schedules exactly one follow-up run.
package task

// Package workflow defines the contract between the protection provider and
// a workflow execution engine, and ships an in-process engine.
//
// A flow is a set of named tasks with dependencies between them. The
// provider only builds flows; running them is the engine's business.
package workflow

import (
	"context"
	"errors"
)

// Status is the execution state of a task.
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusDone
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Finished reports whether the task will not change state again.
func (s Status) Finished() bool {
	return s == StatusDone || s == StatusFailed || s == StatusSkipped
}

// StatusGetter reports the live status of one task of one flow.
type StatusGetter func() Status

// TaskFunc is the body of a task.
type TaskFunc func(ctx context.Context) error

// Task is a unit of work added to a flow.
type Task struct {
	ID  string
	Run TaskFunc
}

// Flow is a handle to a flow under construction or execution.
type Flow interface {
	Name() string
	// Tasks returns task ids in insertion order.
	Tasks() []string
	// StatusGetter returns the status getter of task id.
	StatusGetter(id string) (StatusGetter, error)
}

// Engine builds and runs flows.
type Engine interface {
	NewFlow(name string) Flow
	// AddTask adds task to flow. The task runs after every task in dependsOn.
	AddTask(flow Flow, task Task, dependsOn ...string) error
	// AddDependency makes task run after dependsOn.
	AddDependency(flow Flow, task, dependsOn string) error
	// Run executes flow and returns once every task has finished.
	Run(ctx context.Context, flow Flow) error
}

var (
	ErrTaskExists       = errors.New("task already exists")
	ErrTaskNotFound     = errors.New("task not found")
	ErrCyclicDependency = errors.New("dependency would create a cycle")
	ErrFlowStarted      = errors.New("flow already started")
	ErrForeignFlow      = errors.New("flow was not created by this engine")
)

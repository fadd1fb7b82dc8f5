// Package workqueue runs independent comparison and resolution tasks with
// configurable concurrency and cancellation.
package workqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskKind classifies a task for the concurrency strategy.
type TaskKind string

const (
	// KindComparator marks tasks that call the external compliance
	// comparator. These are the expensive calls a strategy may throttle.
	KindComparator TaskKind = "comparator"
	// KindLocal marks cheap in-process work such as schema resolution.
	KindLocal TaskKind = "local"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Task is the interface all queue tasks implement.
type Task interface {
	// ID returns a unique identifier for this task.
	ID() string

	// Name returns a human-readable name for logging.
	Name() string

	// Kind classifies the task for the concurrency strategy.
	Kind() TaskKind

	// Execute runs the task. The context is cancelled when the queue is
	// cancelled.
	Execute(ctx context.Context) error
}

// BaseTask supplies the identity methods of Task for embedding in
// concrete task types.
type BaseTask struct {
	id   string
	name string
	kind TaskKind
}

// NewBaseTask creates a BaseTask with a generated id.
func NewBaseTask(name string, kind TaskKind) BaseTask {
	return BaseTask{id: uuid.NewString(), name: name, kind: kind}
}

func (b BaseTask) ID() string     { return b.id }
func (b BaseTask) Name() string   { return b.name }
func (b BaseTask) Kind() TaskKind { return b.kind }

// TaskState holds the runtime state of a task.
type TaskState struct {
	Task        Task
	Status      TaskStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	Err         error

	mu sync.RWMutex
}

// NewTaskState creates a new TaskState wrapping a task.
func NewTaskState(task Task) *TaskState {
	return &TaskState{
		Task:   task,
		Status: TaskStatusPending,
	}
}

// GetStatus returns the current status (thread-safe).
func (ts *TaskState) GetStatus() TaskStatus {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.Status
}

// SetStatus updates the status and timestamps (thread-safe).
func (ts *TaskState) SetStatus(status TaskStatus) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.Status = status
	now := time.Now()

	switch status {
	case TaskStatusRunning:
		ts.StartedAt = &now
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		ts.CompletedAt = &now
	}
}

// SetError sets the error (thread-safe).
func (ts *TaskState) SetError(err error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.Err = err
}

// GetError returns the error (thread-safe).
func (ts *TaskState) GetError() error {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.Err
}

// TaskSnapshot is an immutable view of one task's state.
type TaskSnapshot struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Kind        TaskKind   `json:"kind"`
	Status      TaskStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Snapshot returns an immutable view of the task state.
func (ts *TaskState) Snapshot() TaskSnapshot {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	snap := TaskSnapshot{
		ID:          ts.Task.ID(),
		Name:        ts.Task.Name(),
		Kind:        ts.Task.Kind(),
		Status:      ts.Status,
		StartedAt:   ts.StartedAt,
		CompletedAt: ts.CompletedAt,
	}
	if ts.Err != nil {
		snap.Error = ts.Err.Error()
	}
	return snap
}

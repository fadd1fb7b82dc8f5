package workqueue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Queue manages task execution with configurable concurrency control.
// The strategy determines how tasks are allowed to run:
// - SerializedStrategy: one comparator task at a time, one local task at a time (default)
// - ThrottledStrategy: up to N concurrent comparator tasks
type Queue struct {
	mu        sync.Mutex
	tasks     []*TaskState
	cancelled bool

	strategy Strategy

	// done is closed when all tasks reach a terminal state
	done chan struct{}
	// wg tracks running goroutines
	wg sync.WaitGroup

	// Cancellation context for running tasks
	ctx    context.Context
	cancel context.CancelFunc

	onUpdate func([]TaskSnapshot)

	logger *zap.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithStrategy sets the concurrency strategy.
func WithStrategy(strategy Strategy) QueueOption {
	return func(q *Queue) {
		if strategy != nil {
			q.strategy = strategy
		}
	}
}

// New creates a new work queue with the given options.
func New(logger *zap.Logger, opts ...QueueOption) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:    make([]*TaskState, 0),
		strategy: NewSerializedStrategy(),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.Named("workqueue"),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// SetOnUpdate sets the callback invoked when task state changes. The
// callback receives a snapshot of all tasks.
//
// WARNING: The callback is invoked while holding the queue's internal lock.
// Do NOT call any Queue methods from within the callback or it will deadlock.
func (q *Queue) SetOnUpdate(callback func([]TaskSnapshot)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onUpdate = callback
}

// Enqueue adds a task to the queue and attempts to start eligible tasks.
func (q *Queue) Enqueue(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		q.logger.Warn("queue cancelled, ignoring enqueue",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return
	}

	// Reset done channel if it was closed from a previous batch
	q.resetDoneLocked()

	state := NewTaskState(task)
	q.tasks = append(q.tasks, state)

	q.logger.Debug("task enqueued",
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()),
		zap.String("kind", string(task.Kind())))

	q.notifyUpdateLocked()
	q.tryStartTasksLocked()
}

// tryStartTasksLocked checks the strategy and starts eligible tasks.
// Must be called with lock held.
func (q *Queue) tryStartTasksLocked() {
	if q.cancelled {
		return
	}

	for _, ts := range q.tasks {
		if ts.GetStatus() != TaskStatusPending {
			continue
		}

		kind := ts.Task.Kind()
		if !q.strategy.CanStart(kind) {
			continue
		}
		q.strategy.OnStart(kind)

		ts.SetStatus(TaskStatusRunning)
		q.notifyUpdateLocked()

		q.wg.Add(1)
		go q.runTask(ts)
	}
}

// runTask executes a task and records the outcome.
func (q *Queue) runTask(ts *TaskState) {
	defer q.wg.Done()

	err := ts.Task.Execute(q.ctx)
	if err == nil {
		q.completeTask(ts, TaskStatusCompleted, nil)
		return
	}

	if errors.Is(err, context.Canceled) {
		q.completeTask(ts, TaskStatusCancelled, nil)
		return
	}
	q.completeTask(ts, TaskStatusFailed, err)
}

// completeTask marks a task terminal and starts any tasks the freed
// capacity allows.
func (q *Queue) completeTask(ts *TaskState, status TaskStatus, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.strategy.OnComplete(ts.Task.Kind())

	ts.SetStatus(status)
	switch status {
	case TaskStatusFailed:
		ts.SetError(err)
		q.logger.Error("task failed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Error(err))
	case TaskStatusCancelled:
		q.logger.Info("task cancelled",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))
	default:
		q.logger.Debug("task completed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))
	}

	q.notifyUpdateLocked()

	if q.allTasksDoneLocked() {
		q.closeDoneLocked()
		return
	}

	q.tryStartTasksLocked()
}

// allTasksDoneLocked returns true if all tasks are in a terminal state.
// Must be called with lock held.
func (q *Queue) allTasksDoneLocked() bool {
	for _, ts := range q.tasks {
		status := ts.GetStatus()
		if status == TaskStatusPending || status == TaskStatusRunning {
			return false
		}
	}
	return true
}

// closeDoneLocked safely closes the done channel.
// Must be called with lock held.
func (q *Queue) closeDoneLocked() {
	select {
	case <-q.done:
		// Already closed
	default:
		close(q.done)
	}
}

// resetDoneLocked recreates the done channel if it was closed, which
// allows the queue to be reused for another batch of work.
// Must be called with lock held.
func (q *Queue) resetDoneLocked() {
	select {
	case <-q.done:
		q.done = make(chan struct{})
	default:
	}
}

// notifyUpdateLocked calls the update callback with a snapshot of all tasks.
// Must be called with lock held.
func (q *Queue) notifyUpdateLocked() {
	if q.onUpdate == nil {
		return
	}

	snapshots := make([]TaskSnapshot, len(q.tasks))
	for i, ts := range q.tasks {
		snapshots[i] = ts.Snapshot()
	}
	q.onUpdate(snapshots)
}

// GetTasks returns a snapshot of all tasks.
func (q *Queue) GetTasks() []TaskSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshots := make([]TaskSnapshot, len(q.tasks))
	for i, ts := range q.tasks {
		snapshots[i] = ts.Snapshot()
	}
	return snapshots
}

// Wait blocks until all tasks complete or the context is cancelled.
// Returns nil if all tasks completed or the queue is empty, the first
// task error if any task failed, or ctx.Err() on context cancellation
// (after cancelling the queue).
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	if len(q.tasks) == 0 {
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		q.mu.Lock()
		defer q.mu.Unlock()
		for _, ts := range q.tasks {
			if ts.GetStatus() == TaskStatusFailed {
				return ts.GetError()
			}
		}
		return nil
	case <-ctx.Done():
		q.Cancel()
		return ctx.Err()
	}
}

// Cancel marks the queue as cancelled, signals running tasks to stop,
// and stops accepting new tasks.
func (q *Queue) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		return
	}

	q.cancelled = true
	q.logger.Info("queue cancelled, signaling running tasks to stop")

	q.cancel()

	for _, ts := range q.tasks {
		if ts.GetStatus() == TaskStatusPending {
			ts.SetStatus(TaskStatusCancelled)
		}
	}

	q.notifyUpdateLocked()

	if q.allTasksDoneLocked() {
		q.closeDoneLocked()
	}
}

// IsComplete returns true if all tasks have reached a terminal state.
func (q *Queue) IsComplete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.allTasksDoneLocked()
}

// HasFailures returns true if any task failed.
func (q *Queue) HasFailures() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, ts := range q.tasks {
		if ts.GetStatus() == TaskStatusFailed {
			return true
		}
	}
	return false
}

// TaskCount returns the total number of tasks.
func (q *Queue) TaskCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Progress returns a progress summary.
func (q *Queue) Progress() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := Progress{Total: len(q.tasks)}
	for _, ts := range q.tasks {
		switch ts.GetStatus() {
		case TaskStatusPending:
			p.Pending++
		case TaskStatusRunning:
			p.Running++
		case TaskStatusCompleted:
			p.Completed++
		case TaskStatusFailed:
			p.Failed++
		case TaskStatusCancelled:
			p.Cancelled++
		}
	}
	return p
}

// Progress holds queue progress statistics.
type Progress struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Percentage returns the completion percentage (0-100).
func (p Progress) Percentage() int {
	if p.Total == 0 {
		return 100
	}
	done := p.Completed + p.Failed + p.Cancelled
	return (done * 100) / p.Total
}

package workqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// testTask is a simple task for testing.
type testTask struct {
	BaseTask
	executeFunc func(ctx context.Context) error
}

func newTestTask(name string, kind TaskKind, fn func(ctx context.Context) error) *testTask {
	return &testTask{
		BaseTask:    NewBaseTask(name, kind),
		executeFunc: fn,
	}
}

func (t *testTask) Execute(ctx context.Context) error {
	if t.executeFunc != nil {
		return t.executeFunc(ctx)
	}
	return nil
}

func TestQueue_EnqueueAndComplete(t *testing.T) {
	q := New(zap.NewNop())

	var executed atomic.Bool
	task := newTestTask("test-task", KindLocal, func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	q.Enqueue(task)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !executed.Load() {
		t.Error("task was not executed")
	}
	if got := q.Progress().Completed; got != 1 {
		t.Errorf("expected 1 completed, got %d", got)
	}
}

func TestQueue_TaskFailure(t *testing.T) {
	q := New(zap.NewNop())

	expectedErr := errors.New("task failed")
	task := newTestTask("failing-task", KindLocal, func(ctx context.Context) error {
		return expectedErr
	})

	q.Enqueue(task)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := q.Wait(ctx)
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected %v, got %v", expectedErr, err)
	}
	if !q.HasFailures() {
		t.Error("expected HasFailures() to be true")
	}
}

func TestQueue_Cancel(t *testing.T) {
	q := New(zap.NewNop())

	started := make(chan struct{})
	task := newTestTask("long-task", KindComparator, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	q.Enqueue(task)
	<-started
	q.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := q.Progress()
	if p.Cancelled != 1 {
		t.Errorf("expected 1 cancelled task, got %+v", p)
	}

	// Enqueue after cancel is ignored
	q.Enqueue(newTestTask("late-task", KindLocal, nil))
	if q.TaskCount() != 1 {
		t.Errorf("expected enqueue after cancel to be ignored, task count %d", q.TaskCount())
	}
}

func TestQueue_ThrottledStrategyBoundsConcurrency(t *testing.T) {
	const limit = 2

	q := New(zap.NewNop(), WithStrategy(NewThrottledStrategy(limit)))

	var running, peak int32
	var mu sync.Mutex
	observe := func(delta int32) {
		mu.Lock()
		defer mu.Unlock()
		running += delta
		if running > peak {
			peak = running
		}
	}

	for i := 0; i < 8; i++ {
		q.Enqueue(newTestTask("compare", KindComparator, func(ctx context.Context) error {
			observe(1)
			time.Sleep(10 * time.Millisecond)
			observe(-1)
			return nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > limit {
		t.Errorf("comparator concurrency peaked at %d, limit %d", peak, limit)
	}
	if q.Progress().Completed != 8 {
		t.Errorf("expected 8 completed, got %+v", q.Progress())
	}
}

func TestQueue_SerializedStrategyAllowsMixedKinds(t *testing.T) {
	s := NewSerializedStrategy()

	if !s.CanStart(KindComparator) {
		t.Fatal("expected comparator start to be allowed")
	}
	s.OnStart(KindComparator)

	if s.CanStart(KindComparator) {
		t.Error("second comparator should be blocked")
	}
	if !s.CanStart(KindLocal) {
		t.Error("local task should run alongside a comparator task")
	}

	s.OnComplete(KindComparator)
	if !s.CanStart(KindComparator) {
		t.Error("comparator should be allowed after completion")
	}
}

func TestQueue_WaitEmptyQueue(t *testing.T) {
	q := New(zap.NewNop())
	if err := q.Wait(context.Background()); err != nil {
		t.Fatalf("Wait on empty queue returned %v", err)
	}
}

func TestQueue_ReuseAfterBatch(t *testing.T) {
	q := New(zap.NewNop())

	q.Enqueue(newTestTask("first", KindLocal, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q.Enqueue(newTestTask("second", KindLocal, nil))
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Progress().Completed != 2 {
		t.Errorf("expected 2 completed, got %+v", q.Progress())
	}
}

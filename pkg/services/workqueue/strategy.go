package workqueue

import "sync"

// Strategy controls how many tasks of each kind may run concurrently. The
// queue consults the strategy before starting a pending task and reports
// starts and completions back to it.
type Strategy interface {
	// CanStart returns true if a task of the given kind may start now.
	CanStart(kind TaskKind) bool
	// OnStart is called when a task of the given kind starts.
	OnStart(kind TaskKind)
	// OnComplete is called when a task of the given kind finishes.
	OnComplete(kind TaskKind)
}

// SerializedStrategy runs one comparator task and one local task at a
// time. A comparator task and a local task may run in parallel.
type SerializedStrategy struct {
	mu                sync.Mutex
	comparatorRunning bool
	localRunning      bool
}

// NewSerializedStrategy creates a strategy that serializes each task kind.
func NewSerializedStrategy() *SerializedStrategy {
	return &SerializedStrategy{}
}

func (s *SerializedStrategy) CanStart(kind TaskKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == KindComparator {
		return !s.comparatorRunning
	}
	return !s.localRunning
}

func (s *SerializedStrategy) OnStart(kind TaskKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == KindComparator {
		s.comparatorRunning = true
	} else {
		s.localRunning = true
	}
}

func (s *SerializedStrategy) OnComplete(kind TaskKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == KindComparator {
		s.comparatorRunning = false
	} else {
		s.localRunning = false
	}
}

// ThrottledStrategy allows up to maxComparator concurrent comparator tasks
// while local tasks run unbounded. A limit below 1 is treated as 1.
type ThrottledStrategy struct {
	mu            sync.Mutex
	maxComparator int
	running       int
}

// NewThrottledStrategy creates a strategy bounding comparator concurrency.
func NewThrottledStrategy(maxComparator int) *ThrottledStrategy {
	if maxComparator < 1 {
		maxComparator = 1
	}
	return &ThrottledStrategy{maxComparator: maxComparator}
}

func (s *ThrottledStrategy) CanStart(kind TaskKind) bool {
	if kind != KindComparator {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running < s.maxComparator
}

func (s *ThrottledStrategy) OnStart(kind TaskKind) {
	if kind != KindComparator {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running++
}

func (s *ThrottledStrategy) OnComplete(kind TaskKind) {
	if kind != KindComparator {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running--
}

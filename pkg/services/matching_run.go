package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/apperrors"
	"github.com/scanbench/scanbench-engine/pkg/models"
)

// RunStatus is the lifecycle state of a matching run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// MatchingRun is a snapshot of one scoring pass over the workspace.
type MatchingRun struct {
	ID          uuid.UUID               `json:"id"`
	Status      RunStatus               `json:"status"`
	Error       string                  `json:"error,omitempty"`
	Scores      []models.MatchScore     `json:"scores,omitempty"`
	Suggestions []models.SuggestedMatch `json:"suggestions,omitempty"`
	StartedAt   time.Time               `json:"startedAt"`
	FinishedAt  *time.Time              `json:"finishedAt,omitempty"`
}

// MatchingService runs scoring passes against the workspace and keeps the
// resulting assignment set.
type MatchingService interface {
	// StartRun launches an asynchronous scoring pass for the uploaded
	// acquisitions against the current workspace items and returns its
	// id immediately.
	StartRun(ctx context.Context, uploaded []models.Acquisition) (uuid.UUID, error)

	// GetRun returns the run snapshot, apperrors.ErrNotFound if unknown.
	GetRun(id uuid.UUID) (MatchingRun, error)

	// CancelRun stops a pending or running run. Completed runs are
	// left alone.
	CancelRun(id uuid.UUID) error

	// Assignments exposes the current upload-to-item pairing.
	Assignments() *AssignmentSet
}

// MatchingServiceDeps contains dependencies for the matching service.
type MatchingServiceDeps struct {
	Store     WorkspaceStore
	Scoring   MatchScoringEngine
	Suggester MatchSuggester
	Logger    *zap.Logger
}

type matchingService struct {
	store     WorkspaceStore
	scoring   MatchScoringEngine
	suggester MatchSuggester
	logger    *zap.Logger

	mu          sync.Mutex
	runs        map[uuid.UUID]*MatchingRun
	cancels     map[uuid.UUID]context.CancelFunc
	assignments *AssignmentSet
}

// NewMatchingService creates a matching service.
func NewMatchingService(deps *MatchingServiceDeps) MatchingService {
	return &matchingService{
		store:       deps.Store,
		scoring:     deps.Scoring,
		suggester:   deps.Suggester,
		logger:      deps.Logger.Named("matching"),
		runs:        make(map[uuid.UUID]*MatchingRun),
		cancels:     make(map[uuid.UUID]context.CancelFunc),
		assignments: NewAssignmentSet(),
	}
}

func (m *matchingService) StartRun(ctx context.Context, uploaded []models.Acquisition) (uuid.UUID, error) {
	if len(uploaded) == 0 {
		return uuid.Nil, apperrors.ErrInvalidInput
	}

	run := &MatchingRun{
		ID:        uuid.New(),
		Status:    RunPending,
		StartedAt: time.Now().UTC(),
	}

	// The run is pinned to the workspace generation it started from. Any
	// store mutation while scoring is in flight bumps the generation, and
	// the finished results describe a workspace that no longer exists.
	generation := m.store.Generation()
	slots := m.store.Items()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	m.mu.Lock()
	m.runs[run.ID] = run
	m.cancels[run.ID] = cancel
	m.mu.Unlock()

	go m.execute(runCtx, run.ID, generation, uploaded, slots)

	return run.ID, nil
}

func (m *matchingService) execute(ctx context.Context, runID uuid.UUID, generation uint64, uploaded []models.Acquisition, slots []models.WorkspaceItem) {
	m.setStatus(runID, RunRunning, "")

	scores, err := m.scoring.ComputeMatchScores(ctx, uploaded, slots)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.finish(runID, RunCancelled, "", nil, nil)
			return
		}
		m.logger.Error("scoring pass failed",
			zap.String("run_id", runID.String()),
			zap.Error(err))
		m.finish(runID, RunFailed, err.Error(), nil, nil)
		return
	}

	if m.store.Generation() != generation {
		m.logger.Info("discarding stale matching run",
			zap.String("run_id", runID.String()),
			zap.Uint64("run_generation", generation),
			zap.Uint64("store_generation", m.store.Generation()))
		m.finish(runID, RunFailed, apperrors.ErrRunSuperseded.Error(), nil, nil)
		return
	}

	suggestions := m.suggester.SuggestMatches(scores)
	for _, s := range suggestions {
		m.assignments.SetMatch(s.UploadedIndex, s.ItemID)
	}

	m.finish(runID, RunCompleted, "", scores, suggestions)
}

func (m *matchingService) setStatus(runID uuid.UUID, status RunStatus, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return
	}
	// A cancel that landed first wins.
	if run.Status == RunCancelled {
		return
	}
	run.Status = status
	run.Error = errMsg
}

func (m *matchingService) finish(runID uuid.UUID, status RunStatus, errMsg string, scores []models.MatchScore, suggestions []models.SuggestedMatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return
	}
	if run.Status != RunCancelled {
		run.Status = status
		run.Error = errMsg
		run.Scores = scores
		run.Suggestions = suggestions
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	delete(m.cancels, runID)
}

func (m *matchingService) GetRun(id uuid.UUID) (MatchingRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return MatchingRun{}, apperrors.ErrNotFound
	}
	out := *run
	return out, nil
}

func (m *matchingService) CancelRun(id uuid.UUID) error {
	m.mu.Lock()
	run, ok := m.runs[id]
	if !ok {
		m.mu.Unlock()
		return apperrors.ErrNotFound
	}
	if run.Status == RunCompleted || run.Status == RunFailed || run.Status == RunCancelled {
		m.mu.Unlock()
		return nil
	}
	run.Status = RunCancelled
	cancel := m.cancels[id]
	delete(m.cancels, id)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

func (m *matchingService) Assignments() *AssignmentSet {
	return m.assignments
}

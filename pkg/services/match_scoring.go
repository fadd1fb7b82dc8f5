package services

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
	"github.com/scanbench/scanbench-engine/pkg/services/workqueue"
)

// MatchScoringEngine scores every uploaded acquisition against every open
// reference slot. This is the dominant cost of assisted matching —
// O(uploaded x slots) comparator invocations — so qualifying pairs run
// concurrently on a work queue; they share no mutable state.
type MatchScoringEngine interface {
	// ComputeMatchScores returns one entry per qualifying
	// (uploaded, slot) pair. Slots without resolved reference content are
	// skipped entirely rather than scored zero: the matrix only grows
	// where comparison is feasible. A comparator failure on one pair
	// scores that pair zero and is logged, never propagated.
	ComputeMatchScores(ctx context.Context, uploaded []models.Acquisition, slots []models.WorkspaceItem) ([]models.MatchScore, error)
}

// MatchScoringEngineDeps contains dependencies for the scoring engine.
type MatchScoringEngineDeps struct {
	Comparator ComplianceComparator
	// Concurrency bounds simultaneous comparator calls. 1 serializes.
	Concurrency int
	Logger      *zap.Logger
}

type matchScoringEngine struct {
	comparator  ComplianceComparator
	concurrency int
	logger      *zap.Logger
}

// NewMatchScoringEngine creates a scoring engine.
func NewMatchScoringEngine(deps *MatchScoringEngineDeps) MatchScoringEngine {
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &matchScoringEngine{
		comparator:  deps.Comparator,
		concurrency: concurrency,
		logger:      deps.Logger.Named("scoring"),
	}
}

// scorePair is the unit of work: one uploaded acquisition against one
// slot's reference content.
type scorePair struct {
	uploadedIndex int
	uploaded      models.Acquisition
	slot          models.WorkspaceItem
	reference     models.Acquisition
}

type compareTask struct {
	workqueue.BaseTask

	engine *matchScoringEngine
	pair   scorePair

	mu      *sync.Mutex
	results []models.MatchScore
	at      int
}

func (t *compareTask) Execute(ctx context.Context) error {
	score := t.engine.scoreOne(ctx, t.pair)
	t.mu.Lock()
	t.results[t.at] = score
	t.mu.Unlock()
	return nil
}

func (e *matchScoringEngine) ComputeMatchScores(ctx context.Context, uploaded []models.Acquisition, slots []models.WorkspaceItem) ([]models.MatchScore, error) {
	var pairs []scorePair
	for uploadedIndex, upload := range uploaded {
		for _, slot := range slots {
			reference, ok := slot.ReferenceAcquisition()
			if !ok {
				// No resolved reference content (e.g. an unresolved
				// binding): comparison is undefined for this slot.
				continue
			}
			pairs = append(pairs, scorePair{
				uploadedIndex: uploadedIndex,
				uploaded:      upload,
				slot:          slot,
				reference:     reference,
			})
		}
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	results := make([]models.MatchScore, len(pairs))
	var mu sync.Mutex

	queue := workqueue.New(e.logger, workqueue.WithStrategy(workqueue.NewThrottledStrategy(e.concurrency)))
	for i, pair := range pairs {
		queue.Enqueue(&compareTask{
			BaseTask: workqueue.NewBaseTask(
				fmt.Sprintf("compare upload %d vs %s", pair.uploadedIndex, pair.slot.ID),
				workqueue.KindComparator),
			engine:  e,
			pair:    pair,
			mu:      &mu,
			results: results,
			at:      i,
		})
	}

	if err := queue.Wait(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// scoreOne runs the comparator for a single pair and reduces the verdicts
// to a percentage. Verdicts outside pass/fail stay out of the denominator:
// they represent fields the comparator could not evaluate, and counting
// them would penalize uploads for missing optional fields rather than
// genuine mismatches.
func (e *matchScoringEngine) scoreOne(ctx context.Context, pair scorePair) models.MatchScore {
	score := models.MatchScore{
		UploadedIndex: pair.uploadedIndex,
		ItemID:        pair.slot.ID,
	}

	verdicts, err := e.comparator.Compare(ctx, pair.uploaded, pair.reference)
	if err != nil {
		// Contained: the pair scores zero so the matrix keeps its shape,
		// and the pass carries on.
		e.logger.Warn("comparator failed for pair",
			zap.Int("uploaded_index", pair.uploadedIndex),
			zap.String("item_id", pair.slot.ID.String()),
			zap.Error(err))
		return score
	}

	for _, v := range verdicts {
		switch v.Status {
		case models.StatusPass:
			score.PassCount++
		case models.StatusFail:
			score.FailCount++
		case models.StatusWarning:
			score.WarningCount++
		}
	}
	score.TotalCount = score.PassCount + score.FailCount
	if score.TotalCount > 0 {
		score.Score = int(math.Round(100 * float64(score.PassCount) / float64(score.TotalCount)))
	}
	return score
}

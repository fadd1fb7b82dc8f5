package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
	"github.com/scanbench/scanbench-engine/pkg/testhelpers"
)

func referenceSlot(name string) models.WorkspaceItem {
	return models.WorkspaceItem{
		ID:          uuid.New(),
		Origin:      models.OriginSchema,
		Acquisition: testhelpers.MakeAcquisition(name, nil),
	}
}

func TestComputeMatchScores_CountsAndPercentage(t *testing.T) {
	comparator := &testhelpers.ScriptedComparator{Verdicts: testhelpers.Verdicts(8, 2, 1)}
	engine := NewMatchScoringEngine(&MatchScoringEngineDeps{
		Comparator:  comparator,
		Concurrency: 2,
		Logger:      zap.NewNop(),
	})

	slot := referenceSlot("T1w_MPRAGE")
	uploaded := []models.Acquisition{testhelpers.MakeAcquisition("t1 mprage", nil)}

	scores, err := engine.ComputeMatchScores(context.Background(), uploaded, []models.WorkspaceItem{slot})
	require.NoError(t, err)
	require.Len(t, scores, 1)

	got := scores[0]
	assert.Equal(t, 0, got.UploadedIndex)
	assert.Equal(t, slot.ID, got.ItemID)
	assert.Equal(t, 8, got.PassCount)
	assert.Equal(t, 2, got.FailCount)
	assert.Equal(t, 1, got.WarningCount)
	assert.Equal(t, 10, got.TotalCount)
	// Warnings stay out of the denominator: 8/10, not 8/11.
	assert.Equal(t, 80, got.Score)
}

func TestComputeMatchScores_ZeroDenominator(t *testing.T) {
	// Only warnings: nothing comparable, so the score is 0 rather than
	// a division by zero.
	comparator := &testhelpers.ScriptedComparator{Verdicts: testhelpers.Verdicts(0, 0, 3)}
	engine := NewMatchScoringEngine(&MatchScoringEngineDeps{
		Comparator: comparator,
		Logger:     zap.NewNop(),
	})

	scores, err := engine.ComputeMatchScores(context.Background(),
		[]models.Acquisition{testhelpers.MakeAcquisition("bold", nil)},
		[]models.WorkspaceItem{referenceSlot("BOLD")})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 0, scores[0].Score)
	assert.Equal(t, 0, scores[0].TotalCount)
}

func TestComputeMatchScores_SkipsSlotsWithoutReference(t *testing.T) {
	comparator := &testhelpers.ScriptedComparator{Verdicts: testhelpers.Verdicts(1, 0, 0)}
	engine := NewMatchScoringEngine(&MatchScoringEngineDeps{
		Comparator: comparator,
		Logger:     zap.NewNop(),
	})

	subject := models.WorkspaceItem{
		ID:            uuid.New(),
		Origin:        models.OriginData,
		DataUsageMode: models.ModeValidationSubject,
	}
	ref := referenceSlot("DWI")

	scores, err := engine.ComputeMatchScores(context.Background(),
		[]models.Acquisition{testhelpers.MakeAcquisition("dwi", nil)},
		[]models.WorkspaceItem{subject, ref})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, ref.ID, scores[0].ItemID)
	assert.Equal(t, 1, comparator.CallCount())
}

func TestComputeMatchScores_ComparatorFailureScoresZero(t *testing.T) {
	comparator := &testhelpers.ScriptedComparator{Err: errors.New("validation engine unreachable")}
	engine := NewMatchScoringEngine(&MatchScoringEngineDeps{
		Comparator: comparator,
		Logger:     zap.NewNop(),
	})

	slot := referenceSlot("FLAIR")
	scores, err := engine.ComputeMatchScores(context.Background(),
		[]models.Acquisition{testhelpers.MakeAcquisition("flair", nil)},
		[]models.WorkspaceItem{slot})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 0, scores[0].Score)
	assert.Equal(t, 0, scores[0].PassCount)
	assert.Equal(t, slot.ID, scores[0].ItemID)
}

func TestComputeMatchScores_FullMatrix(t *testing.T) {
	comparator := &testhelpers.ScriptedComparator{Verdicts: testhelpers.Verdicts(3, 1, 0)}
	engine := NewMatchScoringEngine(&MatchScoringEngineDeps{
		Comparator:  comparator,
		Concurrency: 3,
		Logger:      zap.NewNop(),
	})

	slots := []models.WorkspaceItem{referenceSlot("A"), referenceSlot("B"), referenceSlot("C")}
	uploaded := []models.Acquisition{
		testhelpers.MakeAcquisition("u0", nil),
		testhelpers.MakeAcquisition("u1", nil),
	}

	scores, err := engine.ComputeMatchScores(context.Background(), uploaded, slots)
	require.NoError(t, err)
	require.Len(t, scores, 6)
	assert.Equal(t, 6, comparator.CallCount())

	// Pair ordering is deterministic: upload-major, slot order within.
	assert.Equal(t, 0, scores[0].UploadedIndex)
	assert.Equal(t, slots[0].ID, scores[0].ItemID)
	assert.Equal(t, 0, scores[2].UploadedIndex)
	assert.Equal(t, slots[2].ID, scores[2].ItemID)
	assert.Equal(t, 1, scores[3].UploadedIndex)
	assert.Equal(t, slots[0].ID, scores[3].ItemID)
}

func TestComputeMatchScores_NoPairs(t *testing.T) {
	engine := NewMatchScoringEngine(&MatchScoringEngineDeps{
		Comparator: &testhelpers.ScriptedComparator{},
		Logger:     zap.NewNop(),
	})

	scores, err := engine.ComputeMatchScores(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

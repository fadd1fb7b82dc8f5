package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
)

func newTestSuggester(minScore int) MatchSuggester {
	return NewMatchSuggester(&MatchSuggesterDeps{MinScore: minScore, Logger: zap.NewNop()})
}

func TestSuggestMatches_GreedyOneToOne(t *testing.T) {
	itemA := uuid.New()
	itemB := uuid.New()

	scores := []models.MatchScore{
		{UploadedIndex: 0, ItemID: itemA, Score: 90, PassCount: 9},
		{UploadedIndex: 0, ItemID: itemB, Score: 70, PassCount: 7},
		{UploadedIndex: 1, ItemID: itemA, Score: 85, PassCount: 17},
		{UploadedIndex: 1, ItemID: itemB, Score: 60, PassCount: 6},
	}

	got := newTestSuggester(30).SuggestMatches(scores)
	require.Len(t, got, 2)

	// Upload 0 takes item A at 90; upload 1 falls back to item B even
	// though its best candidate was already taken.
	assert.Equal(t, 0, got[0].UploadedIndex)
	assert.Equal(t, itemA, got[0].ItemID)
	assert.Equal(t, 90, got[0].Score)
	assert.Equal(t, 1, got[1].UploadedIndex)
	assert.Equal(t, itemB, got[1].ItemID)
	assert.Equal(t, 60, got[1].Score)
}

func TestSuggestMatches_TieBrokenByPassCount(t *testing.T) {
	itemA := uuid.New()
	itemB := uuid.New()

	// Both pairs score 100; the one built on 40 comparable fields is
	// more trustworthy than the one built on 4.
	scores := []models.MatchScore{
		{UploadedIndex: 0, ItemID: itemA, Score: 100, PassCount: 4, TotalCount: 4},
		{UploadedIndex: 1, ItemID: itemB, Score: 100, PassCount: 40, TotalCount: 40},
	}

	got := newTestSuggester(30).SuggestMatches(scores)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].UploadedIndex)
	assert.Equal(t, itemB, got[0].ItemID)
	assert.Equal(t, 0, got[1].UploadedIndex)
}

func TestSuggestMatches_MinScoreThreshold(t *testing.T) {
	scores := []models.MatchScore{
		{UploadedIndex: 0, ItemID: uuid.New(), Score: 25, PassCount: 1},
	}

	got := newTestSuggester(30).SuggestMatches(scores)
	assert.Empty(t, got, "a pairing under the threshold should be left unmatched, not suggested")
}

func TestSuggestMatches_Confidence(t *testing.T) {
	tests := []struct {
		score int
		want  models.Confidence
	}{
		{95, models.ConfidenceHigh},
		{80, models.ConfidenceHigh},
		{79, models.ConfidenceMedium},
		{50, models.ConfidenceMedium},
		{49, models.ConfidenceLow},
	}

	for _, tt := range tests {
		scores := []models.MatchScore{{UploadedIndex: 0, ItemID: uuid.New(), Score: tt.score}}
		got := newTestSuggester(0).SuggestMatches(scores)
		require.Len(t, got, 1)
		assert.Equal(t, tt.want, got[0].Confidence, "score %d", tt.score)
	}
}

func TestSuggestMatches_DoesNotMutateInput(t *testing.T) {
	itemA := uuid.New()
	itemB := uuid.New()
	scores := []models.MatchScore{
		{UploadedIndex: 0, ItemID: itemA, Score: 40},
		{UploadedIndex: 1, ItemID: itemB, Score: 90},
	}

	newTestSuggester(30).SuggestMatches(scores)
	assert.Equal(t, itemA, scores[0].ItemID)
	assert.Equal(t, 40, scores[0].Score)
}

func TestAssignmentSet_SetMatchDisplaces(t *testing.T) {
	itemA := uuid.New()
	itemB := uuid.New()
	set := NewAssignmentSet()

	set.SetMatch(0, itemA)
	set.SetMatch(1, itemB)

	// Re-pointing upload 1 at item A frees upload 0 rather than leaving
	// two uploads on one slot.
	set.SetMatch(1, itemA)

	_, ok := set.MatchFor(0)
	assert.False(t, ok)
	got, ok := set.MatchFor(1)
	require.True(t, ok)
	assert.Equal(t, itemA, got)

	_, ok = set.UploadFor(itemB)
	assert.False(t, ok)
	upload, ok := set.UploadFor(itemA)
	require.True(t, ok)
	assert.Equal(t, 1, upload)
}

func TestAssignmentSet_ClearMatch(t *testing.T) {
	itemA := uuid.New()
	set := NewAssignmentSet()
	set.SetMatch(3, itemA)

	set.ClearMatch(3)
	_, ok := set.MatchFor(3)
	assert.False(t, ok)
	_, ok = set.UploadFor(itemA)
	assert.False(t, ok)

	// Clearing an unassigned upload is a no-op.
	set.ClearMatch(7)
	assert.Empty(t, set.Assignments())
}

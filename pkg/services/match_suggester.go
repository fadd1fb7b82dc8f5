package services

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
)

// MatchSuggester turns a score matrix into one-to-one pairing suggestions.
type MatchSuggester interface {
	// SuggestMatches greedily pairs uploads with slots: entries are taken
	// in descending score order (pass count breaks ties) and accepted
	// when both sides are still free and the score clears the minimum.
	// Uploads left unpaired simply produce no suggestion.
	SuggestMatches(scores []models.MatchScore) []models.SuggestedMatch
}

// MatchSuggesterDeps contains dependencies for the suggester.
type MatchSuggesterDeps struct {
	// MinScore is the lowest score a suggestion may carry. Pairings below
	// it are noise; leaving the upload unmatched reads better than a
	// confidently wrong suggestion.
	MinScore int
	Logger   *zap.Logger
}

type matchSuggester struct {
	minScore int
	logger   *zap.Logger
}

// NewMatchSuggester creates a suggester.
func NewMatchSuggester(deps *MatchSuggesterDeps) MatchSuggester {
	return &matchSuggester{
		minScore: deps.MinScore,
		logger:   deps.Logger.Named("suggester"),
	}
}

func (s *matchSuggester) SuggestMatches(scores []models.MatchScore) []models.SuggestedMatch {
	ordered := make([]models.MatchScore, len(scores))
	copy(ordered, scores)
	// Stable keeps the caller's order for fully tied entries, so repeated
	// runs over the same matrix suggest the same pairs.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].PassCount > ordered[j].PassCount
	})

	usedUploads := make(map[int]bool)
	usedItems := make(map[uuid.UUID]bool)

	var suggestions []models.SuggestedMatch
	for _, entry := range ordered {
		if entry.Score < s.minScore {
			// Sorted descending, so nothing after this clears the bar
			// either.
			break
		}
		if usedUploads[entry.UploadedIndex] || usedItems[entry.ItemID] {
			continue
		}
		usedUploads[entry.UploadedIndex] = true
		usedItems[entry.ItemID] = true
		suggestions = append(suggestions, models.SuggestedMatch{
			UploadedIndex: entry.UploadedIndex,
			ItemID:        entry.ItemID,
			Score:         entry.Score,
			Confidence:    models.ConfidenceForScore(entry.Score),
		})
	}

	s.logger.Debug("suggested matches",
		zap.Int("candidates", len(scores)),
		zap.Int("suggestions", len(suggestions)))
	return suggestions
}

// AssignmentSet holds the user-facing upload-to-slot pairing. Suggestions
// seed it; users then confirm, move, or clear pairs. Both directions stay
// one-to-one through the single SetMatch mutation.
type AssignmentSet struct {
	mu sync.Mutex
	// byUpload and byItem mirror each other.
	byUpload map[int]uuid.UUID
	byItem   map[uuid.UUID]int
}

// NewAssignmentSet creates an empty assignment set.
func NewAssignmentSet() *AssignmentSet {
	return &AssignmentSet{
		byUpload: make(map[int]uuid.UUID),
		byItem:   make(map[uuid.UUID]int),
	}
}

// SetMatch assigns an upload to an item. An existing assignment for
// either side is displaced first, so re-pointing an upload at an occupied
// slot frees that slot's previous upload instead of double-booking it.
func (a *AssignmentSet) SetMatch(uploadedIndex int, itemID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if prevItem, ok := a.byUpload[uploadedIndex]; ok {
		delete(a.byItem, prevItem)
	}
	if prevUpload, ok := a.byItem[itemID]; ok {
		delete(a.byUpload, prevUpload)
	}
	a.byUpload[uploadedIndex] = itemID
	a.byItem[itemID] = uploadedIndex
}

// ClearMatch removes the assignment for an upload, if any.
func (a *AssignmentSet) ClearMatch(uploadedIndex int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if itemID, ok := a.byUpload[uploadedIndex]; ok {
		delete(a.byItem, itemID)
		delete(a.byUpload, uploadedIndex)
	}
}

// MatchFor returns the item assigned to an upload.
func (a *AssignmentSet) MatchFor(uploadedIndex int) (uuid.UUID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	itemID, ok := a.byUpload[uploadedIndex]
	return itemID, ok
}

// UploadFor returns the upload assigned to an item.
func (a *AssignmentSet) UploadFor(itemID uuid.UUID) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.byItem[itemID]
	return idx, ok
}

// Assignments returns a copy of the upload-to-item map.
func (a *AssignmentSet) Assignments() map[int]uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]uuid.UUID, len(a.byUpload))
	for k, v := range a.byUpload {
		out[k] = v
	}
	return out
}

// Clear removes every assignment.
func (a *AssignmentSet) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byUpload = make(map[int]uuid.UUID)
	a.byItem = make(map[uuid.UUID]int)
}

package models

import "github.com/google/uuid"

// MatchScore is one cell of the scoring matrix: how well an uploaded
// acquisition complies with one reference slot. Ephemeral; recomputed on
// demand and never persisted.
type MatchScore struct {
	UploadedIndex int       `json:"uploaded_index"`
	ItemID        uuid.UUID `json:"item_id"`
	Score         int       `json:"score"` // 0-100
	PassCount     int       `json:"pass_count"`
	FailCount     int       `json:"fail_count"`
	WarningCount  int       `json:"warning_count"`
	TotalCount    int       `json:"total_count"`
}

// Confidence buckets a score for display.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceForScore derives the display bucket from a 0-100 score.
func ConfidenceForScore(score int) Confidence {
	switch {
	case score >= 80:
		return ConfidenceHigh
	case score >= 50:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// SuggestedMatch is one proposed (upload, slot) assignment.
type SuggestedMatch struct {
	UploadedIndex int        `json:"uploaded_index"`
	ItemID        uuid.UUID  `json:"item_id"`
	Score         int        `json:"score"`
	Confidence    Confidence `json:"confidence"`
}

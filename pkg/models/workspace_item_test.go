package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestIsReferenceBearing(t *testing.T) {
	binding := &ReferenceBinding{SchemaID: uuid.New(), AcquisitionIndex: 0}

	tests := []struct {
		name     string
		item     WorkspaceItem
		expected bool
	}{
		{
			name:     "schema origin is always reference bearing",
			item:     WorkspaceItem{Origin: OriginSchema},
			expected: true,
		},
		{
			name:     "data origin acting as template",
			item:     WorkspaceItem{Origin: OriginData, DataUsageMode: ModeSchemaTemplate},
			expected: true,
		},
		{
			name:     "data origin acting as subject",
			item:     WorkspaceItem{Origin: OriginData, DataUsageMode: ModeValidationSubject},
			expected: false,
		},
		{
			name:     "empty with created reference",
			item:     WorkspaceItem{Origin: OriginEmpty, HasCreatedReference: true},
			expected: true,
		},
		{
			name:     "empty with attached reference",
			item:     WorkspaceItem{Origin: OriginEmpty, AttachedReference: binding},
			expected: true,
		},
		{
			name:     "empty with nothing",
			item:     WorkspaceItem{Origin: OriginEmpty},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.IsReferenceBearing(); got != tt.expected {
				t.Errorf("IsReferenceBearing() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReferenceAcquisition(t *testing.T) {
	acq := Acquisition{ProtocolName: "T1w"}

	t.Run("schema origin returns own content", func(t *testing.T) {
		item := WorkspaceItem{Origin: OriginSchema, Acquisition: acq}
		got, ok := item.ReferenceAcquisition()
		if !ok || got.ProtocolName != "T1w" {
			t.Fatalf("ReferenceAcquisition() = %v, %v; want T1w, true", got, ok)
		}
	})

	t.Run("empty with only a binding has no resolved content", func(t *testing.T) {
		item := WorkspaceItem{
			Origin:            OriginEmpty,
			AttachedReference: &ReferenceBinding{SchemaID: uuid.New()},
		}
		if _, ok := item.ReferenceAcquisition(); ok {
			t.Fatal("expected no resolved reference content for binding-only item")
		}
	})

	t.Run("validation subject has no reference content", func(t *testing.T) {
		item := WorkspaceItem{Origin: OriginData, DataUsageMode: ModeValidationSubject, Acquisition: acq}
		if _, ok := item.ReferenceAcquisition(); ok {
			t.Fatal("expected no reference content for a subject item")
		}
	})
}

func TestIsVacuous(t *testing.T) {
	data := Acquisition{ProtocolName: "bold"}

	tests := []struct {
		name     string
		item     WorkspaceItem
		expected bool
	}{
		{
			name:     "empty with nothing attached",
			item:     WorkspaceItem{Origin: OriginEmpty},
			expected: true,
		},
		{
			name:     "empty with created reference",
			item:     WorkspaceItem{Origin: OriginEmpty, HasCreatedReference: true},
			expected: false,
		},
		{
			name:     "empty with attached data",
			item:     WorkspaceItem{Origin: OriginEmpty, AttachedData: &data},
			expected: false,
		},
		{
			name:     "schema origin is never vacuous",
			item:     WorkspaceItem{Origin: OriginSchema},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.IsVacuous(); got != tt.expected {
				t.Errorf("IsVacuous() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfidenceForScore(t *testing.T) {
	tests := []struct {
		score    int
		expected Confidence
	}{
		{100, ConfidenceHigh},
		{80, ConfidenceHigh},
		{79, ConfidenceMedium},
		{50, ConfidenceMedium},
		{49, ConfidenceLow},
		{0, ConfidenceLow},
	}

	for _, tt := range tests {
		if got := ConfidenceForScore(tt.score); got != tt.expected {
			t.Errorf("ConfidenceForScore(%d) = %s, want %s", tt.score, got, tt.expected)
		}
	}
}

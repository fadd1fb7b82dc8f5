package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
)

// Attachment lifecycle: the transition rules that attach and detach
// reference bindings and subject data on workspace items. Preconditions
// that do not hold make the operation a silent no-op — the store is
// driven by UI events that can race with unmounts, so resilience beats
// strictness here. Only lookup failures surface as errors, and they
// leave the item untouched.

// AttachData sets the subject-to-validate on a reference-bearing item.
func (s *workspaceStore) AttachData(id uuid.UUID, data models.Acquisition) error {
	s.update(id, func(item *models.WorkspaceItem) bool {
		if !item.IsReferenceBearing() {
			s.logger.Debug("attach data rejected: item is not reference-bearing",
				zap.String("item_id", id.String()),
				zap.String("origin", string(item.Origin)))
			return false
		}
		d := data.Clone()
		item.AttachedData = &d
		return true
	})
	return nil
}

// AttachReference binds an expected reference onto a subject-bearing or
// empty item. The binding is resolved first so a lookup failure surfaces
// before any state changes; for empty items, the resolved acquisition's
// display fields are copied onto the item so it renders sensibly before
// the reference is fully loaded.
func (s *workspaceStore) AttachReference(ctx context.Context, id uuid.UUID, binding models.ReferenceBinding) error {
	resolved, err := s.resolver.Resolve(ctx, binding, s.fetcher)
	if err != nil {
		return fmt.Errorf("failed to resolve reference %s[%d]: %w",
			binding.SchemaID, binding.AcquisitionIndex, err)
	}

	s.update(id, func(item *models.WorkspaceItem) bool {
		subjectBearing := item.IsSubjectBearing()
		if !subjectBearing && item.Origin != models.OriginEmpty {
			s.logger.Debug("attach reference rejected: item is neither subject-bearing nor empty",
				zap.String("item_id", id.String()),
				zap.String("origin", string(item.Origin)))
			return false
		}

		b := binding
		item.AttachedReference = &b
		item.HasCreatedReference = false

		if item.Origin == models.OriginEmpty {
			item.Acquisition.ProtocolName = resolved.ProtocolName
			item.Acquisition.SeriesDescription = resolved.SeriesDescription
			item.Acquisition.Tags = append([]string(nil), resolved.Tags...)
		}
		return true
	})
	return nil
}

// DetachData clears the attached subject. Detaching from an empty item
// that holds nothing else removes the item via the vacuous rule.
func (s *workspaceStore) DetachData(id uuid.UUID) {
	s.update(id, func(item *models.WorkspaceItem) bool {
		item.AttachedData = nil
		return true
	})
}

// DetachReference clears the reference role. What remains depends on
// where the item's own content came from:
//   - schema origin: the self-authored content is discarded and the item
//     reverts to empty, keeping any attached data;
//   - data origin in schema-template mode: same reversion to empty;
//   - empty origin with an attached binding: the binding is cleared and
//     the copied display fields are blanked, keeping any attached data;
//   - anything else: just the binding is cleared.
func (s *workspaceStore) DetachReference(id uuid.UUID) {
	s.update(id, func(item *models.WorkspaceItem) bool {
		switch {
		case item.Origin == models.OriginSchema,
			item.Origin == models.OriginData && item.DataUsageMode == models.ModeSchemaTemplate:
			item.Origin = models.OriginEmpty
			item.Acquisition = models.BlankAcquisition()
			item.DataUsageMode = ""
			item.ReferenceOrigin = nil
			item.AttachedReference = nil
			item.HasCreatedReference = false
			item.IsEditing = false

		case item.Origin == models.OriginEmpty && item.AttachedReference != nil:
			item.AttachedReference = nil
			item.Acquisition.ProtocolName = ""
			item.Acquisition.SeriesDescription = ""
			item.Acquisition.Tags = nil

		default:
			item.AttachedReference = nil
		}
		return true
	})
}

// CreateReference starts a blank reference on an empty item: the item
// keeps its empty origin but now owns stub content in edit mode. Any
// attached binding is superseded.
func (s *workspaceStore) CreateReference(id uuid.UUID) {
	s.update(id, func(item *models.WorkspaceItem) bool {
		if item.Origin != models.OriginEmpty {
			return false
		}
		item.HasCreatedReference = true
		item.AttachedReference = nil
		item.IsEditing = true
		if item.Acquisition.ProtocolName == "" {
			item.Acquisition.ProtocolName = models.StubAcquisition().ProtocolName
		}
		return true
	})
}

// DetachCreatedReference abandons a manually started reference, blanking
// its content entirely. The vacuous rule then removes the item unless it
// still holds attached data.
func (s *workspaceStore) DetachCreatedReference(id uuid.UUID) {
	s.update(id, func(item *models.WorkspaceItem) bool {
		if !item.HasCreatedReference {
			return false
		}
		item.HasCreatedReference = false
		item.IsEditing = false
		item.Acquisition = models.BlankAcquisition()
		return true
	})
}

// SetDataUsageMode switches which role a data-origin item's own content
// plays. Subject data is never hand-edited, so switching to
// validation-subject leaves edit mode.
func (s *workspaceStore) SetDataUsageMode(id uuid.UUID, mode models.DataUsageMode) {
	if !mode.IsValid() {
		return
	}
	s.update(id, func(item *models.WorkspaceItem) bool {
		if item.Origin != models.OriginData {
			return false
		}
		item.DataUsageMode = mode
		if mode == models.ModeValidationSubject {
			item.IsEditing = false
		}
		return true
	})
}

// SetEditing toggles edit mode. Entering edit mode is rejected while the
// item plays a secondary role (attached data or reference) — editing the
// item's own acquisition while it backs a comparison would be ambiguous —
// and on subject items, whose content mirrors uploaded data.
func (s *workspaceStore) SetEditing(id uuid.UUID, editing bool) {
	s.update(id, func(item *models.WorkspaceItem) bool {
		if editing {
			if item.AttachedData != nil || item.AttachedReference != nil {
				return false
			}
			if item.IsSubjectBearing() {
				return false
			}
		}
		item.IsEditing = editing
		return true
	})
}

// UpdateAcquisition replaces the item's own content. Only items in edit
// mode may be mutated.
func (s *workspaceStore) UpdateAcquisition(id uuid.UUID, acq models.Acquisition) {
	s.update(id, func(item *models.WorkspaceItem) bool {
		if !item.IsEditing {
			return false
		}
		item.Acquisition = acq.Clone()
		return true
	})
}

// SetNotes updates the free-text notes next to an item. Notes are not
// validated content and never exported.
func (s *workspaceStore) SetNotes(id uuid.UUID, notes string) {
	s.update(id, func(item *models.WorkspaceItem) bool {
		item.Notes = notes
		return true
	})
}

package models

import "github.com/google/uuid"

// ItemOrigin says where a workspace item's own acquisition content came from.
type ItemOrigin string

const (
	// OriginSchema marks content sourced from the schema library or
	// authored in place as a reference.
	OriginSchema ItemOrigin = "schema"
	// OriginData marks content parsed from uploaded session data.
	OriginData ItemOrigin = "data"
	// OriginEmpty marks a placeholder item with no own content yet.
	OriginEmpty ItemOrigin = "empty"
)

// IsValid returns true if the origin is one of the known values.
func (o ItemOrigin) IsValid() bool {
	switch o {
	case OriginSchema, OriginData, OriginEmpty:
		return true
	default:
		return false
	}
}

// DataUsageMode says which role a data-origin item's own acquisition plays.
// Only meaningful when the item's origin is OriginData.
type DataUsageMode string

const (
	// ModeSchemaTemplate uses the uploaded acquisition as the expected
	// reference for some other subject.
	ModeSchemaTemplate DataUsageMode = "schema-template"
	// ModeValidationSubject uses the uploaded acquisition as the subject
	// being validated against an attached reference.
	ModeValidationSubject DataUsageMode = "validation-subject"
)

// IsValid returns true if the mode is one of the known values.
func (m DataUsageMode) IsValid() bool {
	return m == ModeSchemaTemplate || m == ModeValidationSubject
}

// ReferenceBinding points at one acquisition inside a named schema
// document without carrying the resolved content. Immutable once created.
type ReferenceBinding struct {
	SchemaID         uuid.UUID `json:"schema_id"`
	AcquisitionIndex int       `json:"acquisition_index"`
	SchemaName       string    `json:"schema_name"`
	AcquisitionName  string    `json:"acquisition_name"`
}

// WorkspaceItem is the central workbench entity: an acquisition that may
// act as the expected reference, the subject under validation, or an empty
// placeholder that has been given one of those roles by attachment.
type WorkspaceItem struct {
	ID          uuid.UUID     `json:"id"`
	Acquisition Acquisition   `json:"acquisition"`
	Origin      ItemOrigin    `json:"origin"`
	// DataUsageMode is only meaningful when Origin is OriginData.
	DataUsageMode DataUsageMode `json:"data_usage_mode,omitempty"`

	// AttachedData plays the subject role when the item's own content is
	// the reference.
	AttachedData *Acquisition `json:"attached_data,omitempty"`
	// AttachedReference plays the reference role when the item's own
	// content is the subject, or when an empty item was given a reference.
	// Mutually exclusive with HasCreatedReference.
	AttachedReference *ReferenceBinding `json:"attached_reference,omitempty"`
	// HasCreatedReference is true when an empty item has had a blank
	// reference manually started rather than attached.
	HasCreatedReference bool `json:"has_created_reference,omitempty"`

	// ReferenceOrigin records which library binding a schema-origin item's
	// own content was sourced from, when it was not authored in place.
	ReferenceOrigin *ReferenceBinding `json:"reference_origin,omitempty"`

	// IsEditing gates whether the item's own acquisition may be mutated.
	IsEditing bool `json:"is_editing,omitempty"`
	// Notes is free text next to the item, excluded from exports.
	Notes string `json:"notes,omitempty"`
}

// IsReferenceBearing reports whether the item currently fills the
// reference role, through its own content or an attached binding.
func (w *WorkspaceItem) IsReferenceBearing() bool {
	switch w.Origin {
	case OriginSchema:
		return true
	case OriginData:
		return w.DataUsageMode == ModeSchemaTemplate
	case OriginEmpty:
		return w.HasCreatedReference || w.AttachedReference != nil
	default:
		return false
	}
}

// IsSubjectBearing reports whether the item's own content is the subject
// being validated.
func (w *WorkspaceItem) IsSubjectBearing() bool {
	return w.Origin == OriginData && w.DataUsageMode == ModeValidationSubject
}

// ReferenceAcquisition returns the item's resolved reference content, if
// any. An empty item holding only an unresolved binding has no resolved
// content and returns false; callers that need the binding resolved go
// through the resolver instead.
func (w *WorkspaceItem) ReferenceAcquisition() (Acquisition, bool) {
	switch w.Origin {
	case OriginSchema:
		return w.Acquisition, true
	case OriginData:
		if w.DataUsageMode == ModeSchemaTemplate {
			return w.Acquisition, true
		}
	case OriginEmpty:
		if w.HasCreatedReference {
			return w.Acquisition, true
		}
	}
	return Acquisition{}, false
}

// IsVacuous reports whether the item holds nothing at all: an empty-origin
// item with no created reference, no attached reference and no attached
// data. Vacuous items must not persist in the store.
func (w *WorkspaceItem) IsVacuous() bool {
	return w.Origin == OriginEmpty &&
		!w.HasCreatedReference &&
		w.AttachedReference == nil &&
		w.AttachedData == nil
}

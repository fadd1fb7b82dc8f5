package models

// VerdictStatus is the outcome of comparing one field between a subject
// and a reference acquisition.
type VerdictStatus string

const (
	StatusPass    VerdictStatus = "pass"
	StatusFail    VerdictStatus = "fail"
	StatusWarning VerdictStatus = "warning"
	// StatusNA marks a field the comparator had no subject value for.
	StatusNA VerdictStatus = "na"
	// StatusUnknown marks a field the comparator could not evaluate.
	StatusUnknown VerdictStatus = "unknown"
)

// Comparable reports whether the status counts toward a match score.
// Only pass and fail verdicts enter the denominator; na and unknown
// represent fields that could not be evaluated, and warnings are advisory.
func (s VerdictStatus) Comparable() bool {
	return s == StatusPass || s == StatusFail
}

// FieldVerdict is one field's compliance result.
type FieldVerdict struct {
	FieldID string        `json:"field_id"`
	Status  VerdictStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}

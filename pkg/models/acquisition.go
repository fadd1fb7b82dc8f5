// Package models contains domain types for scanbench-engine.
package models

// Acquisition is a structured record of one imaging protocol: its scalar
// fields, per-series overrides, optional validation rules and free-text
// documentation. Acquisitions are treated as immutable values; code that
// needs a modified acquisition builds a replacement rather than mutating
// in place.
type Acquisition struct {
	ProtocolName      string             `json:"protocol_name" yaml:"protocol_name"`
	SeriesDescription string             `json:"series_description,omitempty" yaml:"series_description,omitempty"`
	Tags              []string           `json:"tags,omitempty" yaml:"tags,omitempty"`
	Fields            []AcquisitionField `json:"fields,omitempty" yaml:"fields,omitempty"`
	Series            []Series           `json:"series,omitempty" yaml:"series,omitempty"`
	Rules             []ValidationRule   `json:"rules,omitempty" yaml:"rules,omitempty"`
	Documentation     string             `json:"documentation,omitempty" yaml:"documentation,omitempty"`
}

// AcquisitionField is a single scalar protocol parameter, identified by
// its DICOM tag and/or keyword name.
type AcquisitionField struct {
	Tag   string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Series is a named group of images within an acquisition. Its fields
// override the acquisition-level fields of the same name.
type Series struct {
	Name   string             `json:"name" yaml:"name"`
	Fields []AcquisitionField `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Validation rule check kinds. These mirror the checks the compliance
// comparator knows how to evaluate; anything else yields an unknown verdict.
const (
	RuleCheckExact     = "exact"
	RuleCheckTolerance = "tolerance"
	RuleCheckContains  = "contains"
)

// ValidationRule constrains how one field is compared against a subject.
// A field without a rule is compared with the exact check.
type ValidationRule struct {
	Field     string   `json:"field" yaml:"field"`
	Check     string   `json:"check" yaml:"check"`
	Expected  any      `json:"expected,omitempty" yaml:"expected,omitempty"`
	Tolerance *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Contains  string   `json:"contains,omitempty" yaml:"contains,omitempty"`
	Message   string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// StubAcquisition returns the placeholder content given to a freshly
// created blank reference before the user has edited it.
func StubAcquisition() Acquisition {
	return Acquisition{ProtocolName: "New Acquisition"}
}

// BlankAcquisition returns fully empty content for an empty-origin item.
func BlankAcquisition() Acquisition {
	return Acquisition{}
}

// IsBlank reports whether the acquisition carries no protocol content at all.
func (a Acquisition) IsBlank() bool {
	return a.ProtocolName == "" && a.SeriesDescription == "" &&
		len(a.Tags) == 0 && len(a.Fields) == 0 && len(a.Series) == 0 &&
		len(a.Rules) == 0 && a.Documentation == ""
}

// Clone returns a deep copy. Slices are copied so the clone can be handed
// out without aliasing the original's backing arrays.
func (a Acquisition) Clone() Acquisition {
	out := a
	if a.Tags != nil {
		out.Tags = append([]string(nil), a.Tags...)
	}
	if a.Fields != nil {
		out.Fields = append([]AcquisitionField(nil), a.Fields...)
	}
	if a.Series != nil {
		out.Series = make([]Series, len(a.Series))
		for i, s := range a.Series {
			cs := s
			if s.Fields != nil {
				cs.Fields = append([]AcquisitionField(nil), s.Fields...)
			}
			out.Series[i] = cs
		}
	}
	if a.Rules != nil {
		out.Rules = append([]ValidationRule(nil), a.Rules...)
	}
	return out
}

// FieldByName returns the acquisition-level field with the given name.
func (a Acquisition) FieldByName(name string) (AcquisitionField, bool) {
	for _, f := range a.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return AcquisitionField{}, false
}

// RuleForField returns the validation rule covering the named field, if any.
func (a Acquisition) RuleForField(name string) (ValidationRule, bool) {
	for _, r := range a.Rules {
		if r.Field == name {
			return r, true
		}
	}
	return ValidationRule{}, false
}

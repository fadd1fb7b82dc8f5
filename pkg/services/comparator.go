package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
)

// ComplianceComparator produces field-by-field verdicts for a subject
// acquisition checked against a reference. Implementations may be remote
// validation engines; the engine ships a rule-based one so it is usable
// stand-alone.
type ComplianceComparator interface {
	Compare(ctx context.Context, subject, reference models.Acquisition) ([]models.FieldVerdict, error)
}

// fieldComparator checks each reference field (and per-series override)
// against the subject using the reference's validation rules.
type fieldComparator struct {
	logger *zap.Logger
}

// NewFieldComparator creates the built-in rule-based comparator.
func NewFieldComparator(logger *zap.Logger) ComplianceComparator {
	return &fieldComparator{logger: logger.Named("comparator")}
}

func (c *fieldComparator) Compare(ctx context.Context, subject, reference models.Acquisition) ([]models.FieldVerdict, error) {
	var verdicts []models.FieldVerdict

	for _, refField := range reference.Fields {
		verdicts = append(verdicts, c.compareField(refField, reference, subject, refField.Name))
	}

	for _, refSeries := range reference.Series {
		subjSeries, found := seriesByName(subject, refSeries.Name)
		for _, refField := range refSeries.Fields {
			fieldID := refSeries.Name + "." + refField.Name
			if !found {
				verdicts = append(verdicts, models.FieldVerdict{
					FieldID: fieldID,
					Status:  models.StatusNA,
					Message: fmt.Sprintf("subject has no series %q", refSeries.Name),
				})
				continue
			}
			verdicts = append(verdicts, c.compareSeriesField(refField, reference, subjSeries, subject, fieldID))
		}
	}

	return verdicts, nil
}

func (c *fieldComparator) compareField(refField models.AcquisitionField, reference, subject models.Acquisition, fieldID string) models.FieldVerdict {
	subjField, ok := subject.FieldByName(refField.Name)
	if !ok {
		return models.FieldVerdict{
			FieldID: fieldID,
			Status:  models.StatusNA,
			Message: "field missing from subject",
		}
	}
	rule, _ := reference.RuleForField(refField.Name)
	return verdictFor(fieldID, refField.Value, subjField.Value, rule)
}

func (c *fieldComparator) compareSeriesField(refField models.AcquisitionField, reference models.Acquisition, subjSeries models.Series, subject models.Acquisition, fieldID string) models.FieldVerdict {
	var subjValue any
	found := false
	for _, f := range subjSeries.Fields {
		if f.Name == refField.Name {
			subjValue = f.Value
			found = true
			break
		}
	}
	// Series fields fall back to the subject's acquisition-level value.
	if !found {
		if f, ok := subject.FieldByName(refField.Name); ok {
			subjValue = f.Value
			found = true
		}
	}
	if !found {
		return models.FieldVerdict{
			FieldID: fieldID,
			Status:  models.StatusNA,
			Message: "field missing from subject series",
		}
	}
	rule, _ := reference.RuleForField(refField.Name)
	return verdictFor(fieldID, refField.Value, subjValue, rule)
}

// verdictFor evaluates one expected/actual pair under a rule. A zero rule
// means the exact check.
func verdictFor(fieldID string, expected, actual any, rule models.ValidationRule) models.FieldVerdict {
	if rule.Expected != nil {
		expected = rule.Expected
	}

	check := rule.Check
	if check == "" {
		check = models.RuleCheckExact
	}

	switch check {
	case models.RuleCheckExact:
		if valuesEqual(expected, actual) {
			return models.FieldVerdict{FieldID: fieldID, Status: models.StatusPass}
		}
		return models.FieldVerdict{
			FieldID: fieldID,
			Status:  models.StatusFail,
			Message: failMessage(rule, fmt.Sprintf("expected %v, got %v", expected, actual)),
		}

	case models.RuleCheckTolerance:
		expNum, okE := toFloat(expected)
		actNum, okA := toFloat(actual)
		if !okE || !okA {
			return models.FieldVerdict{
				FieldID: fieldID,
				Status:  models.StatusUnknown,
				Message: "tolerance check on non-numeric value",
			}
		}
		tolerance := 0.0
		if rule.Tolerance != nil {
			tolerance = *rule.Tolerance
		}
		if math.Abs(expNum-actNum) <= tolerance {
			return models.FieldVerdict{FieldID: fieldID, Status: models.StatusPass}
		}
		return models.FieldVerdict{
			FieldID: fieldID,
			Status:  models.StatusFail,
			Message: failMessage(rule, fmt.Sprintf("%v outside tolerance %v of %v", actual, tolerance, expected)),
		}

	case models.RuleCheckContains:
		actStr, ok := actual.(string)
		if !ok {
			return models.FieldVerdict{
				FieldID: fieldID,
				Status:  models.StatusUnknown,
				Message: "contains check on non-string value",
			}
		}
		if strings.Contains(actStr, rule.Contains) {
			return models.FieldVerdict{FieldID: fieldID, Status: models.StatusPass}
		}
		return models.FieldVerdict{
			FieldID: fieldID,
			Status:  models.StatusFail,
			Message: failMessage(rule, fmt.Sprintf("%q does not contain %q", actStr, rule.Contains)),
		}

	default:
		return models.FieldVerdict{
			FieldID: fieldID,
			Status:  models.StatusUnknown,
			Message: fmt.Sprintf("unsupported check %q", check),
		}
	}
}

func failMessage(rule models.ValidationRule, fallback string) string {
	if rule.Message != "" {
		return rule.Message
	}
	return fallback
}

// valuesEqual compares two scalar values, treating numeric types as equal
// when their float values match (JSON decoding yields float64 for all
// numbers, stored references may carry ints).
func valuesEqual(a, b any) bool {
	if aNum, ok := toFloat(a); ok {
		if bNum, ok := toFloat(b); ok {
			return aNum == bNum
		}
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func seriesByName(acq models.Acquisition, name string) (models.Series, bool) {
	for _, s := range acq.Series {
		if s.Name == name {
			return s, true
		}
	}
	return models.Series{}, false
}

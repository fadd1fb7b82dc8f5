package testhelpers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/scanbench/scanbench-engine/pkg/apperrors"
	"github.com/scanbench/scanbench-engine/pkg/models"
)

// MakeAcquisition builds an acquisition with the given protocol name and
// flat name/value fields. Convenient for table-driven tests.
func MakeAcquisition(protocolName string, fieldValues map[string]any) models.Acquisition {
	acq := models.Acquisition{ProtocolName: protocolName}
	for name, value := range fieldValues {
		acq.Fields = append(acq.Fields, models.AcquisitionField{Name: name, Value: value})
	}
	return acq
}

// SchemaContent marshals a schema payload to the JSON form stored in the
// library.
func SchemaContent(name string, acquisitions ...models.Acquisition) string {
	payload := models.SchemaPayload{Name: name, Acquisitions: acquisitions}
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal schema payload: %v", err))
	}
	return string(raw)
}

// StaticFetcher is a content fetcher serving documents from a map keyed by
// schema id. Missing ids return apperrors.ErrNotFound.
func StaticFetcher(docs map[uuid.UUID]string) func(ctx context.Context, schemaID uuid.UUID) (string, error) {
	return func(ctx context.Context, schemaID uuid.UUID) (string, error) {
		content, ok := docs[schemaID]
		if !ok {
			return "", apperrors.ErrNotFound
		}
		return content, nil
	}
}

// ScriptedComparator returns fixed verdicts regardless of input, with an
// optional error. Useful for driving the scoring engine deterministically.
// Safe for concurrent use.
type ScriptedComparator struct {
	Verdicts []models.FieldVerdict
	Err      error

	mu    sync.Mutex
	calls int
}

// Compare implements the compliance comparator contract.
func (c *ScriptedComparator) Compare(ctx context.Context, subject, reference models.Acquisition) ([]models.FieldVerdict, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Verdicts, nil
}

// CallCount returns how many times Compare was invoked.
func (c *ScriptedComparator) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Verdicts builds n pass, m fail, k warning verdicts.
func Verdicts(pass, fail, warning int) []models.FieldVerdict {
	var out []models.FieldVerdict
	for i := 0; i < pass; i++ {
		out = append(out, models.FieldVerdict{FieldID: fmt.Sprintf("pass_%d", i), Status: models.StatusPass})
	}
	for i := 0; i < fail; i++ {
		out = append(out, models.FieldVerdict{FieldID: fmt.Sprintf("fail_%d", i), Status: models.StatusFail})
	}
	for i := 0; i < warning; i++ {
		out = append(out, models.FieldVerdict{FieldID: fmt.Sprintf("warn_%d", i), Status: models.StatusWarning})
	}
	return out
}

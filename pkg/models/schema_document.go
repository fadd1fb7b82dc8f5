package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SchemaDocument is one entry in the schema library: a named collection of
// reference acquisitions. The raw document text is stored alongside the
// metadata so the resolver can re-parse it on demand.
type SchemaDocument struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Format    string    `json:"format"` // "json" or "yaml"
	Content   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SchemaPayload is the parsed body of a schema document.
type SchemaPayload struct {
	Name         string        `json:"name" yaml:"name"`
	Acquisitions []Acquisition `json:"acquisitions" yaml:"acquisitions"`
}

// ParseSchemaPayload decodes a schema document body. JSON is tried first;
// on failure the content is decoded as YAML. The detected format is
// returned so the library can record it.
func ParseSchemaPayload(content []byte) (*SchemaPayload, string, error) {
	var payload SchemaPayload
	if err := json.Unmarshal(content, &payload); err == nil {
		return &payload, "json", nil
	}
	if err := yaml.Unmarshal(content, &payload); err != nil {
		return nil, "", fmt.Errorf("schema document is neither valid JSON nor YAML: %w", err)
	}
	return &payload, "yaml", nil
}

// AcquisitionAt returns the acquisition at the given index, or false when
// the index is out of range.
func (p *SchemaPayload) AcquisitionAt(index int) (Acquisition, bool) {
	if index < 0 || index >= len(p.Acquisitions) {
		return Acquisition{}, false
	}
	return p.Acquisitions[index], true
}

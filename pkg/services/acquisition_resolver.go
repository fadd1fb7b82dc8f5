// Package services contains the workspace, resolution and matching logic
// of scanbench-engine.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/apperrors"
	"github.com/scanbench/scanbench-engine/pkg/models"
)

// ContentFetcher looks up the raw schema document text for a schema id.
// Unknown ids return apperrors.ErrNotFound.
type ContentFetcher func(ctx context.Context, schemaID uuid.UUID) (string, error)

// bindingKey is the tuple cache key for a resolved binding. A struct key
// avoids the collision edge cases of concatenated string keys.
type bindingKey struct {
	schemaID uuid.UUID
	index    int
}

// AcquisitionResolver turns a reference binding into a concrete
// acquisition snapshot, memoizing both the parsed documents and the
// per-binding snapshots.
type AcquisitionResolver interface {
	// Resolve returns the acquisition a binding points at. Unknown schema
	// ids and out-of-range indexes return apperrors.ErrNotFound.
	Resolve(ctx context.Context, binding models.ReferenceBinding, fetcher ContentFetcher) (*models.Acquisition, error)

	// ClearCache drops all cached documents and snapshots. Called when
	// the workspace is cleared or a schema document changes underneath
	// the cache.
	ClearCache()
}

type acquisitionResolver struct {
	mu        sync.Mutex
	snapshots map[bindingKey]models.Acquisition
	documents *gocache.Cache // schema id -> *models.SchemaPayload
	logger    *zap.Logger
}

// NewAcquisitionResolver creates a resolver with empty caches.
func NewAcquisitionResolver(logger *zap.Logger) AcquisitionResolver {
	return &acquisitionResolver{
		snapshots: make(map[bindingKey]models.Acquisition),
		documents: gocache.New(gocache.NoExpiration, 0),
		logger:    logger.Named("resolver"),
	}
}

func (r *acquisitionResolver) Resolve(ctx context.Context, binding models.ReferenceBinding, fetcher ContentFetcher) (*models.Acquisition, error) {
	key := bindingKey{schemaID: binding.SchemaID, index: binding.AcquisitionIndex}

	r.mu.Lock()
	if acq, ok := r.snapshots[key]; ok {
		r.mu.Unlock()
		out := acq.Clone()
		return &out, nil
	}
	r.mu.Unlock()

	payload, err := r.payload(ctx, binding.SchemaID, fetcher)
	if err != nil {
		return nil, err
	}

	acq, ok := payload.AcquisitionAt(binding.AcquisitionIndex)
	if !ok {
		r.logger.Warn("binding points past the end of its schema document",
			zap.String("schema_id", binding.SchemaID.String()),
			zap.Int("acquisition_index", binding.AcquisitionIndex),
			zap.Int("acquisition_count", len(payload.Acquisitions)))
		return nil, apperrors.ErrNotFound
	}

	r.mu.Lock()
	r.snapshots[key] = acq.Clone()
	r.mu.Unlock()

	out := acq.Clone()
	return &out, nil
}

// payload returns the parsed document for a schema id, fetching and
// parsing it on first use.
func (r *acquisitionResolver) payload(ctx context.Context, schemaID uuid.UUID, fetcher ContentFetcher) (*models.SchemaPayload, error) {
	cacheKey := schemaID.String()
	if cached, ok := r.documents.Get(cacheKey); ok {
		return cached.(*models.SchemaPayload), nil
	}

	content, err := fetcher(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	payload, _, err := models.ParseSchemaPayload([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema document %s: %w", schemaID, err)
	}

	r.documents.SetDefault(cacheKey, payload)
	return payload, nil
}

func (r *acquisitionResolver) ClearCache() {
	r.mu.Lock()
	r.snapshots = make(map[bindingKey]models.Acquisition)
	r.mu.Unlock()
	r.documents.Flush()
}

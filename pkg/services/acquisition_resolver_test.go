package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/apperrors"
	"github.com/scanbench/scanbench-engine/pkg/models"
	"github.com/scanbench/scanbench-engine/pkg/testhelpers"
)

// countingFetcher wraps a static fetcher and counts fetches, so tests can
// observe whether the resolver hit its cache.
type countingFetcher struct {
	mu      sync.Mutex
	fetches int
	inner   ContentFetcher
}

func (c *countingFetcher) fetch(ctx context.Context, schemaID uuid.UUID) (string, error) {
	c.mu.Lock()
	c.fetches++
	c.mu.Unlock()
	return c.inner(ctx, schemaID)
}

func (c *countingFetcher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

func TestResolve_CachesDocumentAndSnapshot(t *testing.T) {
	schemaID := uuid.New()
	content := testhelpers.SchemaContent("QSM Consensus",
		testhelpers.MakeAcquisition("QSM", map[string]any{"EchoTime": 20.0}),
		testhelpers.MakeAcquisition("Magnitude", nil),
	)
	fetcher := &countingFetcher{inner: testhelpers.StaticFetcher(map[uuid.UUID]string{schemaID: content})}
	resolver := NewAcquisitionResolver(zap.NewNop())
	ctx := context.Background()

	first, err := resolver.Resolve(ctx,
		models.ReferenceBinding{SchemaID: schemaID, AcquisitionIndex: 0}, fetcher.fetch)
	require.NoError(t, err)
	assert.Equal(t, "QSM", first.ProtocolName)
	assert.Equal(t, 1, fetcher.count())

	// Same binding again: snapshot cache, no fetch.
	_, err = resolver.Resolve(ctx,
		models.ReferenceBinding{SchemaID: schemaID, AcquisitionIndex: 0}, fetcher.fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.count())

	// Different index within the same document: document cache, still no
	// second fetch.
	second, err := resolver.Resolve(ctx,
		models.ReferenceBinding{SchemaID: schemaID, AcquisitionIndex: 1}, fetcher.fetch)
	require.NoError(t, err)
	assert.Equal(t, "Magnitude", second.ProtocolName)
	assert.Equal(t, 1, fetcher.count())
}

func TestResolve_ReturnsIndependentCopies(t *testing.T) {
	schemaID := uuid.New()
	content := testhelpers.SchemaContent("Site Protocol",
		testhelpers.MakeAcquisition("T1w", map[string]any{"RepetitionTime": 2.3}))
	fetcher := testhelpers.StaticFetcher(map[uuid.UUID]string{schemaID: content})
	resolver := NewAcquisitionResolver(zap.NewNop())
	binding := models.ReferenceBinding{SchemaID: schemaID, AcquisitionIndex: 0}
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, binding, fetcher)
	require.NoError(t, err)
	first.ProtocolName = "mutated"
	first.Fields[0].Value = -1

	second, err := resolver.Resolve(ctx, binding, fetcher)
	require.NoError(t, err)
	assert.Equal(t, "T1w", second.ProtocolName)
	assert.NotEqual(t, -1, second.Fields[0].Value)
}

func TestResolve_Failures(t *testing.T) {
	schemaID := uuid.New()
	content := testhelpers.SchemaContent("Site Protocol",
		testhelpers.MakeAcquisition("T1w", nil))
	fetcher := testhelpers.StaticFetcher(map[uuid.UUID]string{schemaID: content})
	resolver := NewAcquisitionResolver(zap.NewNop())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx,
		models.ReferenceBinding{SchemaID: uuid.New(), AcquisitionIndex: 0}, fetcher)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "unknown schema id")

	_, err = resolver.Resolve(ctx,
		models.ReferenceBinding{SchemaID: schemaID, AcquisitionIndex: 5}, fetcher)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "index past the end of the document")
}

func TestClearCache(t *testing.T) {
	schemaID := uuid.New()
	content := testhelpers.SchemaContent("Site Protocol",
		testhelpers.MakeAcquisition("T1w", nil))
	fetcher := &countingFetcher{inner: testhelpers.StaticFetcher(map[uuid.UUID]string{schemaID: content})}
	resolver := NewAcquisitionResolver(zap.NewNop())
	binding := models.ReferenceBinding{SchemaID: schemaID, AcquisitionIndex: 0}
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, binding, fetcher.fetch)
	require.NoError(t, err)
	resolver.ClearCache()

	_, err = resolver.Resolve(ctx, binding, fetcher.fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.count())
}

package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
)

// WorkspaceStore holds the ordered collection of workspace items and the
// current selection. All mutations are serialized under one lock and
// funnel through an update-with-cleanup wrapper that enforces the vacuous
// item rule, so observers never see a half-applied transition or a
// lingering vacuous item.
type WorkspaceStore interface {
	// AddFromReference resolves each binding and appends one schema-origin
	// item per binding. On any lookup failure nothing is appended.
	AddFromReference(ctx context.Context, bindings []models.ReferenceBinding) error

	// AddFromData appends one data-origin item per acquisition and
	// selects the first created item.
	AddFromData(acquisitions []models.Acquisition, mode models.DataUsageMode) []uuid.UUID

	// AddBlank appends a schema-origin item with stub content in edit
	// mode and returns its id so the caller can focus it.
	AddBlank() uuid.UUID

	// AddEmpty appends an empty-origin placeholder and returns its id.
	AddEmpty() uuid.UUID

	Remove(id uuid.UUID)
	Reorder(fromIndex, toIndex int)
	Select(id *uuid.UUID)
	Selected() *uuid.UUID
	ClearAll()

	Items() []models.WorkspaceItem
	Get(id uuid.UUID) (models.WorkspaceItem, bool)

	// Generation increments on every content mutation. Consumers tag
	// long-running computations with it and discard stale results.
	Generation() uint64

	// Attachment lifecycle (see attachment.go).
	AttachData(id uuid.UUID, data models.Acquisition) error
	AttachReference(ctx context.Context, id uuid.UUID, binding models.ReferenceBinding) error
	DetachData(id uuid.UUID)
	DetachReference(id uuid.UUID)
	CreateReference(id uuid.UUID)
	DetachCreatedReference(id uuid.UUID)
	SetDataUsageMode(id uuid.UUID, mode models.DataUsageMode)
	SetEditing(id uuid.UUID, editing bool)
	UpdateAcquisition(id uuid.UUID, acq models.Acquisition)
	SetNotes(id uuid.UUID, notes string)

	// GetExportableAcquisitions returns the ordered reference-bearing
	// items resolved to concrete acquisitions.
	GetExportableAcquisitions(ctx context.Context) ([]models.Acquisition, error)
}

// WorkspaceStoreDeps contains dependencies for the workspace store.
type WorkspaceStoreDeps struct {
	Resolver AcquisitionResolver
	Fetcher  ContentFetcher
	Logger   *zap.Logger
}

type workspaceStore struct {
	mu         sync.Mutex
	items      []models.WorkspaceItem
	selected   *uuid.UUID
	generation uint64

	resolver AcquisitionResolver
	fetcher  ContentFetcher
	logger   *zap.Logger
}

// NewWorkspaceStore creates an empty workspace store.
func NewWorkspaceStore(deps *WorkspaceStoreDeps) WorkspaceStore {
	return &workspaceStore{
		resolver: deps.Resolver,
		fetcher:  deps.Fetcher,
		logger:   deps.Logger.Named("workspace"),
	}
}

func (s *workspaceStore) AddFromReference(ctx context.Context, bindings []models.ReferenceBinding) error {
	// Resolve everything before touching the store so a lookup failure
	// leaves it unmodified.
	resolved := make([]models.Acquisition, 0, len(bindings))
	for _, binding := range bindings {
		acq, err := s.resolver.Resolve(ctx, binding, s.fetcher)
		if err != nil {
			return fmt.Errorf("failed to resolve binding %s[%d]: %w",
				binding.SchemaID, binding.AcquisitionIndex, err)
		}
		resolved = append(resolved, *acq)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, binding := range bindings {
		b := binding
		s.items = append(s.items, models.WorkspaceItem{
			ID:              uuid.New(),
			Acquisition:     resolved[i],
			Origin:          models.OriginSchema,
			ReferenceOrigin: &b,
		})
	}
	s.generation++
	return nil
}

func (s *workspaceStore) AddFromData(acquisitions []models.Acquisition, mode models.DataUsageMode) []uuid.UUID {
	if !mode.IsValid() {
		mode = models.ModeValidationSubject
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(acquisitions))
	for _, acq := range acquisitions {
		item := models.WorkspaceItem{
			ID:            uuid.New(),
			Acquisition:   acq.Clone(),
			Origin:        models.OriginData,
			DataUsageMode: mode,
		}
		s.items = append(s.items, item)
		ids = append(ids, item.ID)
	}
	if len(ids) > 0 {
		first := ids[0]
		s.selected = &first
		s.generation++
	}
	return ids
}

func (s *workspaceStore) AddBlank() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := models.WorkspaceItem{
		ID:          uuid.New(),
		Acquisition: models.StubAcquisition(),
		Origin:      models.OriginSchema,
		IsEditing:   true,
	}
	s.items = append(s.items, item)
	s.generation++
	return item.ID
}

func (s *workspaceStore) AddEmpty() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A freshly added empty item is vacuous by definition; the cleanup
	// rule only fires on subsequent mutations, so the placeholder
	// survives until the user gives it a role or abandons it.
	item := models.WorkspaceItem{
		ID:          uuid.New(),
		Acquisition: models.BlankAcquisition(),
		Origin:      models.OriginEmpty,
	}
	s.items = append(s.items, item)
	s.generation++
	return item.ID
}

func (s *workspaceStore) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

func (s *workspaceStore) removeLocked(id uuid.UUID) {
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			if s.selected != nil && *s.selected == id {
				s.selected = nil
			}
			s.generation++
			return
		}
	}
}

func (s *workspaceStore) Reorder(fromIndex, toIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fromIndex < 0 || fromIndex >= len(s.items) ||
		toIndex < 0 || toIndex >= len(s.items) || fromIndex == toIndex {
		return
	}

	item := s.items[fromIndex]
	s.items = append(s.items[:fromIndex], s.items[fromIndex+1:]...)

	rest := make([]models.WorkspaceItem, 0, len(s.items)+1)
	rest = append(rest, s.items[:toIndex]...)
	rest = append(rest, item)
	rest = append(rest, s.items[toIndex:]...)
	s.items = rest
	s.generation++
}

func (s *workspaceStore) Select(id *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == nil {
		s.selected = nil
		return
	}
	// Selecting an unknown id is a no-op rather than a dangling selection.
	for _, item := range s.items {
		if item.ID == *id {
			v := *id
			s.selected = &v
			return
		}
	}
}

func (s *workspaceStore) Selected() *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return nil
	}
	v := *s.selected
	return &v
}

func (s *workspaceStore) ClearAll() {
	s.mu.Lock()
	s.items = nil
	s.selected = nil
	s.generation++
	s.mu.Unlock()

	// Cached schema content may differ by the time the workspace is
	// rebuilt, so the resolver starts cold.
	s.resolver.ClearCache()
}

func (s *workspaceStore) Items() []models.WorkspaceItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.WorkspaceItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *workspaceStore) Get(id uuid.UUID) (models.WorkspaceItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.WorkspaceItem{}, false
}

func (s *workspaceStore) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// update applies fn to the item with the given id, then enforces the
// vacuous rule: a mutation that leaves an empty-origin item with no
// created reference, no attached reference and no attached data removes
// the item (adjusting selection). Unknown ids are a no-op. fn returns
// false to signal a rejected transition, which leaves the store untouched.
func (s *workspaceStore) update(id uuid.UUID, fn func(item *models.WorkspaceItem) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if !fn(&s.items[i]) {
			return
		}
		s.generation++
		if s.items[i].IsVacuous() {
			s.items = append(s.items[:i], s.items[i+1:]...)
			if s.selected != nil && *s.selected == id {
				s.selected = nil
			}
		}
		return
	}
}

func (s *workspaceStore) GetExportableAcquisitions(ctx context.Context) ([]models.Acquisition, error) {
	items := s.Items()

	var out []models.Acquisition
	for _, item := range items {
		if !item.IsReferenceBearing() {
			continue
		}

		if acq, ok := item.ReferenceAcquisition(); ok {
			out = append(out, acq.Clone())
			continue
		}

		// Empty item holding only a binding: resolve it, letting any
		// manually-edited display fields override the resolved ones.
		if item.AttachedReference == nil {
			continue
		}
		resolved, err := s.resolver.Resolve(ctx, *item.AttachedReference, s.fetcher)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference for item %s: %w", item.ID, err)
		}
		acq := resolved.Clone()
		if item.Acquisition.ProtocolName != "" {
			acq.ProtocolName = item.Acquisition.ProtocolName
		}
		if item.Acquisition.SeriesDescription != "" {
			acq.SeriesDescription = item.Acquisition.SeriesDescription
		}
		out = append(out, acq)
	}
	return out, nil
}

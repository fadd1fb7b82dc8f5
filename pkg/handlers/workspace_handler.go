package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
	"github.com/scanbench/scanbench-engine/pkg/services"
)

// WorkspaceHandler handles workspace item HTTP requests.
type WorkspaceHandler struct {
	store  services.WorkspaceStore
	logger *zap.Logger
}

// NewWorkspaceHandler creates a new workspace handler.
func NewWorkspaceHandler(store services.WorkspaceStore, logger *zap.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{store: store, logger: logger}
}

// RegisterRoutes registers the workspace routes on the given mux.
func (h *WorkspaceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/workspace/items", h.ListItems)
	mux.HandleFunc("POST /api/workspace/items/from-reference", h.AddFromReference)
	mux.HandleFunc("POST /api/workspace/items/from-data", h.AddFromData)
	mux.HandleFunc("POST /api/workspace/items/blank", h.AddBlank)
	mux.HandleFunc("POST /api/workspace/items/empty", h.AddEmpty)
	mux.HandleFunc("DELETE /api/workspace/items/{id}", h.RemoveItem)
	mux.HandleFunc("POST /api/workspace/reorder", h.Reorder)
	mux.HandleFunc("PUT /api/workspace/selection", h.SetSelection)
	mux.HandleFunc("DELETE /api/workspace", h.ClearAll)

	mux.HandleFunc("POST /api/workspace/items/{id}/data", h.AttachData)
	mux.HandleFunc("DELETE /api/workspace/items/{id}/data", h.DetachData)
	mux.HandleFunc("POST /api/workspace/items/{id}/reference", h.AttachReference)
	mux.HandleFunc("DELETE /api/workspace/items/{id}/reference", h.DetachReference)
	mux.HandleFunc("POST /api/workspace/items/{id}/created-reference", h.CreateReference)
	mux.HandleFunc("DELETE /api/workspace/items/{id}/created-reference", h.DetachCreatedReference)
	mux.HandleFunc("PUT /api/workspace/items/{id}/usage-mode", h.SetUsageMode)
	mux.HandleFunc("PUT /api/workspace/items/{id}/editing", h.SetEditing)
	mux.HandleFunc("PUT /api/workspace/items/{id}/acquisition", h.UpdateAcquisition)
	mux.HandleFunc("PUT /api/workspace/items/{id}/notes", h.SetNotes)

	mux.HandleFunc("GET /api/workspace/export", h.Export)
}

// workspaceView is the full workspace state returned by mutating calls,
// so the client never has to diff individual transitions.
type workspaceView struct {
	Items      []models.WorkspaceItem `json:"items"`
	SelectedID *uuid.UUID             `json:"selected_id"`
	Generation uint64                 `json:"generation"`
}

func (h *WorkspaceHandler) view() workspaceView {
	return workspaceView{
		Items:      h.store.Items(),
		SelectedID: h.store.Selected(),
		Generation: h.store.Generation(),
	}
}

func (h *WorkspaceHandler) writeView(w http.ResponseWriter) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.view()}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *WorkspaceHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}

// ListItems handles GET /api/workspace/items.
func (h *WorkspaceHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	h.writeView(w)
}

type addFromReferenceRequest struct {
	Bindings []models.ReferenceBinding `json:"bindings"`
}

// AddFromReference handles POST /api/workspace/items/from-reference.
func (h *WorkspaceHandler) AddFromReference(w http.ResponseWriter, r *http.Request) {
	var req addFromReferenceRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if len(req.Bindings) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_bindings", "At least one binding is required")
		return
	}

	if err := h.store.AddFromReference(r.Context(), req.Bindings); err != nil {
		h.logger.Error("Failed to add items from reference", zap.Error(err))
		_ = ErrorResponse(w, statusForError(err), "add_from_reference_failed", err.Error())
		return
	}
	h.writeView(w)
}

type addFromDataRequest struct {
	Acquisitions []models.Acquisition `json:"acquisitions"`
	Mode         models.DataUsageMode `json:"mode"`
}

// AddFromData handles POST /api/workspace/items/from-data.
func (h *WorkspaceHandler) AddFromData(w http.ResponseWriter, r *http.Request) {
	var req addFromDataRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if len(req.Acquisitions) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_acquisitions", "At least one acquisition is required")
		return
	}

	h.store.AddFromData(req.Acquisitions, req.Mode)
	h.writeView(w)
}

// AddBlank handles POST /api/workspace/items/blank.
func (h *WorkspaceHandler) AddBlank(w http.ResponseWriter, r *http.Request) {
	h.store.AddBlank()
	h.writeView(w)
}

// AddEmpty handles POST /api/workspace/items/empty.
func (h *WorkspaceHandler) AddEmpty(w http.ResponseWriter, r *http.Request) {
	h.store.AddEmpty()
	h.writeView(w)
}

// RemoveItem handles DELETE /api/workspace/items/{id}.
func (h *WorkspaceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	h.store.Remove(id)
	h.writeView(w)
}

type reorderRequest struct {
	FromIndex int `json:"from_index"`
	ToIndex   int `json:"to_index"`
}

// Reorder handles POST /api/workspace/reorder.
func (h *WorkspaceHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.store.Reorder(req.FromIndex, req.ToIndex)
	h.writeView(w)
}

type selectionRequest struct {
	ItemID *uuid.UUID `json:"item_id"`
}

// SetSelection handles PUT /api/workspace/selection.
func (h *WorkspaceHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.store.Select(req.ItemID)
	h.writeView(w)
}

// ClearAll handles DELETE /api/workspace.
func (h *WorkspaceHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.store.ClearAll()
	h.writeView(w)
}

type attachDataRequest struct {
	Acquisition models.Acquisition `json:"acquisition"`
}

// AttachData handles POST /api/workspace/items/{id}/data.
func (h *WorkspaceHandler) AttachData(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var req attachDataRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.store.AttachData(id, req.Acquisition); err != nil {
		_ = ErrorResponse(w, statusForError(err), "attach_data_failed", err.Error())
		return
	}
	h.writeView(w)
}

// DetachData handles DELETE /api/workspace/items/{id}/data.
func (h *WorkspaceHandler) DetachData(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	h.store.DetachData(id)
	h.writeView(w)
}

type attachReferenceRequest struct {
	Binding models.ReferenceBinding `json:"binding"`
}

// AttachReference handles POST /api/workspace/items/{id}/reference.
func (h *WorkspaceHandler) AttachReference(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var req attachReferenceRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.store.AttachReference(r.Context(), id, req.Binding); err != nil {
		h.logger.Error("Failed to attach reference", zap.Error(err))
		_ = ErrorResponse(w, statusForError(err), "attach_reference_failed", err.Error())
		return
	}
	h.writeView(w)
}

// DetachReference handles DELETE /api/workspace/items/{id}/reference.
func (h *WorkspaceHandler) DetachReference(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	h.store.DetachReference(id)
	h.writeView(w)
}

// CreateReference handles POST /api/workspace/items/{id}/created-reference.
func (h *WorkspaceHandler) CreateReference(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	h.store.CreateReference(id)
	h.writeView(w)
}

// DetachCreatedReference handles DELETE /api/workspace/items/{id}/created-reference.
func (h *WorkspaceHandler) DetachCreatedReference(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	h.store.DetachCreatedReference(id)
	h.writeView(w)
}

type usageModeRequest struct {
	Mode models.DataUsageMode `json:"mode"`
}

// SetUsageMode handles PUT /api/workspace/items/{id}/usage-mode.
func (h *WorkspaceHandler) SetUsageMode(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var req usageModeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if !req.Mode.IsValid() {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_mode", "Mode must be 'schema-template' or 'validation-subject'")
		return
	}
	h.store.SetDataUsageMode(id, req.Mode)
	h.writeView(w)
}

type editingRequest struct {
	Editing bool `json:"editing"`
}

// SetEditing handles PUT /api/workspace/items/{id}/editing.
func (h *WorkspaceHandler) SetEditing(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var req editingRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.store.SetEditing(id, req.Editing)
	h.writeView(w)
}

type updateAcquisitionRequest struct {
	Acquisition models.Acquisition `json:"acquisition"`
}

// UpdateAcquisition handles PUT /api/workspace/items/{id}/acquisition.
func (h *WorkspaceHandler) UpdateAcquisition(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var req updateAcquisitionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.store.UpdateAcquisition(id, req.Acquisition)
	h.writeView(w)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// SetNotes handles PUT /api/workspace/items/{id}/notes.
func (h *WorkspaceHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}
	var req notesRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	h.store.SetNotes(id, req.Notes)
	h.writeView(w)
}

// Export handles GET /api/workspace/export.
func (h *WorkspaceHandler) Export(w http.ResponseWriter, r *http.Request) {
	acquisitions, err := h.store.GetExportableAcquisitions(r.Context())
	if err != nil {
		h.logger.Error("Failed to export workspace", zap.Error(err))
		_ = ErrorResponse(w, statusForError(err), "export_failed", err.Error())
		return
	}
	if acquisitions == nil {
		acquisitions = make([]models.Acquisition, 0)
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: acquisitions}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

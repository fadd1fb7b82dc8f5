package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
	"github.com/scanbench/scanbench-engine/pkg/repositories"
	"github.com/scanbench/scanbench-engine/pkg/services"
)

// SchemaLibraryHandler handles schema document library HTTP requests.
type SchemaLibraryHandler struct {
	repo     repositories.SchemaRepository
	resolver services.AcquisitionResolver
	logger   *zap.Logger
}

// NewSchemaLibraryHandler creates a new schema library handler.
func NewSchemaLibraryHandler(repo repositories.SchemaRepository, resolver services.AcquisitionResolver, logger *zap.Logger) *SchemaLibraryHandler {
	return &SchemaLibraryHandler{repo: repo, resolver: resolver, logger: logger}
}

// RegisterRoutes registers the schema library routes on the given mux.
func (h *SchemaLibraryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/schemas", h.Upload)
	mux.HandleFunc("GET /api/schemas", h.List)
	mux.HandleFunc("GET /api/schemas/{sid}", h.Get)
	mux.HandleFunc("DELETE /api/schemas/{sid}", h.Delete)
}

type uploadSchemaRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Upload handles POST /api/schemas.
func (h *SchemaLibraryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}

	var req uploadSchemaRequest
	if err := json.Unmarshal(body, &req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Content == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_content", "Schema content is required")
		return
	}

	payload, format, err := models.ParseSchemaPayload([]byte(req.Content))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_schema", err.Error())
		return
	}
	if len(payload.Acquisitions) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "empty_schema", "Schema document contains no acquisitions")
		return
	}

	name := req.Name
	if name == "" {
		name = payload.Name
	}
	if name == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_name", "Schema name is required")
		return
	}

	doc := &models.SchemaDocument{
		Name:    name,
		Format:  format,
		Content: req.Content,
	}
	if err := h.repo.Create(r.Context(), doc); err != nil {
		h.logger.Error("Failed to create schema document", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "create_schema_failed", err.Error())
		return
	}

	// A new document may shadow stale cached content (re-upload flows).
	h.resolver.ClearCache()

	h.logger.Info("schema document uploaded",
		zap.String("schema_id", doc.ID.String()),
		zap.String("name", doc.Name),
		zap.String("format", doc.Format),
		zap.Int("acquisitions", len(payload.Acquisitions)))

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: doc}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/schemas.
func (h *SchemaLibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list schema documents", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "list_schemas_failed", err.Error())
		return
	}
	if docs == nil {
		docs = make([]*models.SchemaDocument, 0)
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: docs}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// schemaDetail is the Get response: document metadata plus the names of
// the acquisitions it contains, for building reference bindings.
type schemaDetail struct {
	*models.SchemaDocument
	AcquisitionNames []string `json:"acquisition_names"`
}

// Get handles GET /api/schemas/{sid}.
func (h *SchemaLibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "sid", h.logger)
	if !ok {
		return
	}

	doc, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get schema document", zap.Error(err))
		_ = ErrorResponse(w, statusForError(err), "get_schema_failed", err.Error())
		return
	}

	payload, _, err := models.ParseSchemaPayload([]byte(doc.Content))
	if err != nil {
		h.logger.Error("Stored schema document failed to parse",
			zap.String("schema_id", id.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "corrupt_schema", err.Error())
		return
	}

	names := make([]string, len(payload.Acquisitions))
	for i, acq := range payload.Acquisitions {
		names[i] = acq.ProtocolName
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    schemaDetail{SchemaDocument: doc, AcquisitionNames: names},
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/schemas/{sid}.
func (h *SchemaLibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParsePathUUID(w, r, "sid", h.logger)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete schema document", zap.Error(err))
		_ = ErrorResponse(w, statusForError(err), "delete_schema_failed", err.Error())
		return
	}

	// Cached snapshots for this document are now orphaned.
	h.resolver.ClearCache()

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/models"
	"github.com/scanbench/scanbench-engine/pkg/services"
)

// MatchingHandler handles matching run and assignment HTTP requests.
type MatchingHandler struct {
	matching services.MatchingService
	logger   *zap.Logger
}

// NewMatchingHandler creates a new matching handler.
func NewMatchingHandler(matching services.MatchingService, logger *zap.Logger) *MatchingHandler {
	return &MatchingHandler{matching: matching, logger: logger}
}

// RegisterRoutes registers the matching routes on the given mux.
func (h *MatchingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/matching/runs", h.StartRun)
	mux.HandleFunc("GET /api/matching/runs/{rid}", h.GetRun)
	mux.HandleFunc("DELETE /api/matching/runs/{rid}", h.CancelRun)

	mux.HandleFunc("POST /api/matching/assignments", h.SetAssignment)
	mux.HandleFunc("GET /api/matching/assignments", h.ListAssignments)
	mux.HandleFunc("DELETE /api/matching/assignments/{uploadedIndex}", h.ClearAssignment)
}

type startRunRequest struct {
	Uploaded []models.Acquisition `json:"uploaded"`
}

type startRunResponse struct {
	RunID uuid.UUID `json:"run_id"`
}

// StartRun handles POST /api/matching/runs.
func (h *MatchingHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	runID, err := h.matching.StartRun(r.Context(), req.Uploaded)
	if err != nil {
		h.logger.Error("Failed to start matching run", zap.Error(err))
		_ = ErrorResponse(w, statusForError(err), "start_run_failed", err.Error())
		return
	}

	if err := WriteJSON(w, http.StatusAccepted, ApiResponse{
		Success: true,
		Data:    startRunResponse{RunID: runID},
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetRun handles GET /api/matching/runs/{rid}.
func (h *MatchingHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := ParsePathUUID(w, r, "rid", h.logger)
	if !ok {
		return
	}

	run, err := h.matching.GetRun(runID)
	if err != nil {
		_ = ErrorResponse(w, statusForError(err), "get_run_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: run}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// CancelRun handles DELETE /api/matching/runs/{rid}.
func (h *MatchingHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := ParsePathUUID(w, r, "rid", h.logger)
	if !ok {
		return
	}

	if err := h.matching.CancelRun(runID); err != nil {
		_ = ErrorResponse(w, statusForError(err), "cancel_run_failed", err.Error())
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

type setAssignmentRequest struct {
	UploadedIndex int       `json:"uploaded_index"`
	ItemID        uuid.UUID `json:"item_id"`
}

// SetAssignment handles POST /api/matching/assignments.
func (h *MatchingHandler) SetAssignment(w http.ResponseWriter, r *http.Request) {
	var req setAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.UploadedIndex < 0 || req.ItemID == uuid.Nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_assignment", "uploaded_index and item_id are required")
		return
	}

	h.matching.Assignments().SetMatch(req.UploadedIndex, req.ItemID)
	h.writeAssignments(w)
}

// ListAssignments handles GET /api/matching/assignments.
func (h *MatchingHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	h.writeAssignments(w)
}

// ClearAssignment handles DELETE /api/matching/assignments/{uploadedIndex}.
func (h *MatchingHandler) ClearAssignment(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("uploadedIndex")
	uploadedIndex, err := strconv.Atoi(raw)
	if err != nil || uploadedIndex < 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_uploaded_index", "Invalid uploaded index")
		return
	}

	h.matching.Assignments().ClearMatch(uploadedIndex)
	h.writeAssignments(w)
}

// assignmentView flattens the assignment map for JSON clients, whose
// object keys are always strings.
type assignmentView struct {
	UploadedIndex int       `json:"uploaded_index"`
	ItemID        uuid.UUID `json:"item_id"`
}

func (h *MatchingHandler) writeAssignments(w http.ResponseWriter) {
	assignments := h.matching.Assignments().Assignments()
	out := make([]assignmentView, 0, len(assignments))
	for uploadedIndex, itemID := range assignments {
		out = append(out, assignmentView{UploadedIndex: uploadedIndex, ItemID: itemID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedIndex < out[j].UploadedIndex })
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: out}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

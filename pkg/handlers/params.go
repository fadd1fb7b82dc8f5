package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParsePathUUID extracts and parses a UUID path value. On failure it
// writes a 400 response and returns ok=false.
func ParsePathUUID(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (uuid.UUID, bool) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_"+name, "Invalid "+name+" format"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// RespondValidationErrors writes a 400 response with per-field messages.
func RespondValidationErrors(w http.ResponseWriter, logger *slog.Logger, fieldErrors map[string]string) {
	RespondJSON(w, logger, http.StatusBadRequest, map[string]any{"validation_errors": fieldErrors})
}

// ParseID extracts the ID from the request path. Returns the ID and a boolean indicating success.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		RespondError(w, logger, http.StatusBadRequest, "Missing ID")
		return "", false
	}
	return id, true
}

// GetSession retrieves the session ID from the request context. Returns the session ID and a boolean indicating success.
func GetSession(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	sessionID, ok := GetSessionID(r.Context())
	if !ok {
		RespondError(w, logger, http.StatusUnauthorized, "Unauthorized: Missing or invalid session ID")
		return "", false
	}
	return sessionID, true
}

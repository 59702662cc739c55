package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "licensure/pkg/domain-errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps a domain error to its HTTP status and a JSON error body.
// Non-domain errors surface as an opaque 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := dErrors.ToHTTPStatus(err)
	message := dErrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		message = "Internal server error"
	}
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON rejects malformed bodies with a 400 before the handler runs.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "Invalid JSON body")
	}
	return nil
}

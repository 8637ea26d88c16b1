package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chat-connect/internal/apperr"
)

// ErrorResponse is the JSON body for every failed request.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
}

func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// Error maps err through the apperr taxonomy and writes the structured body.
// Unexpected errors are logged with full context and surfaced as a generic
// message.
func Error(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("unhandled request error")
	}
	JSON(w, status, ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   apperr.PublicMessage(err),
	})
}

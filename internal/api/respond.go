package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/examenapp/examen-api/internal/database"
	"github.com/examenapp/examen-api/internal/notify"
)

// envelope is the response shape shared with the web and mobile clients.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Message: message, Data: data}); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Message: message}); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

// respondStoreError maps the error taxonomy onto HTTP statuses. Unknown
// errors are logged and surfaced as a plain 500.
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrTaskNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrUserRequired),
		errors.Is(err, database.ErrItemsRequired):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrInvalidOrderState),
		errors.Is(err, database.ErrEmailTaken),
		errors.Is(err, database.ErrProductReferenced),
		errors.Is(err, database.ErrUserReferenced),
		errors.Is(err, database.ErrOptimisticLockFailed):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrInvalidCredentials):
		s.respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, notify.ErrDisabled):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("internal error", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

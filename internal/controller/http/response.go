package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/taskflow/task-service/internal/usecase"
	"github.com/taskflow/task-service/pkg/logger"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string               `json:"status"`
	Message string               `json:"message,omitempty"`
	Results *int                 `json:"results,omitempty"`
	Errors  []usecase.FieldError `json:"errors,omitempty"`
	Data    any                  `json:"data"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.WithError(err).Error("Failed to encode response")
	}
}

func respondWithData(w http.ResponseWriter, code int, message string, data any) {
	respondWithJSON(w, code, Response{Status: statusSuccess, Message: message, Data: data})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, Response{Status: statusError, Message: message})
}

// respondWithUseCaseError maps use case errors onto status codes.
// forbidden is the message used for ErrForbidden, which differs per action.
func respondWithUseCaseError(w http.ResponseWriter, r *http.Request, err error, forbidden string) {
	var verr *usecase.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, Response{
			Status:  statusError,
			Message: verr.Error(),
			Errors:  verr.Fields,
		})
	case errors.Is(err, usecase.ErrTaskNotFound):
		respondWithError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, usecase.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, usecase.ErrForbidden):
		respondWithError(w, http.StatusForbidden, forbidden)
	case errors.Is(err, usecase.ErrUserExists):
		respondWithError(w, http.StatusConflict, "User already exists with this email")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
	default:
		logger.Log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error("Request failed")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

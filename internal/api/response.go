package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/quizforge/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorToHTTP maps pipeline and domain errors to HTTP status codes.
func ErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var validationErr *domain.ValidationError
	var malformedErr *domain.MalformedResponseError
	var generationErr *domain.GenerationError
	var transportErr *domain.TransportError
	var domainErr *domain.DomainError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &malformedErr), errors.As(err, &generationErr), errors.As(err, &transportErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &domainErr):
		return domainCodeToHTTP(domainErr.Code)
	default:
		return http.StatusInternalServerError
	}
}

func domainCodeToHTTP(code string) int {
	switch code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Validation failures carry their per-question reasons as details.
func HandleError(w http.ResponseWriter, err error) {
	status := ErrorToHTTP(err)
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		resp.Details = validationErr.Reasons
	}
	var malformedErr *domain.MalformedResponseError
	if errors.As(err, &malformedErr) {
		resp.Details = malformedErr.Details
	}

	JSON(w, status, resp)
}

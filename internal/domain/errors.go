package domain

import (
	"fmt"
	"unicode/utf8"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

var (
	ErrInvalidEmbeddingJobStatus = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidQuestionCount      = NewDomainError(ErrCodeValidation, "question count out of range")
	ErrEmptyContent              = NewDomainError(ErrCodeValidation, "content is empty")
)

var (
	ErrFragmentNotFound   = NewDomainError(ErrCodeNotFound, "knowledge fragment not found")
	ErrCourseFileNotFound = NewDomainError(ErrCodeNotFound, "course file not found")
	ErrCourseHasNoContent = NewDomainError(ErrCodeNotFound, "course has no ingested material")
)

var (
	ErrInvalidAPIKey        = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
	ErrStorageNotConfigured = NewDomainError(ErrCodeUnavailable, "blob storage not configured")
)

// ExtractionError records why a file could not be read. It never aborts the pipeline.
type ExtractionError struct {
	Filename string
	MimeType string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s (%s): %v", e.Filename, e.MimeType, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure reaching an external model service.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s service unreachable: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GenerationFailureReason classifies a model response that carried no usable text.
type GenerationFailureReason string

const (
	GenerationSafetyBlocked GenerationFailureReason = "safety_blocked"
	GenerationEmptyPayload  GenerationFailureReason = "empty_payload"
)

// GenerationError is returned when the model answered without usable text.
type GenerationError struct {
	Reason GenerationFailureReason
	Detail string
}

func (e *GenerationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("generation failed (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("generation failed (%s)", e.Reason)
}

// MaxFragmentRunes bounds the raw text kept on a MalformedResponseError.
const MaxFragmentRunes = 500

// MalformedResponseError is returned when no usable JSON object could be read from the model output.
type MalformedResponseError struct {
	Fragment string
	Details  []string
	Err      error
}

// NewMalformedResponseError keeps at most MaxFragmentRunes of fragment.
func NewMalformedResponseError(fragment string, err error, details ...string) *MalformedResponseError {
	if utf8.RuneCountInString(fragment) > MaxFragmentRunes {
		fragment = string([]rune(fragment)[:MaxFragmentRunes])
	}
	return &MalformedResponseError{Fragment: fragment, Details: details, Err: err}
}

func (e *MalformedResponseError) Error() string {
	msg := "malformed model response"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Details) > 0 {
		msg += fmt.Sprintf(" %v", e.Details)
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when too many questions of a batch are invalid.
type ValidationError struct {
	Invalid int
	Total   int
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("quiz rejected: %d of %d questions invalid", e.Invalid, e.Total)
}

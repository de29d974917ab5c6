package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError(t *testing.T) {
	err := NewDomainError(ErrCodeValidation, "bad input")
	assert.Equal(t, "[VALIDATION_ERROR] bad input", err.Error())
	assert.Nil(t, err.Unwrap())

	cause := errors.New("boom")
	wrapped := NewDomainErrorWithCause(ErrCodeInternalError, "failed", cause)
	assert.Equal(t, "[INTERNAL_ERROR] failed: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestPipelineErrors_AreDistinguishable(t *testing.T) {
	cause := errors.New("dial tcp: timeout")

	tests := []struct {
		name  string
		err   error
		check func(t *testing.T, err error)
	}{
		{"transport", fmt.Errorf("generate: %w", &TransportError{Service: "generation", Err: cause}), func(t *testing.T, err error) {
			var target *TransportError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, "generation", target.Service)
			assert.ErrorIs(t, err, cause)
		}},
		{"generation", fmt.Errorf("generate: %w", &GenerationError{Reason: GenerationSafetyBlocked}), func(t *testing.T, err error) {
			var target *GenerationError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, GenerationSafetyBlocked, target.Reason)
		}},
		{"malformed", fmt.Errorf("parse: %w", NewMalformedResponseError("not json", nil)), func(t *testing.T, err error) {
			var target *MalformedResponseError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, "not json", target.Fragment)
		}},
		{"validation", fmt.Errorf("gate: %w", &ValidationError{Invalid: 3, Total: 4}), func(t *testing.T, err error) {
			var target *ValidationError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, 3, target.Invalid)
			assert.Equal(t, 4, target.Total)
		}},
		{"extraction", &ExtractionError{Filename: "a.pdf", MimeType: "application/pdf", Err: cause}, func(t *testing.T, err error) {
			var target *ExtractionError
			require.ErrorAs(t, err, &target)
			assert.Contains(t, err.Error(), "a.pdf")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.err)
		})
	}
}

func TestNewMalformedResponseError_TruncatesFragment(t *testing.T) {
	err := NewMalformedResponseError(strings.Repeat("é", MaxFragmentRunes+20), nil, "questions: required")
	assert.Equal(t, MaxFragmentRunes, len([]rune(err.Fragment)))
	assert.Contains(t, err.Error(), "questions: required")
}

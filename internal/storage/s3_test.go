package storage

import (
	"testing"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"courses/course-1/abc-notes.pdf", true},
		{"", false},
		{"   ", false},
		{"/etc/passwd", false},
		{"courses/../secrets", false},
	}

	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if tt.valid {
			assert.NoError(t, err, tt.key)
			continue
		}
		var domainErr *domain.DomainError
		assert.ErrorAs(t, err, &domainErr, tt.key)
	}
}

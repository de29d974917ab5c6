package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFragmentSearcher struct {
	mock.Mock
}

func (m *MockFragmentSearcher) Search(ctx context.Context, input service.SearchFragmentsInput) ([]domain.ScoredFragment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredFragment), args.Error(1)
}

func TestFragmentHandler_Search(t *testing.T) {
	svc := new(MockFragmentSearcher)
	handler := NewFragmentHandler(svc)

	frag := domain.NewKnowledgeFragment("frag-1", "course-1", "Deep learning", "Backpropagation computes gradients.", nil, time.Now())
	svc.On("Search", mock.Anything, service.SearchFragmentsInput{
		Query:     "backpropagation",
		CourseID:  "course-1",
		LearnerID: "learner-7",
		Limit:     3,
	}).Return([]domain.ScoredFragment{{Fragment: frag, Score: 0.82}}, nil)

	body := `{"query":"backpropagation","course_id":"course-1","learner_id":"learner-7","limit":3}`
	req := httptest.NewRequest(http.MethodPost, "/fragments/search", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(1), data["count"])
	result := data["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "frag-1", result["id"])
	assert.InDelta(t, 0.82, result["score"], 1e-9)
	svc.AssertExpectations(t)
}

func TestFragmentHandler_Search_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "missing query", body: `{"course_id":"c"}`, message: "query is required"},
		{name: "limit too large", body: `{"query":"q","limit":500}`, message: "limit must be at most 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewFragmentHandler(new(MockFragmentSearcher))

			req := httptest.NewRequest(http.MethodPost, "/fragments/search", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.Search(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

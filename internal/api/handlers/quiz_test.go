package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQuizGenerator struct {
	mock.Mock
}

func (m *MockQuizGenerator) GenerateQuiz(ctx context.Context, content, title string, count int) (*domain.GeneratedQuiz, error) {
	args := m.Called(ctx, content, title, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeneratedQuiz), args.Error(1)
}

func (m *MockQuizGenerator) GenerateQuizSafe(ctx context.Context, content, title string, count int) *domain.QuizResult {
	args := m.Called(ctx, content, title, count)
	return args.Get(0).(*domain.QuizResult)
}

func (m *MockQuizGenerator) GenerateQuizFromFile(ctx context.Context, filename, mimeType string, data []byte, count int) (*domain.GeneratedQuiz, error) {
	args := m.Called(ctx, filename, mimeType, data, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeneratedQuiz), args.Error(1)
}

func (m *MockQuizGenerator) GenerateQuizFromFileSafe(ctx context.Context, filename, mimeType string, data []byte, count int) *domain.QuizResult {
	args := m.Called(ctx, filename, mimeType, data, count)
	return args.Get(0).(*domain.QuizResult)
}

func (m *MockQuizGenerator) GenerateQuizFromCourseFiles(ctx context.Context, courseID, title string) (*domain.GeneratedQuiz, error) {
	args := m.Called(ctx, courseID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeneratedQuiz), args.Error(1)
}

func (m *MockQuizGenerator) GenerateQuizFromCourseFilesSafe(ctx context.Context, courseID, title string) *domain.QuizResult {
	args := m.Called(ctx, courseID, title)
	return args.Get(0).(*domain.QuizResult)
}

func (m *MockQuizGenerator) GenerateForLearner(ctx context.Context, req domain.GenerationRequest) *domain.QuizResult {
	args := m.Called(ctx, req)
	return args.Get(0).(*domain.QuizResult)
}

func (m *MockQuizGenerator) GenerateForLearnerStrict(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedQuiz, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeneratedQuiz), args.Error(1)
}

func newTestQuiz() *domain.GeneratedQuiz {
	return &domain.GeneratedQuiz{
		Title:       "Deep learning",
		Description: "Quiz about deep learning",
		Questions: []domain.Question{{
			Text:          "Is backpropagation used to train neural networks?",
			Type:          domain.QuestionTypeTrueFalse,
			Options:       domain.TrueFalseOptions(),
			CorrectAnswer: domain.TrueLabel,
		}},
	}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "missing data envelope: %s", w.Body.String())
	return data
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestQuizHandler_Generate_Success(t *testing.T) {
	mockSvc := new(MockQuizGenerator)
	handler := NewQuizHandler(mockSvc, 10, 0)

	mockSvc.On("GenerateQuiz", mock.Anything, "Neural networks learn by backpropagation.", "Deep learning", 10).Return(newTestQuiz(), nil)

	body := `{"title":"Deep learning","content":"Neural networks learn by backpropagation."}`
	req := httptest.NewRequest(http.MethodPost, "/quizzes/generate", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.Generate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "Deep learning", data["title"])
	assert.Equal(t, "generated", data["outcome"])
	assert.Len(t, data["questions"], 1)
	mockSvc.AssertExpectations(t)
}

func TestQuizHandler_Generate_RequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "invalid json", body: `{invalid`, message: "invalid request body"},
		{name: "missing title", body: `{"content":"x"}`, message: "title is required"},
		{name: "missing content", body: `{"title":"x"}`, message: "content is required"},
		{name: "count too large", body: `{"title":"x","content":"y","count":51}`, message: "count must be at most 50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockQuizGenerator)
			handler := NewQuizHandler(mockSvc, 10, 0)

			req := httptest.NewRequest(http.MethodPost, "/quizzes/generate", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.Generate(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
			mockSvc.AssertNotCalled(t, "GenerateQuiz", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestQuizHandler_Generate_PipelineErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "validation", err: &domain.ValidationError{Invalid: 4, Total: 5}, status: http.StatusUnprocessableEntity},
		{name: "malformed", err: domain.NewMalformedResponseError("{", errors.New("unexpected end")), status: http.StatusBadGateway},
		{name: "safety", err: &domain.GenerationError{Reason: domain.GenerationSafetyBlocked}, status: http.StatusBadGateway},
		{name: "transport", err: &domain.TransportError{Service: "gemini", Err: errors.New("dial tcp")}, status: http.StatusBadGateway},
		{name: "empty content", err: domain.ErrEmptyContent, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockQuizGenerator)
			handler := NewQuizHandler(mockSvc, 10, 0)
			mockSvc.On("GenerateQuiz", mock.Anything, "text", "Title", 3).Return(nil, tt.err)

			body := `{"title":"Title","content":"text","count":3}`
			req := httptest.NewRequest(http.MethodPost, "/quizzes/generate", bytes.NewBufferString(body))
			w := httptest.NewRecorder()

			handler.Generate(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestQuizHandler_GenerateSafe_DegradedIsOK(t *testing.T) {
	mockSvc := new(MockQuizGenerator)
	handler := NewQuizHandler(mockSvc, 10, 0)

	cause := &domain.TransportError{Service: "gemini", Err: context.DeadlineExceeded}
	mockSvc.On("GenerateQuizSafe", mock.Anything, "text", "Title", 5).Return(&domain.QuizResult{
		Quiz:     newTestQuiz(),
		Outcome:  domain.QuizOutcomeDegraded,
		Cause:    cause,
		Stats:    domain.GenerationStats{Requested: 5},
		Duration: 1500 * time.Millisecond,
	})

	body := `{"title":"Title","content":"text","count":5}`
	req := httptest.NewRequest(http.MethodPost, "/quizzes/generate/safe", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	handler.GenerateSafe(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "degraded", data["outcome"])
	assert.Contains(t, data["cause"], "gemini")
	assert.Equal(t, float64(1500), data["duration_ms"])
	stats := data["stats"].(map[string]any)
	assert.Equal(t, float64(5), stats["requested"])
}

func multipartRequest(t *testing.T, url string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestQuizHandler_GenerateFromFile(t *testing.T) {
	content := []byte("Gradient descent minimizes the loss.")

	t.Run("raw", func(t *testing.T) {
		mockSvc := new(MockQuizGenerator)
		handler := NewQuizHandler(mockSvc, 10, 1<<20)
		mockSvc.On("GenerateQuizFromFile", mock.Anything, "notes.txt", "application/octet-stream", content, 4).Return(newTestQuiz(), nil)

		req := multipartRequest(t, "/quizzes/generate/file", map[string]string{"count": "4"}, "notes.txt", content)
		w := httptest.NewRecorder()

		handler.GenerateFromFile(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("safe", func(t *testing.T) {
		mockSvc := new(MockQuizGenerator)
		handler := NewQuizHandler(mockSvc, 10, 1<<20)
		mockSvc.On("GenerateQuizFromFileSafe", mock.Anything, "notes.txt", mock.Anything, content, 10).Return(&domain.QuizResult{
			Quiz:    newTestQuiz(),
			Outcome: domain.QuizOutcomeGenerated,
		})

		req := multipartRequest(t, "/quizzes/generate/file", map[string]string{"safe": "true"}, "notes.txt", content)
		w := httptest.NewRecorder()

		handler.GenerateFromFile(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "generated", decodeData(t, w)["outcome"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing file", func(t *testing.T) {
		handler := NewQuizHandler(new(MockQuizGenerator), 10, 1<<20)

		req := multipartRequest(t, "/quizzes/generate/file", map[string]string{"count": "4"}, "", nil)
		w := httptest.NewRecorder()

		handler.GenerateFromFile(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file is required")
	})

	t.Run("bad count", func(t *testing.T) {
		handler := NewQuizHandler(new(MockQuizGenerator), 10, 1<<20)

		req := multipartRequest(t, "/quizzes/generate/file", map[string]string{"count": "abc"}, "notes.txt", content)
		w := httptest.NewRecorder()

		handler.GenerateFromFile(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQuizHandler_GenerateForCourse(t *testing.T) {
	t.Run("raw course generation", func(t *testing.T) {
		mockSvc := new(MockQuizGenerator)
		handler := NewQuizHandler(mockSvc, 10, 0)
		mockSvc.On("GenerateQuizFromCourseFiles", mock.Anything, "course-1", "Optimizers").Return(nil, domain.ErrCourseHasNoContent)

		req := httptest.NewRequest(http.MethodPost, "/courses/course-1/quizzes/generate", bytes.NewBufferString(`{"title":"Optimizers"}`))
		req = withURLParam(req, "courseID", "course-1")
		w := httptest.NewRecorder()

		handler.GenerateForCourse(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("safe course generation", func(t *testing.T) {
		mockSvc := new(MockQuizGenerator)
		handler := NewQuizHandler(mockSvc, 10, 0)
		mockSvc.On("GenerateQuizFromCourseFilesSafe", mock.Anything, "course-1", "Optimizers").Return(&domain.QuizResult{
			Quiz:    newTestQuiz(),
			Outcome: domain.QuizOutcomeDegraded,
			Cause:   domain.ErrCourseHasNoContent,
		})

		req := httptest.NewRequest(http.MethodPost, "/courses/course-1/quizzes/generate", bytes.NewBufferString(`{"title":"Optimizers","safe":true}`))
		req = withURLParam(req, "courseID", "course-1")
		w := httptest.NewRecorder()

		handler.GenerateForCourse(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "degraded", decodeData(t, w)["outcome"])
	})

	t.Run("safe learner aware generation", func(t *testing.T) {
		mockSvc := new(MockQuizGenerator)
		handler := NewQuizHandler(mockSvc, 10, 0)
		mockSvc.On("GenerateForLearner", mock.Anything, domain.GenerationRequest{
			Title:         "Optimizers",
			QuestionCount: 10,
			CourseID:      "course-1",
			LearnerID:     "learner-7",
		}).Return(&domain.QuizResult{Quiz: newTestQuiz(), Outcome: domain.QuizOutcomeGenerated})

		req := httptest.NewRequest(http.MethodPost, "/courses/course-1/quizzes/generate", bytes.NewBufferString(`{"title":"Optimizers","learner_id":"learner-7","safe":true}`))
		req = withURLParam(req, "courseID", "course-1")
		w := httptest.NewRecorder()

		handler.GenerateForCourse(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("learner aware generation without safe", func(t *testing.T) {
		mockSvc := new(MockQuizGenerator)
		handler := NewQuizHandler(mockSvc, 10, 0)
		mockSvc.On("GenerateForLearnerStrict", mock.Anything, domain.GenerationRequest{
			Title:         "Optimizers",
			QuestionCount: 10,
			CourseID:      "course-1",
			LearnerID:     "learner-7",
		}).Return(newTestQuiz(), nil)

		req := httptest.NewRequest(http.MethodPost, "/courses/course-1/quizzes/generate", bytes.NewBufferString(`{"title":"Optimizers","learner_id":"learner-7"}`))
		req = withURLParam(req, "courseID", "course-1")
		w := httptest.NewRecorder()

		handler.GenerateForCourse(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Deep learning", decodeData(t, w)["title"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("explicit count without safe reports failures", func(t *testing.T) {
		mockSvc := new(MockQuizGenerator)
		handler := NewQuizHandler(mockSvc, 10, 0)
		mockSvc.On("GenerateForLearnerStrict", mock.Anything, domain.GenerationRequest{
			Title:         "Optimizers",
			QuestionCount: 4,
			CourseID:      "course-1",
		}).Return(nil, &domain.TransportError{Service: "generation", Err: errors.New("connection refused")})

		req := httptest.NewRequest(http.MethodPost, "/courses/course-1/quizzes/generate", bytes.NewBufferString(`{"title":"Optimizers","count":4}`))
		req = withURLParam(req, "courseID", "course-1")
		w := httptest.NewRecorder()

		handler.GenerateForCourse(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		mockSvc.AssertNotCalled(t, "GenerateForLearner", mock.Anything, mock.Anything)
	})
}

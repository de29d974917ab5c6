package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/pagination"
	"github.com/cloo-solutions/quizforge/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCourseIngester struct {
	mock.Mock
}

func (m *MockCourseIngester) IngestFile(ctx context.Context, input service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

type MockFragmentLister struct {
	mock.Mock
}

func (m *MockFragmentLister) List(ctx context.Context, input service.ListFragmentsInput) (*service.FragmentPageResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FragmentPageResult), args.Error(1)
}

func TestCourseHandler_Upload_Success(t *testing.T) {
	ingester := new(MockCourseIngester)
	handler := NewCourseHandler(ingester, new(MockFragmentLister), 1<<20)

	content := []byte("Adam combines momentum with adaptive learning rates.")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ingester.On("IngestFile", mock.Anything, mock.MatchedBy(func(in service.IngestInput) bool {
		return in.CourseID == "course-1" &&
			in.Filename == "optimizers.txt" &&
			string(in.Data) == string(content) &&
			assert.ObjectsAreEqual([]string{"ml", "optimizers"}, in.Tags)
	})).Return(&service.IngestResult{
		File: &domain.CourseFile{
			ID:         "file-1",
			CourseID:   "course-1",
			Filename:   "optimizers.txt",
			MimeType:   "text/plain",
			SizeBytes:  int64(len(content)),
			StorageKey: "courses/course-1/file-1-optimizers.txt",
			Fragments:  1,
			CreatedAt:  now,
		},
	}, nil)

	req := multipartRequest(t, "/courses/course-1/files", map[string]string{"tags": "ml, optimizers"}, "optimizers.txt", content)
	req = withURLParam(req, "courseID", "course-1")
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "file-1", data["id"])
	assert.Equal(t, float64(1), data["fragments"])
	assert.Equal(t, "2026-03-01T12:00:00Z", data["created_at"])
	ingester.AssertExpectations(t)
}

func TestCourseHandler_Upload_StorageFailure(t *testing.T) {
	ingester := new(MockCourseIngester)
	handler := NewCourseHandler(ingester, new(MockFragmentLister), 1<<20)

	ingester.On("IngestFile", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store course file", errors.New("s3 down")))

	req := multipartRequest(t, "/courses/course-1/files", nil, "a.txt", []byte("x"))
	req = withURLParam(req, "courseID", "course-1")
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCourseHandler_ListFragments(t *testing.T) {
	lister := new(MockFragmentLister)
	handler := NewCourseHandler(new(MockCourseIngester), lister, 0)

	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	frag := domain.NewKnowledgeFragment("frag-1", "course-1", "Optimizers", "Adam", []string{"ml"}, created)
	lister.On("List", mock.Anything, service.ListFragmentsInput{CourseID: "course-1", Cursor: "abc", Limit: 5}).
		Return(&pagination.PageResult[*domain.KnowledgeFragment]{
			Items:   []*domain.KnowledgeFragment{frag},
			Cursor:  "next",
			HasMore: true,
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/courses/course-1/fragments?cursor=abc&limit=5", nil)
	req = withURLParam(req, "courseID", "course-1")
	w := httptest.NewRecorder()

	handler.ListFragments(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "next", data["cursor"])
	assert.Equal(t, true, data["has_more"])
	items := data["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "frag-1", items[0].(map[string]any)["id"])
	assert.Equal(t, false, items[0].(map[string]any)["embedded"])
}

func TestCourseHandler_ListFragments_InvalidLimit(t *testing.T) {
	handler := NewCourseHandler(new(MockCourseIngester), new(MockFragmentLister), 0)

	req := httptest.NewRequest(http.MethodGet, "/courses/course-1/fragments?limit=ten", nil)
	req = withURLParam(req, "courseID", "course-1")
	w := httptest.NewRecorder()

	handler.ListFragments(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseHandler_ListFragments_InvalidCursor(t *testing.T) {
	lister := new(MockFragmentLister)
	handler := NewCourseHandler(new(MockCourseIngester), lister, 0)
	lister.On("List", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", pagination.ErrInvalidCursor))

	req := httptest.NewRequest(http.MethodGet, "/courses/course-1/fragments?cursor=%25%25", nil)
	req = withURLParam(req, "courseID", "course-1")
	w := httptest.NewRecorder()

	handler.ListFragments(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid cursor")
}

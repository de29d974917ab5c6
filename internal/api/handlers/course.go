package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/quizforge/internal/api"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/service"
	"github.com/go-chi/chi/v5"
)

type CourseIngester interface {
	IngestFile(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
}

type FragmentLister interface {
	List(ctx context.Context, input service.ListFragmentsInput) (*service.FragmentPageResult, error)
}

type CourseHandler struct {
	ingest         CourseIngester
	fragments      FragmentLister
	maxUploadBytes int64
}

func NewCourseHandler(ingest CourseIngester, fragments FragmentLister, maxUploadBytes int64) *CourseHandler {
	return &CourseHandler{ingest: ingest, fragments: fragments, maxUploadBytes: maxUploadBytes}
}

type CourseFileResponse struct {
	ID         string `json:"id"`
	CourseID   string `json:"course_id"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	StorageKey string `json:"storage_key"`
	Degraded   bool   `json:"degraded"`
	Fragments  int    `json:"fragments"`
	CreatedAt  string `json:"created_at"`
}

type FragmentResponse struct {
	ID          string   `json:"id"`
	CourseID    string   `json:"course_id"`
	SourceTitle string   `json:"source_title"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	UsageCount  int      `json:"usage_count"`
	Embedded    bool     `json:"embedded"`
	Score       float64  `json:"score,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

type FragmentPageResponse struct {
	Items   []*FragmentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func courseFileToResponse(f *domain.CourseFile) *CourseFileResponse {
	return &CourseFileResponse{
		ID:         f.ID,
		CourseID:   f.CourseID,
		Filename:   f.Filename,
		MimeType:   f.MimeType,
		SizeBytes:  f.SizeBytes,
		StorageKey: f.StorageKey,
		Degraded:   f.Degraded,
		Fragments:  f.Fragments,
		CreatedAt:  f.CreatedAt.Format(time.RFC3339),
	}
}

func fragmentToResponse(f *domain.KnowledgeFragment) *FragmentResponse {
	tags := f.Tags
	if tags == nil {
		tags = []string{}
	}
	return &FragmentResponse{
		ID:          f.ID,
		CourseID:    f.CourseID,
		SourceTitle: f.SourceTitle,
		Content:     f.Content,
		Tags:        tags,
		UsageCount:  f.UsageCount,
		Embedded:    len(f.Embedding) > 0,
		CreatedAt:   f.CreatedAt.Format(time.RFC3339),
	}
}

// Upload ingests a multipart document (fields file and tags) into the course.
func (h *CourseHandler) Upload(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	if courseID == "" {
		api.Error(w, http.StatusBadRequest, "courseID is required")
		return
	}

	upload, ok := readUpload(w, r, h.maxUploadBytes)
	if !ok {
		return
	}

	result, err := h.ingest.IngestFile(r.Context(), service.IngestInput{
		CourseID: courseID,
		Filename: upload.filename,
		MimeType: upload.mimeType,
		Data:     upload.data,
		Tags:     formTags(r),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, courseFileToResponse(result.File))
}

// ListFragments pages through a course's fragments in creation order.
func (h *CourseHandler) ListFragments(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	if courseID == "" {
		api.Error(w, http.StatusBadRequest, "courseID is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	page, err := h.fragments.List(r.Context(), service.ListFragmentsInput{
		CourseID: courseID,
		Cursor:   r.URL.Query().Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*FragmentResponse, 0, len(page.Items))
	for _, f := range page.Items {
		items = append(items, fragmentToResponse(f))
	}

	api.Success(w, http.StatusOK, FragmentPageResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func formTags(r *http.Request) []string {
	var tags []string
	for _, v := range r.MultipartForm.Value["tags"] {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloo-solutions/quizforge/internal/api"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/go-chi/chi/v5"
)

// QuizGenerator is the generation surface of service.QuizService.
type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, content, title string, count int) (*domain.GeneratedQuiz, error)
	GenerateQuizSafe(ctx context.Context, content, title string, count int) *domain.QuizResult
	GenerateQuizFromFile(ctx context.Context, filename, mimeType string, data []byte, count int) (*domain.GeneratedQuiz, error)
	GenerateQuizFromFileSafe(ctx context.Context, filename, mimeType string, data []byte, count int) *domain.QuizResult
	GenerateQuizFromCourseFiles(ctx context.Context, courseID, title string) (*domain.GeneratedQuiz, error)
	GenerateQuizFromCourseFilesSafe(ctx context.Context, courseID, title string) *domain.QuizResult
	GenerateForLearner(ctx context.Context, req domain.GenerationRequest) *domain.QuizResult
	GenerateForLearnerStrict(ctx context.Context, req domain.GenerationRequest) (*domain.GeneratedQuiz, error)
}

type QuizHandler struct {
	svc            QuizGenerator
	defaultCount   int
	maxUploadBytes int64
}

func NewQuizHandler(svc QuizGenerator, defaultCount int, maxUploadBytes int64) *QuizHandler {
	return &QuizHandler{svc: svc, defaultCount: defaultCount, maxUploadBytes: maxUploadBytes}
}

type GenerateQuizRequest struct {
	Title   string `json:"title" validate:"required,max=300"`
	Content string `json:"content" validate:"required"`
	Count   int    `json:"count" validate:"omitempty,min=1,max=50"`
}

type GenerateCourseQuizRequest struct {
	Title     string `json:"title" validate:"required,max=300"`
	Count     int    `json:"count" validate:"omitempty,min=1,max=50"`
	LearnerID string `json:"learner_id"`
	Safe      bool   `json:"safe"`
}

type QuizResponse struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Questions   []domain.Question       `json:"questions"`
	Outcome     domain.QuizOutcome      `json:"outcome"`
	Cause       string                  `json:"cause,omitempty"`
	Stats       *domain.GenerationStats `json:"stats,omitempty"`
	DurationMS  int64                   `json:"duration_ms,omitempty"`
}

func quizToResponse(q *domain.GeneratedQuiz) *QuizResponse {
	questions := q.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	return &QuizResponse{
		Title:       q.Title,
		Description: q.Description,
		Questions:   questions,
		Outcome:     domain.QuizOutcomeGenerated,
	}
}

func resultToResponse(res *domain.QuizResult) *QuizResponse {
	resp := quizToResponse(res.Quiz)
	resp.Outcome = res.Outcome
	resp.Cause = res.CauseMessage()
	stats := res.Stats
	resp.Stats = &stats
	resp.DurationMS = res.Duration.Milliseconds()
	return resp
}

func (h *QuizHandler) count(n int) int {
	if n == 0 {
		return h.defaultCount
	}
	return n
}

// Generate runs the raw pipeline; failures map to their HTTP status.
func (h *QuizHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateQuizRequest
	if msg, ok := decodeJSON(r, &req); !ok {
		api.Error(w, http.StatusBadRequest, msg)
		return
	}

	q, err := h.svc.GenerateQuiz(r.Context(), req.Content, req.Title, h.count(req.Count))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, quizToResponse(q))
}

// GenerateSafe always answers 200 once the request is well formed.
func (h *QuizHandler) GenerateSafe(w http.ResponseWriter, r *http.Request) {
	var req GenerateQuizRequest
	if msg, ok := decodeJSON(r, &req); !ok {
		api.Error(w, http.StatusBadRequest, msg)
		return
	}

	res := h.svc.GenerateQuizSafe(r.Context(), req.Content, req.Title, h.count(req.Count))
	api.Success(w, http.StatusOK, resultToResponse(res))
}

// GenerateFromFile accepts a multipart upload with fields file, count and safe.
func (h *QuizHandler) GenerateFromFile(w http.ResponseWriter, r *http.Request) {
	upload, ok := readUpload(w, r, h.maxUploadBytes)
	if !ok {
		return
	}

	count, err := formInt(r, "count")
	if err != nil || count < 0 || count > 50 {
		api.Error(w, http.StatusBadRequest, "count must be between 1 and 50")
		return
	}
	count = h.count(count)

	if formBool(r, "safe") {
		res := h.svc.GenerateQuizFromFileSafe(r.Context(), upload.filename, upload.mimeType, upload.data, count)
		api.Success(w, http.StatusOK, resultToResponse(res))
		return
	}

	q, err := h.svc.GenerateQuizFromFile(r.Context(), upload.filename, upload.mimeType, upload.data, count)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, quizToResponse(q))
}

// GenerateForCourse uses the course's ingested material. A learner_id or an explicit
// count goes through the learner-aware pipeline; safe selects the fallback variant.
func (h *QuizHandler) GenerateForCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	if courseID == "" {
		api.Error(w, http.StatusBadRequest, "courseID is required")
		return
	}

	var req GenerateCourseQuizRequest
	if msg, ok := decodeJSON(r, &req); !ok {
		api.Error(w, http.StatusBadRequest, msg)
		return
	}

	personalized := req.LearnerID != "" || req.Count != 0
	genReq := domain.GenerationRequest{
		Title:         req.Title,
		QuestionCount: h.count(req.Count),
		CourseID:      courseID,
		LearnerID:     req.LearnerID,
	}

	switch {
	case req.Safe && personalized:
		api.Success(w, http.StatusOK, resultToResponse(h.svc.GenerateForLearner(r.Context(), genReq)))
		return
	case req.Safe:
		api.Success(w, http.StatusOK, resultToResponse(h.svc.GenerateQuizFromCourseFilesSafe(r.Context(), courseID, req.Title)))
		return
	}

	var (
		q   *domain.GeneratedQuiz
		err error
	)
	if personalized {
		q, err = h.svc.GenerateForLearnerStrict(r.Context(), genReq)
	} else {
		q, err = h.svc.GenerateQuizFromCourseFiles(r.Context(), courseID, req.Title)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, quizToResponse(q))
}

type upload struct {
	filename string
	mimeType string
	data     []byte
}

func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*upload, bool) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return nil, false
	}

	return &upload{
		filename: header.Filename,
		mimeType: header.Header.Get("Content-Type"),
		data:     data,
	}, true
}

func formInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func formBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(r.FormValue(key)))
	return b
}

package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/quizforge/internal/api"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/service"
)

type FragmentSearcher interface {
	Search(ctx context.Context, input service.SearchFragmentsInput) ([]domain.ScoredFragment, error)
}

type FragmentHandler struct {
	svc FragmentSearcher
}

func NewFragmentHandler(svc FragmentSearcher) *FragmentHandler {
	return &FragmentHandler{svc: svc}
}

type SearchFragmentsRequest struct {
	Query     string `json:"query" validate:"required,max=1000"`
	CourseID  string `json:"course_id"`
	LearnerID string `json:"learner_id"`
	Limit     int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type SearchFragmentsResponse struct {
	Results []*FragmentResponse `json:"results"`
	Count   int                 `json:"count"`
}

func (h *FragmentHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchFragmentsRequest
	if msg, ok := decodeJSON(r, &req); !ok {
		api.Error(w, http.StatusBadRequest, msg)
		return
	}

	hits, err := h.svc.Search(r.Context(), service.SearchFragmentsInput{
		Query:     req.Query,
		CourseID:  req.CourseID,
		LearnerID: req.LearnerID,
		Limit:     req.Limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*FragmentResponse, 0, len(hits))
	for _, hit := range hits {
		resp := fragmentToResponse(hit.Fragment)
		resp.Score = hit.Score
		results = append(results, resp)
	}

	api.Success(w, http.StatusOK, SearchFragmentsResponse{Results: results, Count: len(results)})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/quizforge/internal/api"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/go-chi/chi/v5"
)

type LearnerProfileService interface {
	Get(ctx context.Context, userID string) (*domain.LearnerProfile, error)
	SetLevel(ctx context.Context, userID, level string) (*domain.LearnerProfile, error)
	AddWeakness(ctx context.Context, userID, topic string) (*domain.LearnerProfile, error)
	AddInterest(ctx context.Context, userID, topic string) (*domain.LearnerProfile, error)
}

type LearnerHandler struct {
	svc LearnerProfileService
}

func NewLearnerHandler(svc LearnerProfileService) *LearnerHandler {
	return &LearnerHandler{svc: svc}
}

type SetLevelRequest struct {
	Level string `json:"level" validate:"required"`
}

type TopicRequest struct {
	Topic string `json:"topic" validate:"required,max=200"`
}

type LearnerResponse struct {
	UserID     string   `json:"user_id"`
	Level      string   `json:"level"`
	Interests  []string `json:"interests"`
	Weaknesses []string `json:"weaknesses"`
	UpdatedAt  string   `json:"updated_at"`
}

func learnerToResponse(p *domain.LearnerProfile) *LearnerResponse {
	resp := &LearnerResponse{
		UserID:     p.UserID,
		Level:      string(p.ProficiencyLevel),
		Interests:  p.Interests,
		Weaknesses: p.Weaknesses,
		UpdatedAt:  p.UpdatedAt.Format(time.RFC3339),
	}
	if resp.Interests == nil {
		resp.Interests = []string{}
	}
	if resp.Weaknesses == nil {
		resp.Weaknesses = []string{}
	}
	return resp
}

func (h *LearnerHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Get(r.Context(), chi.URLParam(r, "learnerID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, learnerToResponse(profile))
}

func (h *LearnerHandler) SetLevel(w http.ResponseWriter, r *http.Request) {
	var req SetLevelRequest
	if msg, ok := decodeJSON(r, &req); !ok {
		api.Error(w, http.StatusBadRequest, msg)
		return
	}

	profile, err := h.svc.SetLevel(r.Context(), chi.URLParam(r, "learnerID"), req.Level)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, learnerToResponse(profile))
}

func (h *LearnerHandler) AddWeakness(w http.ResponseWriter, r *http.Request) {
	h.addTopic(w, r, h.svc.AddWeakness)
}

func (h *LearnerHandler) AddInterest(w http.ResponseWriter, r *http.Request) {
	h.addTopic(w, r, h.svc.AddInterest)
}

func (h *LearnerHandler) addTopic(w http.ResponseWriter, r *http.Request, add func(ctx context.Context, userID, topic string) (*domain.LearnerProfile, error)) {
	var req TopicRequest
	if msg, ok := decodeJSON(r, &req); !ok {
		api.Error(w, http.StatusBadRequest, msg)
		return
	}

	profile, err := add(r.Context(), chi.URLParam(r, "learnerID"), req.Topic)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, learnerToResponse(profile))
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
)

// ProfileStore persists learner profiles. Get returns (nil, nil) for an unknown learner.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.LearnerProfile, error)
	Save(ctx context.Context, profile *domain.LearnerProfile) error
}

// ProfileService reads and updates learner profiles. Profiles are created with
// defaults on first use. Concurrent updates follow last-writer-wins.
type ProfileService struct {
	store        ProfileStore
	maxInterests int
	now          func() time.Time
}

func NewProfileService(store ProfileStore, pipeline config.Pipeline) *ProfileService {
	return &ProfileService{
		store:        store,
		maxInterests: pipeline.MaxInterests,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the learner's profile, or a fresh default one that is not yet stored.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.LearnerProfile, error) {
	if userID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	profile, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = domain.NewLearnerProfile(userID, s.now())
	}
	return profile, nil
}

func (s *ProfileService) SetLevel(ctx context.Context, userID, level string) (*domain.LearnerProfile, error) {
	parsed, err := domain.ParseProficiencyLevel(level)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(p *domain.LearnerProfile) {
		p.ProficiencyLevel = parsed
	})
}

// AddWeakness records feedback that the learner struggles with topic.
func (s *ProfileService) AddWeakness(ctx context.Context, userID, topic string) (*domain.LearnerProfile, error) {
	if topic == "" {
		return nil, domain.ErrMissingRequiredField
	}
	return s.update(ctx, userID, func(p *domain.LearnerProfile) {
		p.AddWeakness(topic)
	})
}

// AddInterest records participation in topic, most recent first.
func (s *ProfileService) AddInterest(ctx context.Context, userID, topic string) (*domain.LearnerProfile, error) {
	if topic == "" {
		return nil, domain.ErrMissingRequiredField
	}
	return s.update(ctx, userID, func(p *domain.LearnerProfile) {
		p.AddInterest(topic, s.maxInterests)
	})
}

func (s *ProfileService) update(ctx context.Context, userID string, mutate func(*domain.LearnerProfile)) (*domain.LearnerProfile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	mutate(profile)
	profile.UpdatedAt = s.now()

	if err := domain.ValidateLearnerProfile(profile); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid learner profile", err)
	}
	if err := s.store.Save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// MemoryProfileStore keeps profiles in process memory. Used when Redis is not configured.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.LearnerProfile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domain.LearnerProfile)}
}

func (s *MemoryProfileStore) Get(_ context.Context, userID string) (*domain.LearnerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return copyProfile(p), nil
}

func (s *MemoryProfileStore) Save(_ context.Context, profile *domain.LearnerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = *copyProfile(*profile)
	return nil
}

func copyProfile(p domain.LearnerProfile) *domain.LearnerProfile {
	p.Interests = append([]string(nil), p.Interests...)
	p.Weaknesses = append([]string(nil), p.Weaknesses...)
	return &p
}

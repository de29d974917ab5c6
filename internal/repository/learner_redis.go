package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/redis/go-redis/v9"
)

const learnerKeyPrefix = "quizforge:learner:"

// LearnerProfileRepository keeps one Redis hash per learner.
type LearnerProfileRepository struct {
	client redis.Cmdable
}

func NewLearnerProfileRepository(client redis.Cmdable) *LearnerProfileRepository {
	return &LearnerProfileRepository{client: client}
}

// Get returns (nil, nil) when the learner has no stored profile.
func (r *LearnerProfileRepository) Get(ctx context.Context, userID string) (*domain.LearnerProfile, error) {
	fields, err := r.client.HGetAll(ctx, learnerKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading learner profile: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	p := &domain.LearnerProfile{
		UserID:           userID,
		ProficiencyLevel: domain.ProficiencyLevel(fields["level"]),
		Interests:        []string{},
		Weaknesses:       []string{},
	}
	if v := fields["interests"]; v != "" {
		if err := json.Unmarshal([]byte(v), &p.Interests); err != nil {
			return nil, fmt.Errorf("decoding learner interests: %w", err)
		}
	}
	if v := fields["weaknesses"]; v != "" {
		if err := json.Unmarshal([]byte(v), &p.Weaknesses); err != nil {
			return nil, fmt.Errorf("decoding learner weaknesses: %w", err)
		}
	}
	if v := fields["updated_at"]; v != "" {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			p.UpdatedAt = ts
		}
	}
	if !domain.IsValidProficiencyLevel(p.ProficiencyLevel) {
		p.ProficiencyLevel = domain.ProficiencyBeginner
	}
	return p, nil
}

func (r *LearnerProfileRepository) Save(ctx context.Context, p *domain.LearnerProfile) error {
	if err := domain.ValidateLearnerProfile(p); err != nil {
		return err
	}

	interests, err := json.Marshal(nonNil(p.Interests))
	if err != nil {
		return err
	}
	weaknesses, err := json.Marshal(nonNil(p.Weaknesses))
	if err != nil {
		return err
	}

	if err := r.client.HSet(ctx, learnerKey(p.UserID),
		"level", string(p.ProficiencyLevel),
		"interests", string(interests),
		"weaknesses", string(weaknesses),
		"updated_at", p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Err(); err != nil {
		return fmt.Errorf("writing learner profile: %w", err)
	}
	return nil
}

func learnerKey(userID string) string {
	return learnerKeyPrefix + userID
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

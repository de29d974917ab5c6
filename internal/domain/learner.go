package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProficiencyLevel is the learner's self-assessed or inferred level.
type ProficiencyLevel string

const (
	ProficiencyBeginner     ProficiencyLevel = "BEGINNER"
	ProficiencyIntermediate ProficiencyLevel = "INTERMEDIATE"
	ProficiencyAdvanced     ProficiencyLevel = "ADVANCED"
	ProficiencyExpert       ProficiencyLevel = "EXPERT"
)

// DefaultMaxInterests bounds LearnerProfile.Interests when no limit is configured.
const DefaultMaxInterests = 10

// LearnerProfile personalizes retrieval and prompting.
type LearnerProfile struct {
	UserID           string
	ProficiencyLevel ProficiencyLevel
	Interests        []string // most recent first
	Weaknesses       []string
	UpdatedAt        time.Time
}

// NewLearnerProfile returns the default profile for a first-time learner.
func NewLearnerProfile(userID string, now time.Time) *LearnerProfile {
	return &LearnerProfile{
		UserID:           userID,
		ProficiencyLevel: ProficiencyBeginner,
		Interests:        []string{},
		Weaknesses:       []string{},
		UpdatedAt:        now,
	}
}

// ParseProficiencyLevel accepts any casing of a known level.
func ParseProficiencyLevel(s string) (ProficiencyLevel, error) {
	level := ProficiencyLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !IsValidProficiencyLevel(level) {
		return "", NewDomainError(ErrCodeValidation, fmt.Sprintf("invalid proficiency level: %q", s))
	}
	return level, nil
}

func IsValidProficiencyLevel(l ProficiencyLevel) bool {
	switch l {
	case ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced, ProficiencyExpert:
		return true
	}
	return false
}

// Describe returns the prompt wording for a level.
func (l ProficiencyLevel) Describe() string {
	switch l {
	case ProficiencyIntermediate:
		return "intermediate: comfortable with the core notions, ready for applied questions"
	case ProficiencyAdvanced:
		return "advanced: expects nuanced questions that connect several notions"
	case ProficiencyExpert:
		return "expert: expects demanding questions on edge cases and trade-offs"
	default:
		return "beginner: needs clear questions on definitions and fundamental notions"
	}
}

// AddInterest moves topic to the front, dropping duplicates and the oldest entries beyond max.
func (p *LearnerProfile) AddInterest(topic string, max int) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}
	if max <= 0 {
		max = DefaultMaxInterests
	}

	next := make([]string, 0, len(p.Interests)+1)
	next = append(next, topic)
	for _, existing := range p.Interests {
		if strings.EqualFold(existing, topic) {
			continue
		}
		next = append(next, existing)
	}
	if len(next) > max {
		next = next[:max]
	}
	p.Interests = next
}

// AddWeakness appends topic unless already recorded.
func (p *LearnerProfile) AddWeakness(topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}
	for _, existing := range p.Weaknesses {
		if strings.EqualFold(existing, topic) {
			return
		}
	}
	p.Weaknesses = append(p.Weaknesses, topic)
}

// ValidateLearnerProfile validates a LearnerProfile instance
func ValidateLearnerProfile(p *LearnerProfile) error {
	if p == nil {
		return fmt.Errorf("learner profile cannot be nil")
	}
	if p.UserID == "" {
		return fmt.Errorf("learner profile UserID is required")
	}
	if !IsValidProficiencyLevel(p.ProficiencyLevel) {
		return fmt.Errorf("learner profile ProficiencyLevel is invalid: %s", p.ProficiencyLevel)
	}
	return nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// KnowledgeFragment is a unit of course material used to ground generation.
type KnowledgeFragment struct {
	ID          string
	CourseID    string
	SourceTitle string
	Content     string
	Tags        []string
	Embedding   []float32
	UsageCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewKnowledgeFragment creates a new KnowledgeFragment instance
func NewKnowledgeFragment(id, courseID, sourceTitle, content string, tags []string, createdAt time.Time) *KnowledgeFragment {
	return &KnowledgeFragment{
		ID:          id,
		CourseID:    courseID,
		SourceTitle: sourceTitle,
		Content:     content,
		Tags:        NormalizeTags(tags),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// ValidateKnowledgeFragment validates a fragment. dimensions <= 0 skips the embedding check.
func ValidateKnowledgeFragment(f *KnowledgeFragment, dimensions int) error {
	if f == nil {
		return fmt.Errorf("fragment cannot be nil")
	}
	if f.ID == "" {
		return fmt.Errorf("fragment ID is required")
	}
	if strings.TrimSpace(f.Content) == "" {
		return fmt.Errorf("fragment Content is required")
	}
	if f.UsageCount < 0 {
		return fmt.Errorf("fragment UsageCount cannot be negative")
	}
	if dimensions > 0 && len(f.Embedding) > 0 && len(f.Embedding) != dimensions {
		return fmt.Errorf("fragment Embedding has %d dimensions, expected %d", len(f.Embedding), dimensions)
	}
	return nil
}

// HasAnyTag reports whether the fragment carries one of tags, ignoring case.
func (f *KnowledgeFragment) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		for _, have := range f.Tags {
			if strings.ToLower(have) == want {
				return true
			}
		}
	}
	return false
}

// NormalizeTags trims, lowercases and deduplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ScoredFragment is a retrieval hit with its combined score.
type ScoredFragment struct {
	Fragment *KnowledgeFragment
	Score    float64
}

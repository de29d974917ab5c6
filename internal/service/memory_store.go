package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/quizforge/internal/domain"
)

// Embedder computes a vector for text. *EmbeddingService satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// MemoryFragmentStore is a FragmentStore over fragments held in memory. It backs
// generation from pasted content, where nothing is persisted. Fragments without
// an embedding are embedded on first vector search when an Embedder is set.
type MemoryFragmentStore struct {
	mu        sync.RWMutex
	fragments map[string]*domain.KnowledgeFragment
	order     []string
	embedder  Embedder
}

func NewMemoryFragmentStore(embedder Embedder) *MemoryFragmentStore {
	return &MemoryFragmentStore{
		fragments: make(map[string]*domain.KnowledgeFragment),
		embedder:  embedder,
	}
}

// Add stores fragments, replacing any with the same ID.
func (s *MemoryFragmentStore) Add(fragments ...*domain.KnowledgeFragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fragments {
		if f == nil {
			continue
		}
		if _, exists := s.fragments[f.ID]; !exists {
			s.order = append(s.order, f.ID)
		}
		s.fragments[f.ID] = f
	}
}

func (s *MemoryFragmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *MemoryFragmentStore) Get(id string) (*domain.KnowledgeFragment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fragments[id]
	return f, ok
}

// List returns up to limit fragments in insertion order.
func (s *MemoryFragmentStore) List(courseID string, limit int) []*domain.KnowledgeFragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.KnowledgeFragment, 0, limit)
	for _, id := range s.order {
		f := s.fragments[id]
		if !inCourse(f, courseID) {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, f)
	}
	return out
}

func (s *MemoryFragmentStore) KeywordSearch(_ context.Context, terms []string, courseID string, limit int) ([]*domain.KnowledgeFragment, error) {
	var out []*domain.KnowledgeFragment
	for _, f := range s.List(courseID, 0) {
		if keywordScore(f.Content, f.Tags, terms) > 0 {
			out = append(out, f)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryFragmentStore) VectorSearch(ctx context.Context, embedding []float32, courseID string, limit int) ([]domain.ScoredFragment, error) {
	candidates := s.List(courseID, 0)

	scored := make([]domain.ScoredFragment, 0, len(candidates))
	for _, f := range candidates {
		vec := s.embeddingFor(ctx, f)
		if len(vec) == 0 {
			continue
		}
		scored = append(scored, domain.ScoredFragment{Fragment: f, Score: CosineSimilarity(embedding, vec)})
	}

	sortScored(scored)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *MemoryFragmentStore) embeddingFor(ctx context.Context, f *domain.KnowledgeFragment) []float32 {
	s.mu.RLock()
	vec := f.Embedding
	s.mu.RUnlock()
	if len(vec) > 0 || s.embedder == nil {
		return vec
	}

	vec = s.embedder.Embed(ctx, buildEmbeddingText(f))
	s.mu.Lock()
	f.Embedding = vec
	s.mu.Unlock()
	return vec
}

func (s *MemoryFragmentStore) FindByTag(_ context.Context, tag, courseID string, limit int) ([]*domain.KnowledgeFragment, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, nil
	}
	var out []*domain.KnowledgeFragment
	for _, f := range s.List(courseID, 0) {
		if f.HasAnyTag([]string{tag}) {
			out = append(out, f)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryFragmentStore) IncrementUsage(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if f, ok := s.fragments[id]; ok {
			f.UsageCount++
		}
	}
	return nil
}

func inCourse(f *domain.KnowledgeFragment, courseID string) bool {
	return courseID == "" || f.CourseID == courseID
}

// sortScored orders by score descending, then ID ascending.
func sortScored(results []domain.ScoredFragment) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Fragment.ID < results[j].Fragment.ID
	})
}

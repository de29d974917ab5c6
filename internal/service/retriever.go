package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"go.uber.org/zap"
)

// FragmentStore is the search surface the retriever needs. courseID "" searches every course.
type FragmentStore interface {
	KeywordSearch(ctx context.Context, terms []string, courseID string, limit int) ([]*domain.KnowledgeFragment, error)
	VectorSearch(ctx context.Context, embedding []float32, courseID string, limit int) ([]domain.ScoredFragment, error)
	FindByTag(ctx context.Context, tag, courseID string, limit int) ([]*domain.KnowledgeFragment, error)
	IncrementUsage(ctx context.Context, ids []string) error
}

// SearchInput describes one retrieval.
type SearchInput struct {
	Query    string
	CourseID string
	Profile  *domain.LearnerProfile
	Limit    int
}

// Retriever runs keyword, vector and tag searches over a FragmentStore and merges the hits.
type Retriever struct {
	store      FragmentStore
	embeddings Embedder
	pipeline   config.Pipeline
	logger     *zap.Logger
}

func NewRetriever(store FragmentStore, embeddings Embedder, pipeline config.Pipeline, log *zap.Logger) *Retriever {
	return &Retriever{
		store:      store,
		embeddings: embeddings,
		pipeline:   pipeline,
		logger:     logger.OrNop(log).Named("retriever"),
	}
}

// Search returns at most Limit fragments sorted by combined score, then ID.
func (r *Retriever) Search(ctx context.Context, input SearchInput) ([]domain.ScoredFragment, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = r.pipeline.RetrieveLimit
	}

	merged := newMergeSet()

	terms := queryTerms(input.Query)
	if len(terms) > 0 {
		hits, err := r.store.KeywordSearch(ctx, terms, input.CourseID, 2*limit)
		if err != nil {
			return nil, fmt.Errorf("keyword search failed: %w", err)
		}
		for _, f := range hits {
			if score := keywordScore(f.Content, f.Tags, terms); score > 0 {
				merged.add(f, score)
			}
		}
	}

	if merged.len() < r.pipeline.KeywordMinResults && r.embeddings != nil {
		embedding := r.embeddings.Embed(ctx, input.Query)
		hits, err := r.store.VectorSearch(ctx, embedding, input.CourseID, 2*limit)
		if err != nil {
			return nil, fmt.Errorf("vector search failed: %w", err)
		}
		for _, hit := range hits {
			merged.add(hit.Fragment, hit.Score)
		}
	}

	var interests []string
	if input.Profile != nil {
		interests = input.Profile.Interests
	}

	if merged.len() < r.pipeline.TagMinResults {
		for _, interest := range interests {
			hits, err := r.store.FindByTag(ctx, interest, input.CourseID, limit)
			if err != nil {
				return nil, fmt.Errorf("tag search failed: %w", err)
			}
			for _, f := range hits {
				merged.add(f, 0)
			}
		}
	}

	results := merged.results()
	for i := range results {
		f := results[i].Fragment
		if len(interests) > 0 && f.HasAnyTag(interests) {
			results[i].Score += r.pipeline.InterestBoost
		}
		if f.UsageCount > r.pipeline.PopularityThreshold {
			results[i].Score += r.pipeline.PopularityBoost
		}
	}

	sortScored(results)
	if len(results) > limit {
		results = results[:limit]
	}

	if len(results) > 0 {
		ids := make([]string, len(results))
		for i, res := range results {
			ids[i] = res.Fragment.ID
		}
		if err := r.store.IncrementUsage(ctx, ids); err != nil {
			r.logger.Warn("failed to increment fragment usage", zap.Error(err), zap.Int("fragments", len(ids)))
		}
	}

	r.logger.Debug("retrieval completed",
		zap.Int("terms", len(terms)),
		zap.Int("results", len(results)),
		zap.String("course_id", input.CourseID),
	)
	return results, nil
}

// mergeSet keeps the first score seen per fragment ID, in arrival order.
type mergeSet struct {
	index map[string]int
	items []domain.ScoredFragment
}

func newMergeSet() *mergeSet {
	return &mergeSet{index: make(map[string]int)}
}

func (m *mergeSet) add(f *domain.KnowledgeFragment, score float64) {
	if f == nil {
		return
	}
	if _, ok := m.index[f.ID]; ok {
		return
	}
	m.index[f.ID] = len(m.items)
	m.items = append(m.items, domain.ScoredFragment{Fragment: f, Score: score})
}

func (m *mergeSet) len() int {
	return len(m.items)
}

func (m *mergeSet) results() []domain.ScoredFragment {
	return m.items
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fixedEmbedder maps known texts to vectors and everything else to a zero vector.
type fixedEmbedder map[string][]float32

func (e fixedEmbedder) Embed(_ context.Context, text string) []float32 {
	if v, ok := e[text]; ok {
		return v
	}
	return []float32{0, 0}
}

func fragment(id, content string, tags ...string) *domain.KnowledgeFragment {
	return domain.NewKnowledgeFragment(id, "course-1", "Intro", content, tags, time.Now())
}

func ids(results []domain.ScoredFragment) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Fragment.ID
	}
	return out
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"reseaux", "neurones", "profonds"}, queryTerms("Les réseaux de neurones profonds, les RÉSEAUX"))
	assert.Equal(t, []string{"gradient", "descent"}, queryTerms("what is the gradient descent?"))
	assert.Empty(t, queryTerms("a an of to"))
}

func TestKeywordScore(t *testing.T) {
	terms := []string{"gradient", "descent", "momentum", "adam"}

	assert.InDelta(t, 0.5, keywordScore("Gradient descent updates weights.", nil, terms), 1e-9)
	assert.InDelta(t, 0.75, keywordScore("Gradient descent updates weights.", []string{"Adam"}, terms), 1e-9)
	assert.Equal(t, 0.0, keywordScore("anything", nil, nil))
}

func TestRetriever_Search_KeywordRanking(t *testing.T) {
	store := NewMemoryFragmentStore(nil)
	store.Add(
		fragment("f1", "Gradient descent minimizes loss."),
		fragment("f2", "Stochastic gradient descent with momentum minimizes loss."),
		fragment("f3", "Momentum accelerates training."),
		fragment("f4", "Unrelated text about databases."),
	)

	r := NewRetriever(store, fixedEmbedder{}, config.DefaultPipeline(), zaptest.NewLogger(t))
	results, err := r.Search(context.Background(), SearchInput{Query: "gradient descent momentum"})

	require.NoError(t, err)
	assert.Equal(t, []string{"f2", "f1", "f3"}, ids(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 2.0/3.0, results[1].Score, 1e-9)
}

func TestRetriever_Search_VectorTopUp(t *testing.T) {
	store := NewMemoryFragmentStore(nil)
	near := fragment("near", "Unrelated wording A.")
	near.Embedding = []float32{1, 0}
	far := fragment("far", "Unrelated wording B.")
	far.Embedding = []float32{0, 1}
	store.Add(fragment("kw", "Backpropagation computes gradients."), near, far)

	embedder := fixedEmbedder{"backpropagation": {1, 0}}
	r := NewRetriever(store, embedder, config.DefaultPipeline(), nil)

	results, err := r.Search(context.Background(), SearchInput{Query: "backpropagation", Limit: 3})

	require.NoError(t, err)
	assert.Equal(t, []string{"kw", "near", "far"}, ids(results))
}

func TestRetriever_Search_TagTopUpAndBoosts(t *testing.T) {
	store := NewMemoryFragmentStore(nil)
	tagged := fragment("tagged", "Convolutions slide filters.", "Vision")
	popular := fragment("popular", "Pooling reduces resolution.")
	popular.UsageCount = 11
	store.Add(tagged, popular)

	p := config.DefaultPipeline()
	r := NewRetriever(store, nil, p, nil)
	profile := &domain.LearnerProfile{UserID: "u1", Interests: []string{"vision"}}

	results, err := r.Search(context.Background(), SearchInput{Query: "transformers", Profile: profile})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tagged", results[0].Fragment.ID)
	assert.InDelta(t, p.InterestBoost, results[0].Score, 1e-9)
}

func TestRetriever_Search_PopularityBoost(t *testing.T) {
	store := NewMemoryFragmentStore(nil)
	plain := fragment("a-plain", "Pooling layers reduce resolution.")
	popular := fragment("b-popular", "Pooling layers reduce resolution.")
	popular.UsageCount = 11
	store.Add(plain, popular)

	r := NewRetriever(store, nil, config.DefaultPipeline(), nil)
	results, err := r.Search(context.Background(), SearchInput{Query: "pooling"})

	require.NoError(t, err)
	assert.Equal(t, []string{"b-popular", "a-plain"}, ids(results))
	assert.InDelta(t, 1.05, results[0].Score, 1e-9)
}

func TestRetriever_Search_TiesBrokenByID(t *testing.T) {
	store := NewMemoryFragmentStore(nil)
	store.Add(fragment("c", "softmax"), fragment("a", "softmax"), fragment("b", "softmax"))

	r := NewRetriever(store, nil, config.DefaultPipeline(), nil)
	results, err := r.Search(context.Background(), SearchInput{Query: "softmax", Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(results))
}

func TestRetriever_Search_IncrementsUsage(t *testing.T) {
	store := NewMemoryFragmentStore(nil)
	f := fragment("f1", "Dropout regularizes networks.")
	store.Add(f)

	r := NewRetriever(store, nil, config.DefaultPipeline(), nil)
	_, err := r.Search(context.Background(), SearchInput{Query: "dropout"})

	require.NoError(t, err)
	assert.Equal(t, 1, f.UsageCount)
}

func TestRetriever_Search_CourseScope(t *testing.T) {
	store := NewMemoryFragmentStore(nil)
	other := domain.NewKnowledgeFragment("other", "course-2", "Other", "Dropout in another course.", nil, time.Now())
	store.Add(fragment("mine", "Dropout regularizes networks."), other)

	r := NewRetriever(store, nil, config.DefaultPipeline(), nil)
	results, err := r.Search(context.Background(), SearchInput{Query: "dropout", CourseID: "course-1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, ids(results))
}

// MockFragmentStore mocks a persisted FragmentStore
type MockFragmentStore struct {
	mock.Mock
}

func (m *MockFragmentStore) KeywordSearch(ctx context.Context, terms []string, courseID string, limit int) ([]*domain.KnowledgeFragment, error) {
	args := m.Called(ctx, terms, courseID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeFragment), args.Error(1)
}

func (m *MockFragmentStore) VectorSearch(ctx context.Context, embedding []float32, courseID string, limit int) ([]domain.ScoredFragment, error) {
	args := m.Called(ctx, embedding, courseID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredFragment), args.Error(1)
}

func (m *MockFragmentStore) FindByTag(ctx context.Context, tag, courseID string, limit int) ([]*domain.KnowledgeFragment, error) {
	args := m.Called(ctx, tag, courseID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeFragment), args.Error(1)
}

func (m *MockFragmentStore) IncrementUsage(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockFragmentStore) FirstByCourse(ctx context.Context, courseID string, limit int) ([]*domain.KnowledgeFragment, error) {
	args := m.Called(ctx, courseID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeFragment), args.Error(1)
}

func TestRetriever_Search_UsageFailureIsBestEffort(t *testing.T) {
	store := new(MockFragmentStore)
	hits := []*domain.KnowledgeFragment{
		fragment("f1", "Attention weights tokens."),
		fragment("f2", "Attention heads."),
		fragment("f3", "Self attention."),
	}
	store.On("KeywordSearch", mock.Anything, []string{"attention"}, "course-1", 10).Return(hits, nil)
	store.On("IncrementUsage", mock.Anything, []string{"f1", "f2", "f3"}).Return(errors.New("db down"))

	r := NewRetriever(store, nil, config.DefaultPipeline(), zaptest.NewLogger(t))
	results, err := r.Search(context.Background(), SearchInput{Query: "attention", CourseID: "course-1"})

	require.NoError(t, err)
	assert.Len(t, results, 3)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "VectorSearch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetriever_Search_StoreErrorIsReturned(t *testing.T) {
	store := new(MockFragmentStore)
	store.On("KeywordSearch", mock.Anything, mock.Anything, "", 10).Return(nil, errors.New("connection refused"))

	r := NewRetriever(store, nil, config.DefaultPipeline(), nil)
	_, err := r.Search(context.Background(), SearchInput{Query: "attention"})

	assert.ErrorContains(t, err, "connection refused")
}

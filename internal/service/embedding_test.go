package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockEmbeddingClient mocks the OpenAI client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// countingClient returns a fixed vector derived from the text and counts calls.
type countingClient struct {
	calls      atomic.Int32
	dimensions int
	err        error
}

func (c *countingClient) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	vec := make([]float32, c.dimensions)
	for i := range vec {
		vec[i] = float32(len(text)+i) / 100
	}
	return vec, nil
}

func testPipeline() config.Pipeline {
	p := config.DefaultPipeline()
	p.EmbeddingDimensions = 8
	p.CacheCapacity = 16
	return p
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestEmbeddingService_Embed_CachesNormalizedText(t *testing.T) {
	client := &countingClient{dimensions: 8}
	svc := NewEmbeddingService(client, testPipeline(), zaptest.NewLogger(t))
	ctx := context.Background()

	first := svc.Embed(ctx, "Deep learning uses neural networks.")
	second := svc.Embed(ctx, "  deep   LEARNING uses neural networks. ")

	assert.Equal(t, int32(1), client.calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(1), svc.CacheStats().Hits)
}

func TestEmbeddingService_Embed_ReturnsCopies(t *testing.T) {
	client := &countingClient{dimensions: 8}
	svc := NewEmbeddingService(client, testPipeline(), nil)
	ctx := context.Background()

	first := svc.Embed(ctx, "gradient descent")
	first[0] = 999

	second := svc.Embed(ctx, "gradient descent")
	assert.NotEqual(t, float32(999), second[0])
}

func TestEmbeddingService_Embed_FallbackOnError(t *testing.T) {
	client := &countingClient{dimensions: 8, err: errors.New("503 service unavailable")}
	svc := NewEmbeddingService(client, testPipeline(), zaptest.NewLogger(t))
	ctx := context.Background()

	vec := svc.Embed(ctx, "Backpropagation")
	again := svc.Embed(ctx, "backpropagation")

	require.Len(t, vec, 8)
	assert.InDelta(t, 1.0, vectorNorm(vec), 1e-5)
	assert.Equal(t, vec, again)
	assert.Equal(t, int32(2), client.calls.Load(), "fallback vectors are not cached")
	assert.Equal(t, 0, svc.CacheStats().Size)
}

func TestEmbeddingService_Embed_RecoversAfterFailure(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := NewEmbeddingService(mockClient, testPipeline(), nil)
	ctx := context.Background()
	good := []float32{1, 0, 0, 0, 0, 0, 0, 0}

	mockClient.On("GenerateEmbedding", mock.Anything, "softmax").Return(nil, errors.New("timeout")).Once()
	mockClient.On("GenerateEmbedding", mock.Anything, "softmax").Return(good, nil).Once()

	fallback := svc.Embed(ctx, "Softmax")
	recovered := svc.Embed(ctx, "Softmax")

	assert.NotEqual(t, good, fallback)
	assert.Equal(t, good, recovered)
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_Embed_WrongDimensionsFallsBack(t *testing.T) {
	client := &countingClient{dimensions: 3}
	svc := NewEmbeddingService(client, testPipeline(), nil)

	vec := svc.Embed(context.Background(), "activation")

	assert.Len(t, vec, 8)
	assert.Equal(t, FallbackVector("activation", 8), vec)
}

func TestEmbeddingService_Embed_EmptyText(t *testing.T) {
	client := &countingClient{dimensions: 8}
	svc := NewEmbeddingService(client, testPipeline(), nil)

	vec := svc.Embed(context.Background(), "   ")

	assert.Equal(t, FallbackVector("", 8), vec)
	assert.Equal(t, int32(0), client.calls.Load())
}

func TestEmbeddingService_Embed_NilClient(t *testing.T) {
	svc := NewEmbeddingService(nil, testPipeline(), nil)

	vec := svc.Embed(context.Background(), "convolution")

	assert.Equal(t, FallbackVector("convolution", 8), vec)
}

func TestEmbeddingService_Embed_AppliesTimeout(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	p := testPipeline()
	p.EmbeddingTimeout = 50 * time.Millisecond
	svc := NewEmbeddingService(mockClient, p, nil)

	mockClient.On("GenerateEmbedding", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), "pooling").Return(make([]float32, 8), nil)

	svc.Embed(context.Background(), "pooling")

	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_EmbedStrict_ReturnsError(t *testing.T) {
	client := &countingClient{dimensions: 8, err: errors.New("down")}
	svc := NewEmbeddingService(client, testPipeline(), nil)

	vec, err := svc.EmbedStrict(context.Background(), "dropout")

	assert.Nil(t, vec)
	assert.Error(t, err)
}

func TestNormalizeEmbeddingText(t *testing.T) {
	assert.Equal(t, "deep learning", NormalizeEmbeddingText("  Deep \n\t LEARNING  ", 500))
	assert.Equal(t, "éco", NormalizeEmbeddingText("ÉCOLE", 3))
	assert.Len(t, []rune(NormalizeEmbeddingText(strings.Repeat("a ", 1000), 500)), 499)
}

func TestFallbackVector(t *testing.T) {
	a := FallbackVector("alpha", 16)
	b := FallbackVector("alpha", 16)
	c := FallbackVector("beta", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.InDelta(t, 1.0, vectorNorm(a), 1e-5)
	assert.Nil(t, FallbackVector("alpha", 0))
}

// MockFragmentEmbeddingRepo mocks the fragment repository for the embedder
type MockFragmentEmbeddingRepo struct {
	mock.Mock
}

func (m *MockFragmentEmbeddingRepo) GetByID(ctx context.Context, id string) (*domain.KnowledgeFragment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeFragment), args.Error(1)
}

func (m *MockFragmentEmbeddingRepo) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	args := m.Called(ctx, id, embedding)
	return args.Error(0)
}

func TestFragmentEmbedder_GenerateEmbedding_Success(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockFragmentEmbeddingRepo)
	embedder := NewFragmentEmbedder(NewEmbeddingService(mockClient, testPipeline(), nil), mockRepo)

	ctx := context.Background()
	fragment := &domain.KnowledgeFragment{ID: "frag-1", SourceTitle: "Neural Networks", Content: "Layers of   neurons."}
	vec := []float32{1, 2, 3, 4, 5, 6, 7, 8}

	mockRepo.On("GetByID", ctx, "frag-1").Return(fragment, nil)
	mockClient.On("GenerateEmbedding", mock.Anything, "neural networks layers of neurons.").Return(vec, nil)
	mockRepo.On("UpdateEmbedding", ctx, "frag-1", vec).Return(nil)

	err := embedder.GenerateEmbedding(ctx, "frag-1")

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockClient.AssertExpectations(t)
}

func TestFragmentEmbedder_GenerateEmbedding_NotFound(t *testing.T) {
	mockRepo := new(MockFragmentEmbeddingRepo)
	embedder := NewFragmentEmbedder(NewEmbeddingService(nil, testPipeline(), nil), mockRepo)

	ctx := context.Background()
	mockRepo.On("GetByID", ctx, "missing").Return(nil, domain.ErrFragmentNotFound)

	err := embedder.GenerateEmbedding(ctx, "missing")

	assert.ErrorIs(t, err, domain.ErrFragmentNotFound)
	mockRepo.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
}

func TestFragmentEmbedder_GenerateEmbedding_ClientErrorIsReturned(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	mockRepo := new(MockFragmentEmbeddingRepo)
	embedder := NewFragmentEmbedder(NewEmbeddingService(mockClient, testPipeline(), nil), mockRepo)

	ctx := context.Background()
	mockRepo.On("GetByID", ctx, "frag-1").Return(&domain.KnowledgeFragment{ID: "frag-1", Content: "text"}, nil)
	mockClient.On("GenerateEmbedding", mock.Anything, "text").Return(nil, errors.New("rate limited"))

	err := embedder.GenerateEmbedding(ctx, "frag-1")

	assert.ErrorContains(t, err, "rate limited")
	mockRepo.AssertNotCalled(t, "UpdateEmbedding", mock.Anything, mock.Anything, mock.Anything)
}

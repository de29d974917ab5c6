package service

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cloo-solutions/quizforge/internal/cache"
	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"go.uber.org/zap"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingService turns text into vectors through a bounded cache. Embed never fails:
// when the client is unavailable it returns a deterministic fallback vector.
type EmbeddingService struct {
	client     EmbeddingClient
	cache      *cache.Bounded[[]float32]
	dimensions int
	maxChars   int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewEmbeddingService creates a new EmbeddingService instance. A nil client always falls back.
func NewEmbeddingService(client EmbeddingClient, pipeline config.Pipeline, log *zap.Logger) *EmbeddingService {
	return &EmbeddingService{
		client:     client,
		cache:      cache.NewBounded(pipeline.CacheCapacity, cache.CloneFloat32s),
		dimensions: pipeline.EmbeddingDimensions,
		maxChars:   pipeline.EmbedMaxChars,
		timeout:    pipeline.EmbeddingTimeout,
		logger:     logger.OrNop(log).Named("embedding"),
	}
}

func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

func (s *EmbeddingService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Embed returns the vector for text, or the fallback vector when the client fails.
func (s *EmbeddingService) Embed(ctx context.Context, text string) []float32 {
	normalized := NormalizeEmbeddingText(text, s.maxChars)
	vec, err := s.lookup(ctx, normalized)
	if err != nil {
		s.logger.Warn("embedding unavailable, using fallback vector",
			zap.Error(err),
			zap.Int("chars", len(normalized)),
		)
		return FallbackVector(normalized, s.dimensions)
	}
	return vec
}

// EmbedStrict is Embed without the fallback. The background worker uses it so a
// failed call is retried instead of persisting a placeholder vector.
func (s *EmbeddingService) EmbedStrict(ctx context.Context, text string) ([]float32, error) {
	return s.lookup(ctx, NormalizeEmbeddingText(text, s.maxChars))
}

func (s *EmbeddingService) lookup(ctx context.Context, normalized string) ([]float32, error) {
	if normalized == "" {
		return nil, fmt.Errorf("nothing to embed")
	}

	key := cacheKey(normalized)
	if vec, ok := s.cache.Get(key); ok {
		return vec, nil
	}

	if s.client == nil {
		return nil, fmt.Errorf("embedding client not configured")
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	vec, err := s.client.GenerateEmbedding(callCtx, normalized)
	if err != nil {
		return nil, err
	}
	if len(vec) != s.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), s.dimensions)
	}

	s.cache.Put(key, vec)
	return vec, nil
}

// NormalizeEmbeddingText trims, collapses whitespace, lowercases and truncates text.
func NormalizeEmbeddingText(text string, maxChars int) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	truncated, _ := truncateRunes(lower(collapsed), maxChars)
	return strings.TrimSpace(truncated)
}

func cacheKey(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// FallbackVector derives a unit-length vector from the hash of text. Equal inputs give equal vectors.
func FallbackVector(text string, dimensions int) []float32 {
	if dimensions <= 0 {
		return nil
	}
	sum := sha256.Sum256([]byte(text))
	rng := rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[0:8]), binary.LittleEndian.Uint64(sum[8:16])))

	vec := make([]float32, dimensions)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	return normalizeVector(vec)
}

// FragmentEmbeddingRepository defines the repository interface for fragment embedding updates
type FragmentEmbeddingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeFragment, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// FragmentEmbedder refreshes stored fragment embeddings. It is driven by the embedding job worker.
type FragmentEmbedder struct {
	embeddings *EmbeddingService
	repo       FragmentEmbeddingRepository
}

func NewFragmentEmbedder(embeddings *EmbeddingService, repo FragmentEmbeddingRepository) *FragmentEmbedder {
	return &FragmentEmbedder{embeddings: embeddings, repo: repo}
}

// GenerateEmbedding generates and stores an embedding for the given fragment ID
func (e *FragmentEmbedder) GenerateEmbedding(ctx context.Context, fragmentID string) error {
	fragment, err := e.repo.GetByID(ctx, fragmentID)
	if err != nil {
		return err
	}

	embedding, err := e.embeddings.EmbedStrict(ctx, buildEmbeddingText(fragment))
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := e.repo.UpdateEmbedding(ctx, fragmentID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	return nil
}

func buildEmbeddingText(f *domain.KnowledgeFragment) string {
	var parts []string
	if f.SourceTitle != "" {
		parts = append(parts, f.SourceTitle)
	}
	if f.Content != "" {
		parts = append(parts, f.Content)
	}
	return strings.Join(parts, "\n\n")
}

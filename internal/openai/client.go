// Package openai computes text embeddings through the OpenAI embeddings endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cloo-solutions/quizforge/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultEmbeddingModel      = openai.AdaEmbeddingV2
	DefaultEmbeddingDimensions = 1536
	// DefaultMaxInputChars keeps requests well under the endpoint's token limit.
	DefaultMaxInputChars = 8000

	serviceName = "embedding"
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrNoAPIKey        = errors.New("QUIZFORGE_OPENAI_API_KEY environment variable not set")
	ErrNoData          = errors.New("no embedding data returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client validates inputs and outputs around an EmbeddingAPI.
type Client struct {
	api           EmbeddingAPI
	dimensions    int
	maxInputChars int
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoData
	}

	return resp.Data[0].Embedding, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
	MaxInputChars       int
}

func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

func NewClientWithConfig(cfg Config) *Client {
	return newClient(NewOpenAIAdapter(cfg.APIKey, openai.EmbeddingModel(cfg.EmbeddingModel)), cfg)
}

// NewClientWithAPI wires a custom EmbeddingAPI, used by tests and alternative backends.
func NewClientWithAPI(api EmbeddingAPI, cfg Config) *Client {
	return newClient(api, cfg)
}

func newClient(api EmbeddingAPI, cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	maxInput := cfg.MaxInputChars
	if maxInput <= 0 {
		maxInput = DefaultMaxInputChars
	}
	return &Client{api: api, dimensions: dimensions, maxInputChars: maxInput}
}

// NewClientFromEnv creates a client from QUIZFORGE_OPENAI_API_KEY.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("QUIZFORGE_OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

func (c *Client) Dimensions() int {
	return c.dimensions
}

// GenerateEmbedding embeds text truncated to the input limit. Endpoint failures
// are returned as *domain.TransportError.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	if runes := []rune(text); len(runes) > c.maxInputChars {
		text = string(runes[:c.maxInputChars])
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, &domain.TransportError{Service: serviceName, Err: fmt.Errorf("failed to create embedding: %w", err)}
	}

	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(embedding), c.dimensions)
	}

	return embedding, nil
}

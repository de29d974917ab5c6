// Package gemini sends quiz prompts to the Gemini generateContent endpoint.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/cloo-solutions/quizforge/internal/domain"
	"github.com/cloo-solutions/quizforge/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"
	serviceName  = "generation"
)

var ErrNoAPIKey = errors.New("gemini API key is required")

// ContentAPI is the subset of genai.Models the client needs.
type ContentAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	api      ContentAPI
	model    string
	pipeline config.Pipeline
	logger   *zap.Logger
}

// NewClient creates a Gemini API backed client.
func NewClient(ctx context.Context, apiKey, model string, pipeline config.Pipeline, log *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return NewClientWithAPI(gc.Models, model, pipeline, log), nil
}

func NewClientWithAPI(api ContentAPI, model string, pipeline config.Pipeline, log *zap.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		api:      api,
		model:    model,
		pipeline: pipeline,
		logger:   logger.OrNop(log).Named("gemini"),
	}
}

func (c *Client) Model() string {
	return c.model
}

// Generate returns the raw model text for prompt. Failures are *domain.GenerationError
// for blocked or empty answers and *domain.TransportError for everything the SDK reports.
func (c *Client) Generate(ctx context.Context, prompt string, questionCount int) (string, error) {
	if c.pipeline.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.pipeline.GenerationTimeout)
		defer cancel()
	}

	resp, err := c.api.GenerateContent(ctx, c.model, genai.Text(prompt), c.requestConfig(questionCount))
	if err != nil {
		return "", &domain.TransportError{Service: serviceName, Err: err}
	}
	if resp == nil {
		return "", &domain.GenerationError{Reason: domain.GenerationEmptyPayload, Detail: "nil response"}
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", &domain.GenerationError{
			Reason: domain.GenerationSafetyBlocked,
			Detail: fmt.Sprintf("prompt blocked: %s", fb.BlockReason),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", &domain.GenerationError{Reason: domain.GenerationEmptyPayload, Detail: "no candidates"}
	}
	candidate := resp.Candidates[0]

	switch candidate.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
		return "", &domain.GenerationError{
			Reason: domain.GenerationSafetyBlocked,
			Detail: fmt.Sprintf("finish reason %s", candidate.FinishReason),
		}
	case genai.FinishReasonMaxTokens:
		c.logger.Warn("generation truncated at token budget",
			zap.Int("question_count", questionCount),
			zap.Int32("max_output_tokens", c.pipeline.MaxOutputTokens(questionCount)),
		)
	}

	if candidate.Content == nil || len(candidate.Content.Parts) == 0 || candidate.Content.Parts[0] == nil {
		return "", &domain.GenerationError{Reason: domain.GenerationEmptyPayload, Detail: "candidate has no parts"}
	}

	text := candidate.Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", &domain.GenerationError{Reason: domain.GenerationEmptyPayload, Detail: "empty text part"}
	}

	c.logger.Debug("generation completed",
		zap.String("model", c.model),
		zap.Int("chars", len(text)),
		zap.String("finish_reason", string(candidate.FinishReason)),
	)
	return text, nil
}

func (c *Client) requestConfig(questionCount int) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(c.pipeline.Temperature),
		MaxOutputTokens:  c.pipeline.MaxOutputTokens(questionCount),
		ResponseMIMEType: "application/json",
		SafetySettings:   safetySettings(),
	}
}

func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}

	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return settings
}

//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_GenerateEmbedding_RealAPI(t *testing.T) {
	apiKey := os.Getenv("QUIZFORGE_OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("QUIZFORGE_OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)

	embedding, err := client.GenerateEmbedding(context.Background(), "Gradient descent minimizes a loss function.")

	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)
}

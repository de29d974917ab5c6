package service

import (
	"strings"
	"testing"

	"github.com/cloo-solutions/quizforge/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestChunkText_ShortTextIsOneChunk(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, chunkText("  hello world  ", config.DefaultPipeline().Chunk))
	assert.Nil(t, chunkText("   ", config.DefaultPipeline().Chunk))
}

func TestChunkText_SplitsOnWhitespaceWithOverlap(t *testing.T) {
	cfg := config.Chunk{MaxChars: 20, MinChars: 5, Overlap: 5, MaxChunks: 10}
	text := strings.Repeat("word ", 12)

	chunks := chunkText(text, cfg)

	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars)
		assert.False(t, strings.HasPrefix(c, "ord"), "chunk %q starts mid-word", c)
	}
}

func TestChunkText_RespectsMaxChunks(t *testing.T) {
	cfg := config.Chunk{MaxChars: 10, MinChars: 2, Overlap: 0, MaxChunks: 3}

	chunks := chunkText(strings.Repeat("abcd ", 50), cfg)

	assert.Len(t, chunks, 3)
}

func TestChunkText_ZeroConfigUsesDefaults(t *testing.T) {
	chunks := chunkText(strings.Repeat("x", 100), config.Chunk{})

	assert.Equal(t, []string{strings.Repeat("x", 100)}, chunks)
}

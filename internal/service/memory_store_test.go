package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmbedder struct {
	calls []string
}

func (e *recordingEmbedder) Embed(_ context.Context, text string) []float32 {
	e.calls = append(e.calls, text)
	if text == "Intro\n\nalpha" {
		return []float32{1, 0}
	}
	return []float32{0, 1}
}

func TestMemoryFragmentStore_AddReplacesAndKeepsOrder(t *testing.T) {
	store := NewMemoryFragmentStore(nil)
	store.Add(fragment("b", "first"), fragment("a", "second"))
	store.Add(fragment("b", "replaced"), nil)

	require.Equal(t, 2, store.Len())
	list := store.List("", 0)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "replaced", list[0].Content)

	got, ok := store.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "second", got.Content)
	assert.Len(t, store.List("", 1), 1)
}

func TestMemoryFragmentStore_VectorSearchEmbedsLazily(t *testing.T) {
	embedder := &recordingEmbedder{}
	store := NewMemoryFragmentStore(embedder)
	store.Add(fragment("x", "alpha"), fragment("y", "beta"))
	ctx := context.Background()

	results, err := store.VectorSearch(ctx, []float32{1, 0}, "", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "x", results[0].Fragment.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)

	_, err = store.VectorSearch(ctx, []float32{1, 0}, "", 1)
	require.NoError(t, err)
	assert.Len(t, embedder.calls, 2, "embeddings are computed once per fragment")
}

func TestMemoryFragmentStore_FindByTag(t *testing.T) {
	store := NewMemoryFragmentStore(nil)
	store.Add(fragment("x", "alpha", "Vision"), fragment("y", "beta", "nlp"))

	found, err := store.FindByTag(context.Background(), "VISION", "", 5)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "x", found[0].ID)

	none, err := store.FindByTag(context.Background(), " ", "", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

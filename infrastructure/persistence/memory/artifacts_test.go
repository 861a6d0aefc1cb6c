package memory

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entstore/domain/core/entities"
	"entstore/infrastructure/embedding"
	pkgerrors "entstore/pkg/errors"
)

// countingEmbedder wraps the mock and counts EmbedTexts calls.
type countingEmbedder struct {
	inner *embedding.MockProvider
	calls atomic.Int64
}

func (c *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	c.calls.Add(1)
	return c.inner.EmbedTexts(ctx, texts)
}

func TestAutoEmbedOnCreate(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "hello"})
	require.NoError(t, err)

	a, err := p.GetArtifact(ctx, "Post/p1", entities.KindEmbedding)
	require.NoError(t, err)
	assert.Equal(t, embedding.ContentHash("hello"), a.SourceHash)
	vec, ok := a.Content.([]float64)
	require.True(t, ok)
	assert.Len(t, vec, embedding.DefaultDimensions)
}

func TestAutoEmbedSkipsUnchangedContent(t *testing.T) {
	emb := &countingEmbedder{inner: embedding.NewMockProvider(0)}
	p := New(Options{Namespace: "test", Embedder: emb})
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "stable text"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), emb.calls.Load())

	// A patch that leaves the embeddable text unchanged skips the embed.
	_, err = p.Update(ctx, "Post", "p1", map[string]interface{}{"views": 5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), emb.calls.Load())

	_, err = p.Update(ctx, "Post", "p1", map[string]interface{}{"title": "changed text"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), emb.calls.Load())
}

func TestEmbedPolicyDisabledType(t *testing.T) {
	p := New(Options{
		Namespace:  "test",
		EmbedTypes: map[string]EmbedTypeConfig{"Secret": {Enabled: false}},
	})
	ctx := context.Background()

	_, err := p.Create(ctx, "Secret", "s1", map[string]interface{}{"body": "classified"})
	require.NoError(t, err)

	_, err = p.GetArtifact(ctx, "Secret/s1", entities.KindEmbedding)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestEmbedPolicyConfiguredFields(t *testing.T) {
	emb := &countingEmbedder{inner: embedding.NewMockProvider(0)}
	p := New(Options{
		Namespace:  "test",
		Embedder:   emb,
		EmbedTypes: map[string]EmbedTypeConfig{"Post": {Enabled: true, Fields: []string{"title"}}},
	})
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "the title", "body": "the body"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), emb.calls.Load())

	a, err := p.GetArtifact(ctx, "Post/p1", entities.KindEmbedding)
	require.NoError(t, err)
	assert.Equal(t, embedding.ContentHash("the title"), a.SourceHash)

	// Changing an unconfigured field does not re-embed.
	_, err = p.Update(ctx, "Post", "p1", map[string]interface{}{"body": "revised body"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), emb.calls.Load())
}

func TestUpdateInvalidatesNonEmbeddingArtifacts(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "v1"})
	require.NoError(t, err)
	_, err = p.SetArtifact(ctx, "Post/p1", "summary", "a summary", nil)
	require.NoError(t, err)

	_, err = p.Update(ctx, "Post", "p1", map[string]interface{}{"title": "v2"})
	require.NoError(t, err)

	_, err = p.GetArtifact(ctx, "Post/p1", "summary")
	assert.True(t, pkgerrors.IsNotFound(err))

	// The embedding survives and tracks the new content.
	a, err := p.GetArtifact(ctx, "Post/p1", entities.KindEmbedding)
	require.NoError(t, err)
	assert.Equal(t, embedding.ContentHash("v2"), a.SourceHash)
}

func TestSetGetDeleteArtifact(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.SetArtifact(ctx, "Post/p1", "render", "<html>", map[string]interface{}{"format": "html"})
	require.NoError(t, err)
	_, err = p.SetArtifact(ctx, "Post/p1", "summary", "short", nil)
	require.NoError(t, err)

	a, err := p.GetArtifact(ctx, "Post/p1", "render")
	require.NoError(t, err)
	assert.Equal(t, "<html>", a.Content)
	assert.Equal(t, "html", a.Metadata["format"])

	// Overwrite keeps the key, replaces the content.
	_, err = p.SetArtifact(ctx, "Post/p1", "render", "<html v2>", nil)
	require.NoError(t, err)
	a, err = p.GetArtifact(ctx, "Post/p1", "render")
	require.NoError(t, err)
	assert.Equal(t, "<html v2>", a.Content)

	all, err := p.ListArtifacts(ctx, "Post/p1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := p.DeleteArtifact(ctx, "Post/p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = p.GetArtifact(ctx, "Post/p1", "render")
	assert.True(t, pkgerrors.IsNotFound(err))
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entstore/application/ports"
)

func TestSemanticSearchRanksIdenticalTextFirst(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Doc", "d1", map[string]interface{}{"title": "quantum computing basics"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Doc", "d2", map[string]interface{}{"title": "gardening for beginners"})
	require.NoError(t, err)

	hits, err := p.SemanticSearch(ctx, "Doc", "quantum computing basics", ports.SemanticSearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "d1", hits[0]["$id"])
	assert.InDelta(t, 1.0, hits[0]["$score"].(float64), 1e-9)
}

func TestSemanticSearchMinScore(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Doc", "d1", map[string]interface{}{"title": "exact match text"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Doc", "d2", map[string]interface{}{"title": "entirely unrelated"})
	require.NoError(t, err)

	hits, err := p.SemanticSearch(ctx, "Doc", "exact match text", ports.SemanticSearchOptions{MinScore: 0.9})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0]["$id"])
}

// fusedEmbedder supplies its own embed-and-rank implementation. It
// ranks items in reverse insertion order so tests can tell its output
// apart from the cosine loop's.
type fusedEmbedder struct {
	finds int
}

func (f *fusedEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

func (f *fusedEmbedder) FindSimilar(_ context.Context, _ string, _ [][]float64, items []interface{}, _ ports.SimilarOptions) ([]ports.SimilarMatch, error) {
	f.finds++
	out := make([]ports.SimilarMatch, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, ports.SimilarMatch{Item: items[i], Index: i, Score: float64(len(items)-len(out)) / float64(len(items)+1)})
	}
	return out, nil
}

func TestSemanticSearchUsesFusedFinder(t *testing.T) {
	emb := &fusedEmbedder{}
	p := New(Options{Namespace: "test", Embedder: emb})
	ctx := context.Background()

	_, err := p.Create(ctx, "Doc", "d1", map[string]interface{}{"title": "first"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Doc", "d2", map[string]interface{}{"title": "second"})
	require.NoError(t, err)

	hits, err := p.SemanticSearch(ctx, "Doc", "anything", ports.SemanticSearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, emb.finds)

	// The finder's ordering comes through untouched.
	assert.Equal(t, "d2", hits[0]["$id"])
	assert.Equal(t, "d1", hits[1]["$id"])
	assert.Greater(t, hits[0]["$score"].(float64), hits[1]["$score"].(float64))
}

func TestHybridSearchFusesRanks(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Doc", "d1", map[string]interface{}{"title": "quantum computing basics"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Doc", "d2", map[string]interface{}{"title": "cooking with herbs"})
	require.NoError(t, err)

	hits, err := p.HybridSearch(ctx, "Doc", "quantum computing basics", ports.HybridSearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	top := hits[0]
	assert.Equal(t, "d1", top["$id"])
	assert.Equal(t, 1, top["$ftsRank"])
	assert.Equal(t, 1, top["$semanticRank"])
	// Rank 1 in both lists with k=60 and equal weights.
	assert.InDelta(t, 0.5/61.0+0.5/61.0, top["$rrfScore"].(float64), 1e-9)

	// Anything ranked worse in both lists scores strictly lower.
	for _, h := range hits[1:] {
		assert.Less(t, h["$rrfScore"].(float64), top["$rrfScore"].(float64))
	}
}

func TestHybridSearchFTSOnlyHitHasNoScore(t *testing.T) {
	p := New(Options{
		Namespace:  "test",
		EmbedTypes: map[string]EmbedTypeConfig{"Doc": {Enabled: false}},
	})
	ctx := context.Background()

	_, err := p.Create(ctx, "Doc", "d1", map[string]interface{}{"title": "quantum computing"})
	require.NoError(t, err)

	hits, err := p.HybridSearch(ctx, "Doc", "quantum", ports.HybridSearchOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	// Without an embedding the hit ranks by FTS alone; the substring
	// score must not masquerade as a semantic one.
	assert.Equal(t, 1, hits[0]["$ftsRank"])
	assert.NotContains(t, hits[0], "$semanticRank")
	assert.NotContains(t, hits[0], "$score")
	assert.Contains(t, hits[0], "$rrfScore")
}

func TestHybridSearchPagination(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	for _, id := range []string{"d1", "d2", "d3"} {
		_, err := p.Create(ctx, "Doc", id, map[string]interface{}{"title": "shared topic " + id})
		require.NoError(t, err)
	}

	all, err := p.HybridSearch(ctx, "Doc", "shared topic", ports.HybridSearchOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	page, err := p.HybridSearch(ctx, "Doc", "shared topic", ports.HybridSearchOptions{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, all[1]["$id"], page[0]["$id"])
}

func TestUnionSearchOrderedFallback(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Person", "p1", map[string]interface{}{"name": "unrelated person"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Team", "t1", map[string]interface{}{"name": "platform infrastructure team"})
	require.NoError(t, err)

	types := []string{"Person", "Team", "Org"}
	res, err := p.UnionSearch(ctx, types, "platform infrastructure team", ports.UnionSearchOptions{MinScore: 0.9})
	require.NoError(t, err)

	assert.Equal(t, "Team", res.MatchedType)
	assert.True(t, res.FallbackTriggered)
	assert.Equal(t, []string{"Person", "Team"}, res.SearchedTypes)
	assert.Equal(t, []string{"Person", "Team", "Org"}, res.SearchOrder)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "t1", res.Results[0]["$id"])

	// The caller's slice is never mutated.
	assert.Equal(t, []string{"Person", "Team", "Org"}, types)
}

func TestUnionSearchAllTypesExhausted(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Person", "p1", map[string]interface{}{"name": "someone"})
	require.NoError(t, err)

	res, err := p.UnionSearch(ctx, []string{"Person", "Team"}, "no such thing anywhere",
		ports.UnionSearchOptions{MinScore: 1.1, Debug: true})
	require.NoError(t, err)

	assert.True(t, res.AllTypesExhausted)
	assert.Empty(t, res.Results)
	assert.Empty(t, res.MatchedType)
	// Debug mode surfaces the near misses.
	assert.NotEmpty(t, res.BelowThresholdMatches)
}

func TestUnionSearchParallelReturnAll(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Person", "p1", map[string]interface{}{"name": "release manager"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Team", "t1", map[string]interface{}{"name": "release manager"})
	require.NoError(t, err)

	res, err := p.UnionSearch(ctx, []string{"Person", "Team"}, "release manager", ports.UnionSearchOptions{
		Mode:      ports.UnionParallel,
		MinScore:  0.9,
		ReturnAll: true,
	})
	require.NoError(t, err)
	assert.Len(t, res.Results, 2)
	assert.Equal(t, []string{"Person", "Team"}, res.SearchedTypes)
}

func TestUnionSearchParallelSingleBest(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Person", "p1", map[string]interface{}{"name": "exact query text"})
	require.NoError(t, err)
	_, err = p.Create(ctx, "Team", "t1", map[string]interface{}{"name": "something different"})
	require.NoError(t, err)

	res, err := p.UnionSearch(ctx, []string{"Team", "Person"}, "exact query text", ports.UnionSearchOptions{
		Mode:     ports.UnionParallel,
		MinScore: 0.9,
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Person", res.MatchedType)
	assert.Equal(t, "p1", res.Results[0]["$id"])
}

func TestUnionSearchRequiresTypes(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.UnionSearch(context.Background(), nil, "q", ports.UnionSearchOptions{})
	assert.Error(t, err)
}

package memory

import (
	"context"
	"fmt"
	"sort"

	"entstore/application/ports"
	"entstore/domain/core/entities"
	"entstore/domain/core/validators"
	"entstore/infrastructure/embedding"
	"entstore/pkg/concurrency"
	pkgerrors "entstore/pkg/errors"
)

const defaultSearchLimit = 10

// SemanticSearch ranks the type's entities against the query by their
// stored embeddings. A backend implementing SimilarFinder handles the
// embed-and-rank in one fused call; otherwise the query is embedded
// here and scored by cosine similarity.
func (p *Provider) SemanticSearch(ctx context.Context, typeName, query string, opts ports.SemanticSearchOptions) ([]ports.Projection, error) {
	if err := validators.TypeName(typeName); err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	p.mu.RLock()
	var records []*entities.Record
	var vectors [][]float64
	for _, rec := range p.snapshotType(typeName) {
		vec := p.embeddingLocked(entities.ArtifactURL(typeName, rec.ID))
		if vec == nil {
			continue
		}
		records = append(records, rec)
		vectors = append(vectors, vec)
	}
	p.mu.RUnlock()

	if finder, ok := p.embedder.(ports.SimilarFinder); ok {
		return p.semanticViaFinder(ctx, finder, query, records, vectors, opts.MinScore, limit)
	}

	var queryVecs [][]float64
	err := p.limiter.Run(ctx, func() error {
		var embedErr error
		queryVecs, embedErr = p.embedder.EmbedTexts(ctx, []string{query})
		return embedErr
	})
	if err != nil {
		return nil, pkgerrors.NewEmbeddingBackendError(err)
	}
	if len(queryVecs) == 0 {
		return nil, pkgerrors.NewEmbeddingBackendError(fmt.Errorf("empty embedding result"))
	}
	queryVec := queryVecs[0]

	type hit struct {
		rec   *entities.Record
		score float64
	}
	var hits []hit
	for i, rec := range records {
		score := p.similarity(queryVec, vectors[i])
		if score < opts.MinScore {
			continue
		}
		hits = append(hits, hit{rec: rec, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]ports.Projection, len(hits))
	for i, h := range hits {
		proj := h.rec.Projection()
		proj[entities.KeyScore] = h.score
		out[i] = proj
	}
	return out, nil
}

// semanticViaFinder delegates the whole query to the backend's fused
// implementation and maps matches back to records by index.
func (p *Provider) semanticViaFinder(ctx context.Context, finder ports.SimilarFinder, query string, records []*entities.Record, vectors [][]float64, minScore float64, limit int) ([]ports.Projection, error) {
	items := make([]interface{}, len(records))
	for i, rec := range records {
		items[i] = rec
	}

	var matches []ports.SimilarMatch
	err := p.limiter.Run(ctx, func() error {
		var findErr error
		matches, findErr = finder.FindSimilar(ctx, query, vectors, items, ports.SimilarOptions{
			TopK:     limit,
			MinScore: minScore,
		})
		return findErr
	})
	if err != nil {
		return nil, pkgerrors.NewEmbeddingBackendError(err)
	}

	out := make([]ports.Projection, 0, len(matches))
	for _, m := range matches {
		if m.Index < 0 || m.Index >= len(records) {
			continue
		}
		proj := records[m.Index].Projection()
		proj[entities.KeyScore] = m.Score
		out = append(out, proj)
	}
	return out, nil
}

// similarity defers to the embedder's scorer when it provides one.
func (p *Provider) similarity(a, b []float64) float64 {
	if scorer, ok := p.embedder.(ports.SimilarityScorer); ok {
		return scorer.CosineSimilarity(a, b)
	}
	return embedding.CosineSimilarity(a, b)
}

// HybridSearch fuses substring and semantic ranks with reciprocal rank
// fusion: w_fts/(k+ftsRank) + w_sem/(k+semRank). A missing rank
// contributes nothing.
func (p *Provider) HybridSearch(ctx context.Context, typeName, query string, opts ports.HybridSearchOptions) ([]ports.Projection, error) {
	if err := validators.TypeName(typeName); err != nil {
		return nil, err
	}

	k := opts.K
	if k == 0 {
		k = ports.DefaultRRFK
	}
	wFTS := opts.FTSWeight
	if wFTS == 0 {
		wFTS = ports.DefaultRRFFTSWeight
	}
	wSem := opts.SemWeight
	if wSem == 0 {
		wSem = ports.DefaultRRFSemWeight
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	ftsResults, err := p.Search(ctx, typeName, query, ports.SearchOptions{})
	if err != nil {
		return nil, err
	}
	// Overfetch semantic candidates so pagination stays stable.
	semResults, err := p.SemanticSearch(ctx, typeName, query, ports.SemanticSearchOptions{
		Limit: 2 * (limit + opts.Offset),
	})
	if err != nil {
		return nil, err
	}

	type fused struct {
		proj     ports.Projection
		rrf      float64
		ftsRank  int // 1-based, 0 when absent
		semRank  int
		semScore float64
	}
	byID := make(map[string]*fused)
	var order []string

	for i, proj := range ftsResults {
		id := proj[entities.KeyID].(string)
		byID[id] = &fused{proj: proj, ftsRank: i + 1}
		order = append(order, id)
	}
	for i, proj := range semResults {
		id := proj[entities.KeyID].(string)
		f := byID[id]
		if f == nil {
			f = &fused{proj: proj}
			byID[id] = f
			order = append(order, id)
		}
		f.semRank = i + 1
		if s, ok := proj[entities.KeyScore].(float64); ok {
			f.semScore = s
		}
	}

	results := make([]*fused, 0, len(order))
	for _, id := range order {
		f := byID[id]
		if f.ftsRank > 0 {
			f.rrf += wFTS / (k + float64(f.ftsRank))
		}
		if f.semRank > 0 {
			f.rrf += wSem / (k + float64(f.semRank))
		}
		if f.rrf < opts.MinScore {
			continue
		}
		results = append(results, f)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].rrf > results[j].rrf })

	if opts.Offset > 0 {
		if opts.Offset >= len(results) {
			results = nil
		} else {
			results = results[opts.Offset:]
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]ports.Projection, len(results))
	for i, f := range results {
		proj := f.proj
		proj[entities.KeyRRFScore] = f.rrf
		if f.ftsRank > 0 {
			proj[entities.KeyFTSRank] = f.ftsRank
		}
		if f.semRank > 0 {
			proj[entities.KeySemanticRank] = f.semRank
			proj[entities.KeyScore] = f.semScore
		} else {
			// $score in a hybrid projection is the semantic score; an
			// FTS-only hit must not leak its substring score.
			delete(proj, entities.KeyScore)
		}
		out[i] = proj
	}
	return out, nil
}

// UnionSearch implements fallback search over a union type list. The
// input slice is never mutated.
func (p *Provider) UnionSearch(ctx context.Context, types []string, query string, opts ports.UnionSearchOptions) (*ports.UnionSearchResult, error) {
	if len(types) == 0 {
		return nil, pkgerrors.NewValidationError("union search requires at least one type")
	}
	searchOrder := make([]string, len(types))
	copy(searchOrder, types)
	for _, t := range searchOrder {
		if err := validators.TypeName(t); err != nil {
			return nil, err
		}
	}

	if opts.Mode == ports.UnionParallel {
		return p.unionParallel(ctx, searchOrder, query, opts)
	}
	return p.unionOrdered(ctx, searchOrder, query, opts)
}

func (p *Provider) thresholdFor(t string, opts ports.UnionSearchOptions) float64 {
	if s, ok := opts.TypeMinScores[t]; ok {
		return s
	}
	return opts.MinScore
}

func (p *Provider) unionOrdered(ctx context.Context, searchOrder []string, query string, opts ports.UnionSearchOptions) (*ports.UnionSearchResult, error) {
	res := &ports.UnionSearchResult{SearchOrder: searchOrder}

	for i, t := range searchOrder {
		res.SearchedTypes = append(res.SearchedTypes, t)

		// Search unthresholded so near misses are available for debug.
		hits, err := p.SemanticSearch(ctx, t, query, ports.SemanticSearchOptions{Limit: opts.Limit})
		if err != nil {
			return nil, err
		}
		threshold := p.thresholdFor(t, opts)
		var meeting []ports.Projection
		for _, h := range hits {
			if score, ok := h[entities.KeyScore].(float64); ok && score >= threshold {
				meeting = append(meeting, h)
			} else if opts.Debug {
				res.BelowThresholdMatches = append(res.BelowThresholdMatches, h)
			}
		}
		if len(meeting) > 0 {
			res.Results = meeting
			res.MatchedType = t
			res.FallbackTriggered = i > 0
			return res, nil
		}
	}

	res.AllTypesExhausted = true
	return res, nil
}

func (p *Provider) unionParallel(ctx context.Context, searchOrder []string, query string, opts ports.UnionSearchOptions) (*ports.UnionSearchResult, error) {
	res := &ports.UnionSearchResult{
		SearchOrder:   searchOrder,
		SearchedTypes: searchOrder,
	}

	type typeResult struct {
		typeName string
		hits     []ports.Projection
		err      error
	}
	results, err := concurrency.Map(ctx, p.limiter, searchOrder, func(ctx context.Context, t string) (typeResult, error) {
		hits, searchErr := p.SemanticSearch(ctx, t, query, ports.SemanticSearchOptions{
			MinScore: p.thresholdFor(t, opts),
			Limit:    opts.Limit,
		})
		if searchErr != nil {
			if opts.OnError == ports.UnionErrorFail {
				return typeResult{}, searchErr
			}
			return typeResult{typeName: t, err: searchErr}, nil
		}
		return typeResult{typeName: t, hits: hits}, nil
	})
	if err != nil {
		return nil, err
	}

	var merged []ports.Projection
	for _, tr := range results {
		if tr.err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", tr.typeName, tr.err))
			continue
		}
		merged = append(merged, tr.hits...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		si, _ := merged[i][entities.KeyScore].(float64)
		sj, _ := merged[j][entities.KeyScore].(float64)
		return si > sj
	})

	if len(merged) == 0 {
		res.AllTypesExhausted = true
		return res, nil
	}
	if opts.ReturnAll {
		res.Results = merged
	} else {
		res.Results = merged[:1]
		if t, ok := merged[0][entities.KeyType].(string); ok {
			res.MatchedType = t
		}
	}
	return res, nil
}

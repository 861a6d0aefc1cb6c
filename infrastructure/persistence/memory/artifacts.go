package memory

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"entstore/domain/core/entities"
	"entstore/infrastructure/embedding"
	pkgerrors "entstore/pkg/errors"
)

// GetArtifact returns the artifact for (url, kind), or NOT_FOUND.
func (p *Provider) GetArtifact(_ context.Context, url, kind string) (*entities.Artifact, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if kinds := p.artifacts[url]; kinds != nil {
		if a := kinds[kind]; a != nil {
			return cloneArtifact(a), nil
		}
	}
	return nil, pkgerrors.NewNotFoundError("artifact " + url + "#" + kind)
}

// SetArtifact stores or overwrites the artifact for (url, kind).
func (p *Provider) SetArtifact(_ context.Context, url, kind string, content interface{}, meta map[string]interface{}) (*entities.Artifact, error) {
	if url == "" || kind == "" {
		return nil, pkgerrors.NewValidationError("artifact url and kind must not be empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	a := p.setArtifactLocked(url, kind, content, "")
	if meta != nil {
		a.Metadata = meta
	}
	return cloneArtifact(a), nil
}

// DeleteArtifact removes all kinds scoped to the url and reports how
// many were removed.
func (p *Provider) DeleteArtifact(_ context.Context, url string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.artifacts[url])
	delete(p.artifacts, url)
	return n, nil
}

// ListArtifacts returns the artifacts scoped to the url, every kind of
// it when the url carries no "#kind" suffix.
func (p *Provider) ListArtifacts(_ context.Context, url string) ([]*entities.Artifact, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	kinds := p.artifacts[url]
	out := make([]*entities.Artifact, 0, len(kinds))
	for _, a := range kinds {
		out = append(out, cloneArtifact(a))
	}
	return out, nil
}

func (p *Provider) setArtifactLocked(url, kind string, content interface{}, sourceHash string) *entities.Artifact {
	kinds := p.artifacts[url]
	if kinds == nil {
		kinds = make(map[string]*entities.Artifact)
		p.artifacts[url] = kinds
	}
	a := kinds[kind]
	if a == nil {
		a = entities.NewArtifact(url, kind, content)
		a.SourceHash = sourceHash
		kinds[kind] = a
		return a
	}
	a.Touch(content, sourceHash)
	return a
}

// invalidateArtifactsLocked drops every artifact of the entity except
// its embedding, which update regenerates explicitly.
func (p *Provider) invalidateArtifactsLocked(url string) {
	kinds := p.artifacts[url]
	for kind := range kinds {
		if kind != entities.KindEmbedding {
			delete(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		delete(p.artifacts, url)
	}
}

// embeddingLocked returns the stored embedding vector of an entity, or
// nil. Callers hold at least the read lock.
func (p *Provider) embeddingLocked(url string) []float64 {
	if kinds := p.artifacts[url]; kinds != nil {
		if a := kinds[entities.KindEmbedding]; a != nil {
			if v, ok := a.Content.([]float64); ok {
				return v
			}
		}
	}
	return nil
}

// autoEmbed runs the automatic embedding policy for a freshly written
// record: consult per-type config, extract the embeddable text, skip
// when the content hash is unchanged, then store the vector as the
// embedding artifact. Runs outside the write lock; the embed call is
// bounded by the limiter.
func (p *Provider) autoEmbed(ctx context.Context, rec *entities.Record) {
	text := p.embeddableText(rec)
	if text == "" {
		return
	}

	url := entities.ArtifactURL(rec.Type, rec.ID)
	hash := embedding.ContentHash(text)

	p.mu.RLock()
	var previousHash string
	if kinds := p.artifacts[url]; kinds != nil {
		if a := kinds[entities.KindEmbedding]; a != nil {
			previousHash = a.SourceHash
		}
	}
	p.mu.RUnlock()
	if previousHash == hash {
		return
	}

	var vectors [][]float64
	err := p.limiter.Run(ctx, func() error {
		var embedErr error
		vectors, embedErr = p.embedder.EmbedTexts(ctx, []string{text})
		return embedErr
	})
	if err != nil || len(vectors) == 0 {
		p.logger.Warn("auto-embed failed",
			zap.String("entity", url),
			zap.Error(err))
		return
	}
	p.metrics.EmbeddingCall("embedder")

	p.mu.Lock()
	p.setArtifactLocked(url, entities.KindEmbedding, vectors[0], hash)
	p.mu.Unlock()
}

// embeddableText concatenates the configured fields of the record, or
// all text-like fields when the type has no explicit field list.
func (p *Provider) embeddableText(rec *entities.Record) string {
	cfg, configured := p.embedTypes[rec.Type]
	if configured && !cfg.Enabled {
		return ""
	}

	var parts []string
	if configured && len(cfg.Fields) > 0 {
		for _, f := range cfg.Fields {
			if s, ok := rec.Fields[f].(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					parts = append(parts, s)
				}
			}
		}
	} else {
		// Auto-detect: every non-empty string field, in a stable order.
		for _, f := range sortedFieldNames(rec.Fields) {
			if s, ok := rec.Fields[f].(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, " ")
}

func sortedFieldNames(fields map[string]interface{}) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func cloneArtifact(a *entities.Artifact) *entities.Artifact {
	c := *a
	return &c
}

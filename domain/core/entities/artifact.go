package entities

import (
	"fmt"
	"time"
)

// KindEmbedding is the artifact kind holding an entity's embedding
// vector. It survives update-time invalidation because it is
// regenerated explicitly after each write.
const KindEmbedding = "embedding"

// Artifact is derived content cached against an entity, keyed by
// (url, kind) where url is "<Type>/<Id>".
type Artifact struct {
	URL        string
	Kind       string
	Content    interface{}
	SourceHash string
	Metadata   map[string]interface{}
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ArtifactURL builds the canonical artifact url for an entity.
func ArtifactURL(typeName, id string) string {
	return fmt.Sprintf("%s/%s", typeName, id)
}

// NewArtifact creates an artifact for the given url and kind.
func NewArtifact(url, kind string, content interface{}) *Artifact {
	now := time.Now()
	return &Artifact{
		URL:       url,
		Kind:      kind,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch overwrites the content and refreshes UpdatedAt.
func (a *Artifact) Touch(content interface{}, sourceHash string) {
	a.Content = content
	a.SourceHash = sourceHash
	a.UpdatedAt = time.Now()
}

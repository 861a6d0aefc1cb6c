// Package ports declares the interfaces between the application core
// and its adapters. The domain never depends on an implementation.
package ports

import (
	"context"

	"entstore/domain/core/entities"
	"entstore/domain/events"
)

// Projection is the outward record shape: entity fields plus $id, $type
// and, for search results, the rank and score keys.
type Projection = map[string]interface{}

// Provider is the public contract of one entity store instance. All
// mutating calls validate their inputs before touching state.
type Provider interface {
	// Entities
	Get(ctx context.Context, typeName, id string) (Projection, error)
	List(ctx context.Context, typeName string, opts ListOptions) ([]Projection, error)
	Create(ctx context.Context, typeName, id string, data map[string]interface{}) (Projection, error)
	Update(ctx context.Context, typeName, id string, data map[string]interface{}) (Projection, error)
	// Delete reports whether the entity existed. A missing entity is
	// not an error.
	Delete(ctx context.Context, typeName, id string) (bool, error)

	// Batches. Inputs longer than the batch limit are rejected before
	// any per-item work begins.
	CreateMany(ctx context.Context, typeName string, items []BatchItem) ([]Projection, error)
	UpdateMany(ctx context.Context, typeName string, items []BatchItem) ([]Projection, error)
	DeleteMany(ctx context.Context, typeName string, ids []string) (int, error)
	PerformMany(ctx context.Context, ops []BatchOp) ([]BatchOpResult, error)

	// Search
	Search(ctx context.Context, typeName, query string, opts SearchOptions) ([]Projection, error)
	SemanticSearch(ctx context.Context, typeName, query string, opts SemanticSearchOptions) ([]Projection, error)
	HybridSearch(ctx context.Context, typeName, query string, opts HybridSearchOptions) ([]Projection, error)
	UnionSearch(ctx context.Context, types []string, query string, opts UnionSearchOptions) (*UnionSearchResult, error)

	// Relations. Related resolves each target to its record projection.
	Relate(ctx context.Context, from EntityRef, relation string, to EntityRef, meta *RelationMeta) error
	Unrelate(ctx context.Context, from EntityRef, relation string, to EntityRef) error
	Related(ctx context.Context, from EntityRef, relation string) ([]Projection, error)

	// Events
	Emit(ctx context.Context, e *events.Event) error
	EmitLegacy(ctx context.Context, name string, data map[string]interface{}) error
	On(pattern string, h events.Handler) events.Unsubscribe
	ListEvents(ctx context.Context, f EventFilter) ([]*events.Event, error)
	ReplayEvents(ctx context.Context, opts ReplayOptions) (int, error)

	// Actions
	CreateAction(ctx context.Context, actor, verb string, p entities.ActionParams) (*entities.Action, error)
	GetAction(ctx context.Context, id string) (*entities.Action, error)
	UpdateAction(ctx context.Context, id string, u ActionUpdate) (*entities.Action, error)
	ListActions(ctx context.Context, f ActionFilter) ([]*entities.Action, error)
	RetryAction(ctx context.Context, id string) (*entities.Action, error)
	CancelAction(ctx context.Context, id string) (*entities.Action, error)

	// Artifacts
	GetArtifact(ctx context.Context, url, kind string) (*entities.Artifact, error)
	SetArtifact(ctx context.Context, url, kind string, content interface{}, meta map[string]interface{}) (*entities.Artifact, error)
	DeleteArtifact(ctx context.Context, url string) (int, error)
	ListArtifacts(ctx context.Context, url string) ([]*entities.Artifact, error)

	// Transactions
	BeginTransaction(ctx context.Context) (Transaction, error)

	// Migrations
	Migrate(ctx context.Context, migrations []Migration, opts MigrateOptions) (*entities.MigrationResult, error)

	// Stats summarizes the provider's in-memory collections.
	Stats(ctx context.Context) (Stats, error)
}

// EntityRef identifies one entity by type and id.
type EntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RelationMeta carries optional match metadata attached to the
// Relation.created event by fuzzy relation resolution.
type RelationMeta struct {
	MatchMode   string  `json:"matchMode,omitempty"`
	Similarity  float64 `json:"similarity,omitempty"`
	MatchedType string  `json:"matchedType,omitempty"`
}

// BatchItem is one entry of createMany or updateMany.
type BatchItem struct {
	ID   string                 `json:"id,omitempty"`
	Data map[string]interface{} `json:"data"`
}

// BatchOpKind enumerates the operations performMany accepts.
type BatchOpKind string

const (
	BatchOpCreate BatchOpKind = "create"
	BatchOpUpdate BatchOpKind = "update"
	BatchOpDelete BatchOpKind = "delete"
)

// BatchOp is one heterogeneous operation in a performMany call.
type BatchOp struct {
	Op   BatchOpKind            `json:"op"`
	Type string                 `json:"type"`
	ID   string                 `json:"id,omitempty"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// BatchOpResult pairs a performMany operation with its outcome.
type BatchOpResult struct {
	Op     BatchOp    `json:"op"`
	Result Projection `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// ActionUpdate is a partial update of a running action. Nil fields are
// left untouched.
type ActionUpdate struct {
	Status   *entities.ActionStatus `json:"status,omitempty"`
	Progress *float64               `json:"progress,omitempty"`
	Total    *float64               `json:"total,omitempty"`
	Result   interface{}            `json:"result,omitempty"`
	Error    *string                `json:"error,omitempty"`
	Meta     map[string]interface{} `json:"meta,omitempty"`
}

// Stats summarizes one provider instance.
type Stats struct {
	Namespace string         `json:"namespace"`
	Entities  map[string]int `json:"entities"`
	Relations int            `json:"relations"`
	Events    int            `json:"events"`
	Actions   int            `json:"actions"`
	Artifacts int            `json:"artifacts"`
}

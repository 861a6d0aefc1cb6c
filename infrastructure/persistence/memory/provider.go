// Package memory implements the provider contract on in-memory
// collections. One provider instance owns one namespace; all mutations
// are serialized behind a single write lock, with embedding and
// subscriber dispatch running outside it.
package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"entstore/application/ports"
	"entstore/domain/core/entities"
	"entstore/domain/events"
	"entstore/domain/schema"
	"entstore/infrastructure/embedding"
	"entstore/pkg/concurrency"
	"entstore/pkg/observability"
)

// EmbedTypeConfig controls the automatic embedding of one entity type.
// Nil Fields means auto-detect text fields.
type EmbedTypeConfig struct {
	Enabled bool
	Fields  []string
}

// Options configures a provider instance.
type Options struct {
	Namespace string
	Schema    *schema.Schema
	Embedder  ports.EmbeddingProvider
	// EmbedTypes overrides the embedding policy per type. Absent types
	// default to enabled with auto-detected fields.
	EmbedTypes map[string]EmbedTypeConfig
	Retention  ports.RetentionPolicy
	Limiter    *concurrency.Limiter
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// typeStore keeps one type's records in insertion order.
type typeStore struct {
	order   []string
	records map[string]*entities.Record
}

func newTypeStore() *typeStore {
	return &typeStore{records: make(map[string]*entities.Record)}
}

// subscription is one pattern-handler binding on the bus.
type subscription struct {
	id      uint64
	pattern string
	handler events.Handler
}

// Provider is the in-memory store. It implements ports.Provider.
type Provider struct {
	mu        sync.RWMutex
	namespace string
	schema    *schema.Schema

	types     map[string]*typeStore
	typeOrder []string

	// "fromType:fromId:relation" -> ordered set of "toType:toId"
	relations map[string]*relationSet

	log    []*events.Event
	subs   []*subscription
	nextID uint64

	actions     map[string]*entities.Action
	actionOrder []string

	// url -> kind -> artifact
	artifacts map[string]map[string]*entities.Artifact

	embedder   ports.EmbeddingProvider
	embedTypes map[string]EmbedTypeConfig
	retention  ports.RetentionPolicy

	limiter *concurrency.Limiter
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New creates a provider. Zero-value options get working defaults: the
// "default" namespace, a mock embedder, a fresh limiter and a nop
// logger.
func New(opts Options) *Provider {
	if opts.Namespace == "" {
		opts.Namespace = "default"
	}
	if opts.Limiter == nil {
		opts.Limiter = concurrency.New(concurrency.DefaultCapacity)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Embedder == nil {
		opts.Embedder = embedding.NewMockProvider(0)
	}
	return &Provider{
		namespace:  opts.Namespace,
		schema:     opts.Schema,
		types:      make(map[string]*typeStore),
		relations:  make(map[string]*relationSet),
		actions:    make(map[string]*entities.Action),
		artifacts:  make(map[string]map[string]*entities.Artifact),
		embedder:   opts.Embedder,
		embedTypes: opts.EmbedTypes,
		retention:  opts.Retention,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Namespace returns the namespace this provider owns.
func (p *Provider) Namespace() string {
	return p.namespace
}

// Schema returns the parsed schema, or nil when running schemaless.
func (p *Provider) Schema() *schema.Schema {
	return p.schema
}

// typeStoreFor returns the store for a type, creating it on first use.
// Callers hold the write lock.
func (p *Provider) typeStoreFor(typeName string) *typeStore {
	ts, ok := p.types[typeName]
	if !ok {
		ts = newTypeStore()
		p.types[typeName] = ts
		p.typeOrder = append(p.typeOrder, typeName)
	}
	return ts
}

// Stats summarizes the in-memory collections.
func (p *Provider) Stats(_ context.Context) (ports.Stats, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := ports.Stats{
		Namespace: p.namespace,
		Entities:  make(map[string]int, len(p.types)),
		Events:    len(p.log),
		Actions:   len(p.actions),
	}
	for _, t := range p.typeOrder {
		s.Entities[t] = len(p.types[t].records)
	}
	for _, set := range p.relations {
		s.Relations += len(set.order)
	}
	for _, kinds := range p.artifacts {
		s.Artifacts += len(kinds)
	}
	return s, nil
}

var _ ports.Provider = (*Provider)(nil)

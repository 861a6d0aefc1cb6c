package memory

import (
	"sort"
	"sync"

	"entstore/domain/core/validators"
)

// ProviderFactory builds the provider for a namespace on first use.
type ProviderFactory func(namespace string) *Provider

// Registry maps namespace ids to provider instances, creating them
// lazily. Providers are never shared across namespaces.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Provider
	factory   ProviderFactory
}

// NewRegistry creates a registry. A nil factory builds providers with
// default options.
func NewRegistry(factory ProviderFactory) *Registry {
	if factory == nil {
		factory = func(namespace string) *Provider {
			return New(Options{Namespace: namespace})
		}
	}
	return &Registry{
		providers: make(map[string]*Provider),
		factory:   factory,
	}
}

// Get returns the provider owning a namespace, creating it on first
// use. Invalid namespace ids are rejected.
func (r *Registry) Get(namespace string) (*Provider, error) {
	if err := validators.Namespace(namespace); err != nil {
		return nil, err
	}

	r.mu.RLock()
	p := r.providers[namespace]
	r.mu.RUnlock()
	if p != nil {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p = r.providers[namespace]; p == nil {
		p = r.factory(namespace)
		r.providers[namespace] = p
	}
	return p, nil
}

// Namespaces lists the namespaces with a live provider, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.providers))
	for ns := range r.providers {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

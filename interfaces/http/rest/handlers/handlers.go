// Package handlers implements the REST endpoints over the entity store.
package handlers

import (
	"net/http"

	"entstore/application/ports"
	"entstore/pkg/common"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// ProviderResolver returns the store instance for a tenant namespace.
type ProviderResolver func(namespace string) (ports.Provider, error)

// resolveProvider picks the provider for the namespace set by the
// namespace middleware.
func resolveProvider(r *http.Request, resolve ProviderResolver) (ports.Provider, error) {
	ns, ok := common.GetNamespace(r.Context())
	if !ok {
		ns = "default"
	}
	return resolve(ns)
}

package middleware

import (
	"net/http"

	"entstore/domain/core/validators"
	"entstore/pkg/common"
)

// NamespaceHeader carries the tenant namespace when the query parameter
// is absent.
const NamespaceHeader = "X-Namespace"

// Namespace resolves the tenant namespace for a request from the "ns"
// query parameter or the X-Namespace header, falling back to the
// configured default. Invalid namespaces are rejected before any
// handler runs.
func Namespace(defaultNamespace string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ns := r.URL.Query().Get("ns")
			if ns == "" {
				ns = r.Header.Get(NamespaceHeader)
			}
			if ns == "" {
				ns = defaultNamespace
			}

			if err := validators.Namespace(ns); err != nil {
				common.RespondAppError(w, err)
				return
			}

			ctx := common.WithNamespace(r.Context(), ns)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

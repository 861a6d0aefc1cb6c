package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"entstore/pkg/common"
)

// AdminHandler handles store introspection HTTP requests
type AdminHandler struct {
	resolve    ProviderResolver
	namespaces func() []string
	logger     *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(resolve ProviderResolver, namespaces func() []string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{resolve: resolve, namespaces: namespaces, logger: logger}
}

// Stats handles GET /stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	stats, err := p.Stats(r.Context())
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, stats)
}

// Namespaces handles GET /namespaces
func (h *AdminHandler) Namespaces(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.namespaces())
}

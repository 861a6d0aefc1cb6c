package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"entstore/application/ports"
	"entstore/pkg/common"
	pkgerrors "entstore/pkg/errors"
	"entstore/pkg/utils"
)

// RelationHandler handles relationship HTTP requests
type RelationHandler struct {
	resolve ProviderResolver
	logger  *zap.Logger
}

// NewRelationHandler creates a new relation handler
func NewRelationHandler(resolve ProviderResolver, logger *zap.Logger) *RelationHandler {
	return &RelationHandler{resolve: resolve, logger: logger}
}

// RelationRequest represents the body of a relate or unrelate call
type RelationRequest struct {
	From     ports.EntityRef     `json:"from" validate:"required"`
	Relation string              `json:"relation" validate:"required"`
	To       ports.EntityRef     `json:"to" validate:"required"`
	Meta     *ports.RelationMeta `json:"meta,omitempty"`
}

// Relate handles POST /relations
func (h *RelationHandler) Relate(w http.ResponseWriter, r *http.Request) {
	var req RelationRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := p.Relate(r.Context(), req.From, req.Relation, req.To, req.Meta); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, map[string]bool{"related": true})
}

// Unrelate handles POST /relations/delete
func (h *RelationHandler) Unrelate(w http.ResponseWriter, r *http.Request) {
	var req RelationRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if err := p.Unrelate(r.Context(), req.From, req.Relation, req.To); err != nil {
		common.RespondAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Related handles GET /entities/{type}/{id}/related/{relation}
func (h *RelationHandler) Related(w http.ResponseWriter, r *http.Request) {
	from := ports.EntityRef{
		Type: chi.URLParam(r, "type"),
		ID:   chi.URLParam(r, "id"),
	}
	relation := chi.URLParam(r, "relation")

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	targets, err := p.Related(r.Context(), from, relation)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, targets)
}

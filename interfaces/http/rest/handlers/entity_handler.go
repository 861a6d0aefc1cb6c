package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"entstore/application/ports"
	"entstore/pkg/common"
	pkgerrors "entstore/pkg/errors"
	"entstore/pkg/utils"
)

// EntityHandler handles entity CRUD and batch HTTP requests
type EntityHandler struct {
	resolve ProviderResolver
	logger  *zap.Logger
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(resolve ProviderResolver, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{resolve: resolve, logger: logger}
}

// CreateEntityRequest represents the request body for creating an entity
type CreateEntityRequest struct {
	ID     string                 `json:"id,omitempty" validate:"omitempty,max=256"`
	Fields map[string]interface{} `json:"fields" validate:"required"`
}

// BatchRequest represents a createMany or updateMany body
type BatchRequest struct {
	Items []ports.BatchItem `json:"items" validate:"required,min=1"`
}

// Create handles POST /entities/{type}
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")

	var req CreateEntityRequest
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

	proj, err := p.Create(r.Context(), typeName, req.ID, req.Fields)
	if err != nil {
		h.logger.Warn("create entity failed",
			zap.String("type", typeName),
			zap.Error(err),
		)
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, proj)
}

// Get handles GET /entities/{type}/{id}
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	proj, err := p.Get(r.Context(), typeName, id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if proj == nil {
		common.RespondError(w, http.StatusNotFound, string(pkgerrors.KindNotFound), "entity not found")
		return
	}

	common.RespondJSON(w, http.StatusOK, proj)
}

// Update handles PATCH /entities/{type}/{id}
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	var fields map[string]interface{}
	if err := common.ParseJSONBody(r, &fields, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "invalid request body: "+err.Error())
		return
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	proj, err := p.Update(r.Context(), typeName, id, fields)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, proj)
}

// Delete handles DELETE /entities/{type}/{id}
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	id := chi.URLParam(r, "id")

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	deleted, err := p.Delete(r.Context(), typeName, id)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	if !deleted {
		common.RespondError(w, http.StatusNotFound, string(pkgerrors.KindNotFound), "entity not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /entities/{type}
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")

	opts := common.ExtractListOptions(r)
	if whereParam := r.URL.Query().Get("where"); whereParam != "" {
		var where map[string]interface{}
		if err := json.Unmarshal([]byte(whereParam), &where); err != nil {
			common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "where must be a JSON object")
			return
		}
		opts.Where = where
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	projections, err := p.List(r.Context(), typeName, opts)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondWithMeta(w, http.StatusOK, projections, &common.MetaInfo{
		RequestID:  common.ExtractRequestID(r),
		Pagination: common.BuildPaginationMeta(opts, len(projections)),
	})
}

// CreateMany handles POST /entities/{type}/batch
func (h *EntityHandler) CreateMany(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, func(p ports.Provider, typeName string, items []ports.BatchItem) (interface{}, error) {
		return p.CreateMany(r.Context(), typeName, items)
	})
}

// UpdateMany handles PATCH /entities/{type}/batch
func (h *EntityHandler) UpdateMany(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, func(p ports.Provider, typeName string, items []ports.BatchItem) (interface{}, error) {
		return p.UpdateMany(r.Context(), typeName, items)
	})
}

func (h *EntityHandler) batch(w http.ResponseWriter, r *http.Request,
	run func(p ports.Provider, typeName string, items []ports.BatchItem) (interface{}, error)) {
	typeName := chi.URLParam(r, "type")

	var req BatchRequest
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

	result, err := run(p, typeName, req.Items)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// DeleteMany handles POST /entities/{type}/batch-delete
func (h *EntityHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")

	var req struct {
		IDs []string `json:"ids" validate:"required,min=1"`
	}
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

	count, err := p.DeleteMany(r.Context(), typeName, req.IDs)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]int{"deleted": count})
}

// PerformMany handles POST /batch
func (h *EntityHandler) PerformMany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ops []ports.BatchOp `json:"ops" validate:"required,min=1"`
	}
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

	results, err := p.PerformMany(r.Context(), req.Ops)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, results)
}

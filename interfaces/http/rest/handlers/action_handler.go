package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"entstore/application/ports"
	"entstore/domain/core/entities"
	"entstore/pkg/common"
	pkgerrors "entstore/pkg/errors"
	"entstore/pkg/utils"
)

// ActionHandler handles action lifecycle HTTP requests
type ActionHandler struct {
	resolve ProviderResolver
	logger  *zap.Logger
}

// NewActionHandler creates a new action handler
func NewActionHandler(resolve ProviderResolver, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{resolve: resolve, logger: logger}
}

// CreateActionRequest represents the body for starting a tracked action
type CreateActionRequest struct {
	Actor      string                 `json:"actor" validate:"required"`
	Verb       string                 `json:"verb" validate:"required"`
	ID         string                 `json:"id,omitempty"`
	ActorData  map[string]interface{} `json:"actorData,omitempty"`
	Object     string                 `json:"object,omitempty"`
	ObjectData map[string]interface{} `json:"objectData,omitempty"`
	Total      *float64               `json:"total,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Create handles POST /actions
func (h *ActionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateActionRequest
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

	action, err := p.CreateAction(r.Context(), req.Actor, req.Verb, entities.ActionParams{
		ID:         req.ID,
		ActorData:  req.ActorData,
		Object:     req.Object,
		ObjectData: req.ObjectData,
		Total:      req.Total,
		Meta:       req.Meta,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, action)
}

// Get handles GET /actions/{id}
func (h *ActionHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	action, err := p.GetAction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, action)
}

// Update handles PATCH /actions/{id}
func (h *ActionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update ports.ActionUpdate
	if err := common.ParseJSONBody(r, &update, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "invalid request body: "+err.Error())
		return
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	action, err := p.UpdateAction(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		h.logger.Warn("action update failed",
			zap.String("actionID", chi.URLParam(r, "id")),
			zap.Error(err),
		)
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, action)
}

// List handles GET /actions
func (h *ActionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := ports.ActionFilter{
		Actor:  r.URL.Query().Get("actor"),
		Action: r.URL.Query().Get("action"),
		Status: r.URL.Query().Get("status"),
		Object: r.URL.Query().Get("object"),
		Limit:  queryInt(r, "limit"),
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	actions, err := p.ListActions(r.Context(), filter)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, actions)
}

// Retry handles POST /actions/{id}/retry
func (h *ActionHandler) Retry(w http.ResponseWriter, r *http.Request) {
	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	action, err := p.RetryAction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, action)
}

// Cancel handles POST /actions/{id}/cancel
func (h *ActionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	action, err := p.CancelAction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, action)
}

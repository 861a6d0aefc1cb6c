package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"entstore/application/ports"
	"entstore/domain/events"
	"entstore/pkg/common"
	pkgerrors "entstore/pkg/errors"
	"entstore/pkg/utils"
)

// EventHandler handles event log HTTP requests
type EventHandler struct {
	resolve ProviderResolver
	logger  *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(resolve ProviderResolver, logger *zap.Logger) *EventHandler {
	return &EventHandler{resolve: resolve, logger: logger}
}

// EmitRequest represents the body of an emit call
type EmitRequest struct {
	Event      string                 `json:"event" validate:"required"`
	Actor      string                 `json:"actor" validate:"required"`
	ActorData  map[string]interface{} `json:"actorData,omitempty"`
	Object     string                 `json:"object,omitempty"`
	ObjectData map[string]interface{} `json:"objectData,omitempty"`
	Result     string                 `json:"result,omitempty"`
	ResultData map[string]interface{} `json:"resultData,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Emit handles POST /events
func (h *EventHandler) Emit(w http.ResponseWriter, r *http.Request) {
	var req EmitRequest
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

	e := events.New(req.Event)
	e.Actor = req.Actor
	e.ActorData = req.ActorData
	e.Object = req.Object
	e.ObjectData = req.ObjectData
	e.Result = req.Result
	e.ResultData = req.ResultData
	e.Meta = req.Meta

	if err := p.Emit(r.Context(), e); err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, e)
}

// List handles GET /events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := ports.EventFilter{
		Event:  r.URL.Query().Get("event"),
		Actor:  r.URL.Query().Get("actor"),
		Object: r.URL.Query().Get("object"),
		Limit:  queryInt(r, "limit"),
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := utils.ParseRFC3339(since)
		if err != nil {
			common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "since must be RFC3339")
			return
		}
		filter.Since = &t
	}
	if until := r.URL.Query().Get("until"); until != "" {
		t, err := utils.ParseRFC3339(until)
		if err != nil {
			common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "until must be RFC3339")
			return
		}
		filter.Until = &t
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	log, err := p.ListEvents(r.Context(), filter)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, log)
}

// ReplayRequest represents the body of a replay call. Replay over HTTP
// walks the filtered history and reports how many events matched;
// replay with side effects stays an in-process API.
type ReplayRequest struct {
	Event string `json:"event,omitempty"`
	Actor string `json:"actor,omitempty"`
	Since string `json:"since,omitempty"`
}

// Replay handles POST /events/replay
func (h *EventHandler) Replay(w http.ResponseWriter, r *http.Request) {
	var req ReplayRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "invalid request body: "+err.Error())
		return
	}

	opts := ports.ReplayOptions{Event: req.Event, Actor: req.Actor}
	if req.Since != "" {
		t, err := utils.ParseRFC3339(req.Since)
		if err != nil {
			common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "since must be RFC3339")
			return
		}
		opts.Since = &t
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	opts.Handler = func(e *events.Event) error { return nil }

	count, err := p.ReplayEvents(r.Context(), opts)
	if err != nil {
		h.logger.Warn("event replay failed", zap.Error(err))
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]int{"replayed": count})
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"entstore/application/ports"
	"entstore/pkg/common"
	pkgerrors "entstore/pkg/errors"
	"entstore/pkg/utils"
)

// SearchHandler handles substring, semantic, hybrid and union search requests
type SearchHandler struct {
	resolve ProviderResolver
	logger  *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(resolve ProviderResolver, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{resolve: resolve, logger: logger}
}

// Search handles GET /entities/{type}/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	query := r.URL.Query().Get("q")
	if query == "" {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "query parameter q is required")
		return
	}

	opts := ports.SearchOptions{
		MinScore: queryFloat(r, "min_score"),
		Limit:    queryInt(r, "limit"),
	}
	if fields := r.URL.Query().Get("fields"); fields != "" {
		opts.Fields = strings.Split(fields, ",")
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	hits, err := p.Search(r.Context(), typeName, query, opts)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, hits)
}

// SemanticSearch handles GET /entities/{type}/semantic-search
func (h *SearchHandler) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	query := r.URL.Query().Get("q")
	if query == "" {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "query parameter q is required")
		return
	}

	opts := ports.SemanticSearchOptions{
		MinScore: queryFloat(r, "min_score"),
		Limit:    queryInt(r, "limit"),
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	hits, err := p.SemanticSearch(r.Context(), typeName, query, opts)
	if err != nil {
		h.logger.Warn("semantic search failed",
			zap.String("type", typeName),
			zap.Error(err),
		)
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, hits)
}

// HybridSearch handles GET /entities/{type}/hybrid-search
func (h *SearchHandler) HybridSearch(w http.ResponseWriter, r *http.Request) {
	typeName := chi.URLParam(r, "type")
	query := r.URL.Query().Get("q")
	if query == "" {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "query parameter q is required")
		return
	}

	opts := ports.HybridSearchOptions{
		K:         queryFloat(r, "k"),
		FTSWeight: queryFloat(r, "fts_weight"),
		SemWeight: queryFloat(r, "sem_weight"),
		MinScore:  queryFloat(r, "min_score"),
		Offset:    queryInt(r, "offset"),
		Limit:     queryInt(r, "limit"),
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	hits, err := p.HybridSearch(r.Context(), typeName, query, opts)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, hits)
}

// UnionSearchRequest represents the request body for a union search
type UnionSearchRequest struct {
	Types   []string                 `json:"types" validate:"required,min=1"`
	Query   string                   `json:"query" validate:"required"`
	Options ports.UnionSearchOptions `json:"options"`
}

// UnionSearch handles POST /search/union
func (h *SearchHandler) UnionSearch(w http.ResponseWriter, r *http.Request) {
	var req UnionSearchRequest
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

	result, err := p.UnionSearch(r.Context(), req.Types, req.Query, req.Options)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

func queryFloat(r *http.Request, name string) float64 {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return 0
}

func queryInt(r *http.Request, name string) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return 0
}

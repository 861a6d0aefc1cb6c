package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"entstore/domain/core/entities"
	"entstore/pkg/common"
	pkgerrors "entstore/pkg/errors"
)

// ArtifactHandler handles derived-artifact HTTP requests
type ArtifactHandler struct {
	resolve ProviderResolver
	logger  *zap.Logger
}

// NewArtifactHandler creates a new artifact handler
func NewArtifactHandler(resolve ProviderResolver, logger *zap.Logger) *ArtifactHandler {
	return &ArtifactHandler{resolve: resolve, logger: logger}
}

func artifactURL(r *http.Request) string {
	return entities.ArtifactURL(chi.URLParam(r, "type"), chi.URLParam(r, "id"))
}

// List handles GET /entities/{type}/{id}/artifacts
func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	artifacts, err := p.ListArtifacts(r.Context(), artifactURL(r))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, artifacts)
}

// Get handles GET /entities/{type}/{id}/artifacts/{kind}
func (h *ArtifactHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	artifact, err := p.GetArtifact(r.Context(), artifactURL(r), chi.URLParam(r, "kind"))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, artifact)
}

// SetArtifactRequest represents the body for storing an artifact
type SetArtifactRequest struct {
	Content interface{}            `json:"content"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// Set handles PUT /entities/{type}/{id}/artifacts/{kind}
func (h *ArtifactHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req SetArtifactRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "invalid request body: "+err.Error())
		return
	}

	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	artifact, err := p.SetArtifact(r.Context(), artifactURL(r), chi.URLParam(r, "kind"), req.Content, req.Meta)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, artifact)
}

// Delete handles DELETE /entities/{type}/{id}/artifacts
func (h *ArtifactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := resolveProvider(r, h.resolve)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	count, err := p.DeleteArtifact(r.Context(), artifactURL(r))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]int{"deleted": count})
}

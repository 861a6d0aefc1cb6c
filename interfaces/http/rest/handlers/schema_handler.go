package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"entstore/domain/schema"
	"entstore/pkg/common"
	pkgerrors "entstore/pkg/errors"
	"entstore/pkg/utils"
)

// SchemaHandler handles schema inspection HTTP requests
type SchemaHandler struct {
	logger *zap.Logger
}

// NewSchemaHandler creates a new schema handler
func NewSchemaHandler(logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{logger: logger}
}

// TypeDefDTO is one entity type definition on the wire. Field order is
// preserved.
type TypeDefDTO struct {
	Name   string        `json:"name" validate:"required"`
	Fields []FieldDefDTO `json:"fields"`
}

// FieldDefDTO is a raw field name and type expression on the wire.
type FieldDefDTO struct {
	Name string `json:"name" validate:"required"`
	Expr string `json:"expr" validate:"required"`
}

func toTypeDefs(dtos []TypeDefDTO) []schema.TypeDef {
	defs := make([]schema.TypeDef, 0, len(dtos))
	for _, d := range dtos {
		def := schema.TypeDef{Name: d.Name}
		for _, f := range d.Fields {
			def.Fields = append(def.Fields, schema.FieldDef{Name: f.Name, Expr: f.Expr})
		}
		defs = append(defs, def)
	}
	return defs
}

// DiffRequest represents the body for a schema diff
type DiffRequest struct {
	From []TypeDefDTO `json:"from" validate:"required"`
	To   []TypeDefDTO `json:"to" validate:"required"`
}

// Diff handles POST /schema/diff
func (h *SchemaHandler) Diff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	from, err := schema.Parse(toTypeDefs(req.From))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	to, err := schema.Parse(toTypeDefs(req.To))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	diff := schema.Diff(from, to)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"diff":    diff,
		"summary": diff.Summary(),
	})
}

// GraphRequest represents the body for a dependency graph inspection
type GraphRequest struct {
	Types []TypeDefDTO `json:"types" validate:"required,min=1"`
	Root  string       `json:"root,omitempty"`
}

// Graph handles POST /schema/graph
func (h *SchemaHandler) Graph(w http.ResponseWriter, r *http.Request) {
	var req GraphRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, string(pkgerrors.KindValidation), "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondAppError(w, err)
		return
	}

	parsed, err := schema.Parse(toTypeDefs(req.Types))
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	graph := schema.BuildGraph(parsed)
	result := map[string]interface{}{
		"edges":  graph.Edges(),
		"cycles": graph.DetectCycles(),
	}

	if req.Root != "" {
		order, err := graph.TopologicalSort(req.Root, false)
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		groups, err := graph.ParallelGroups(req.Root)
		if err != nil {
			common.RespondAppError(w, err)
			return
		}
		result["order"] = order
		result["groups"] = groups
	}

	common.RespondJSON(w, http.StatusOK, result)
}

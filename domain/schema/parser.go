package schema

import (
	"fmt"
	"regexp"
	"strings"

	pkgerrors "entstore/pkg/errors"
)

// TypeDef is one entity type definition before parsing. Field order is
// meaningful and preserved.
type TypeDef struct {
	Name   string
	Fields []FieldDef
}

// FieldDef is a raw field name and its type expression.
type FieldDef struct {
	Name string
	Expr string
}

var typeNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse parses an ordered set of entity type definitions into a Schema.
// Any malformed expression fails the whole parse with an INVALID_SCHEMA
// error carrying the "Type.field" path.
func Parse(defs []TypeDef) (*Schema, error) {
	s := &Schema{index: make(map[string]*EntitySpec, len(defs))}

	for _, def := range defs {
		if !typeNameRe.MatchString(def.Name) {
			return nil, pkgerrors.NewInvalidSchemaError(def.Name, "invalid entity type name")
		}
		if s.index[def.Name] != nil {
			return nil, pkgerrors.NewInvalidSchemaError(def.Name, "duplicate entity type")
		}

		entity := &EntitySpec{
			Name:       def.Name,
			fieldIndex: make(map[string]*FieldSpec, len(def.Fields)),
		}
		for _, fd := range def.Fields {
			path := def.Name + "." + fd.Name
			if !typeNameRe.MatchString(fd.Name) {
				return nil, pkgerrors.NewInvalidSchemaError(path, "invalid field name")
			}
			if entity.fieldIndex[fd.Name] != nil {
				return nil, pkgerrors.NewInvalidSchemaError(path, "duplicate field")
			}
			spec, err := ParseFieldExpr(fd.Name, fd.Expr)
			if err != nil {
				if appErr := pkgerrors.GetAppError(err); appErr != nil {
					return nil, pkgerrors.NewInvalidSchemaError(path, appErr.Message)
				}
				return nil, pkgerrors.NewInvalidSchemaError(path, err.Error())
			}
			entity.Fields = append(entity.Fields, spec)
			entity.fieldIndex[fd.Name] = spec
		}

		s.Entities = append(s.Entities, entity)
		s.index[def.Name] = entity
	}

	return s, nil
}

// MustParse is Parse for tests and static schema literals; it panics on a
// malformed definition.
func MustParse(defs []TypeDef) *Schema {
	s, err := Parse(defs)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseFieldExpr parses a single field type expression. The grammar is
//
//	field := prompt? core optional? index?
//	core  := primitive | ref | '[' core ']' | enum
//	ref   := ('->' | '<-' | '~>' | '<~') TypeName ('.' Backref)?
//	        | ('->' | '<-' | '~>' | '<~') TypeName ('|' TypeName)+
//
// where prompt is free text ending in '?' separated from the core by
// whitespace, optional is a trailing '?', and index is '#' (indexed) or
// '##' (unique and indexed).
func ParseFieldExpr(name, expr string) (*FieldSpec, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return nil, fmt.Errorf("empty type expression")
	}

	spec := &FieldSpec{
		Name:      name,
		MatchMode: MatchExact,
		Direction: DirectionForward,
	}

	// A natural-language prompt precedes the core, ending with '?' and
	// whitespace: "Summarize the post? markdown".
	if idx := strings.LastIndex(raw, "? "); idx >= 0 {
		spec.Prompt = strings.TrimSpace(raw[:idx+1])
		raw = strings.TrimSpace(raw[idx+2:])
		if raw == "" {
			return nil, fmt.Errorf("prompt without a type expression")
		}
	}

	// Suffixes run outside-in: index first, then optional.
	if strings.HasSuffix(raw, "##") {
		spec.Indexed = true
		spec.Unique = true
		raw = raw[:len(raw)-2]
	} else if strings.HasSuffix(raw, "#") {
		spec.Indexed = true
		raw = raw[:len(raw)-1]
	}
	if strings.HasSuffix(raw, "?") {
		spec.IsOptional = true
		raw = raw[:len(raw)-1]
	}
	if raw == "" {
		return nil, fmt.Errorf("empty type expression")
	}

	if err := parseCore(raw, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseCore(core string, spec *FieldSpec) error {
	if strings.HasPrefix(core, "[") {
		if !strings.HasSuffix(core, "]") {
			return fmt.Errorf("unterminated array type %q", core)
		}
		inner := strings.TrimSpace(core[1 : len(core)-1])
		if inner == "" {
			return fmt.Errorf("empty array element type")
		}
		spec.IsArray = true
		return parseCore(inner, spec)
	}

	if op, rest, ok := splitOperator(core); ok {
		return parseRef(op, rest, spec)
	}

	if strings.Contains(core, "|") {
		values := strings.Split(core, "|")
		for i, v := range values {
			values[i] = strings.TrimSpace(v)
			if values[i] == "" {
				return fmt.Errorf("empty enum value in %q", core)
			}
		}
		spec.Type = TypeEnum
		spec.EnumValues = values
		return nil
	}

	if !IsPrimitive(core) {
		return fmt.Errorf("unknown type %q", core)
	}
	spec.Type = core
	return nil
}

func splitOperator(s string) (Operator, string, bool) {
	for _, op := range []Operator{OpForward, OpReverse, OpFuzzyForward, OpFuzzyReverse} {
		if strings.HasPrefix(s, string(op)) {
			return op, strings.TrimSpace(s[len(op):]), true
		}
	}
	return OpNone, s, false
}

func parseRef(op Operator, rest string, spec *FieldSpec) error {
	if rest == "" {
		return fmt.Errorf("reference operator %q without a target type", op)
	}

	spec.Type = TypeRef
	spec.Operator = op
	if op == OpFuzzyForward || op == OpFuzzyReverse {
		spec.MatchMode = MatchFuzzy
	}
	if op == OpReverse || op == OpFuzzyReverse {
		spec.Direction = DirectionBackward
	}

	if strings.Contains(rest, "|") {
		types := strings.Split(rest, "|")
		for i, t := range types {
			types[i] = strings.TrimSpace(t)
			if !typeNameRe.MatchString(types[i]) {
				return fmt.Errorf("invalid union member %q", t)
			}
		}
		spec.UnionTypes = types
		spec.TargetType = types[0]
		return nil
	}

	target := rest
	if dot := strings.Index(rest, "."); dot >= 0 {
		target = rest[:dot]
		spec.Backref = rest[dot+1:]
		if !typeNameRe.MatchString(spec.Backref) {
			return fmt.Errorf("invalid backref %q", spec.Backref)
		}
	}
	if !typeNameRe.MatchString(target) {
		return fmt.Errorf("invalid target type %q", target)
	}
	spec.TargetType = target
	return nil
}

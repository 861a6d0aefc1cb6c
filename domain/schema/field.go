// Package schema parses entity type definitions, builds the dependency
// graph between entity types, and diffs schema versions.
package schema

// Operator is the reference operator of a field type expression.
type Operator string

const (
	OpNone         Operator = ""
	OpForward      Operator = "->" // exact forward reference, hard dependency
	OpReverse      Operator = "<-" // exact reverse reference, parent creates child
	OpFuzzyForward Operator = "~>" // semantic forward resolution, soft dependency
	OpFuzzyReverse Operator = "<~" // reverse semantic lookup, soft dependency
)

// MatchMode distinguishes exact from semantic reference resolution.
type MatchMode string

const (
	MatchExact MatchMode = "exact"
	MatchFuzzy MatchMode = "fuzzy"
)

// Direction is the traversal direction of a reference field.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Field type names beyond the primitives.
const (
	TypeRef  = "ref"
	TypeEnum = "enum"
)

// primitives are the scalar field types the parser accepts.
var primitives = map[string]bool{
	"string":   true,
	"number":   true,
	"boolean":  true,
	"date":     true,
	"datetime": true,
	"markdown": true,
	"json":     true,
}

// IsPrimitive reports whether name is one of the scalar field types.
func IsPrimitive(name string) bool {
	return primitives[name]
}

// FieldSpec is the parsed form of a single field type expression such as
// "->Author.posts", "~>Category?", "string?#" or "draft|published".
type FieldSpec struct {
	Name       string      `json:"name"`
	Type       string      `json:"type"` // primitive name, "ref" or "enum"
	Operator   Operator    `json:"operator,omitempty"`
	TargetType string      `json:"targetType,omitempty"`
	Backref    string      `json:"backref,omitempty"`
	UnionTypes []string    `json:"unionTypes,omitempty"`
	EnumValues []string    `json:"enumValues,omitempty"`
	IsArray    bool        `json:"isArray"`
	IsOptional bool        `json:"isOptional"`
	Indexed    bool        `json:"indexed"`
	Unique     bool        `json:"unique"`
	MatchMode  MatchMode   `json:"matchMode"`
	Direction  Direction   `json:"direction"`
	Prompt     string      `json:"prompt,omitempty"`
	Default    interface{} `json:"default,omitempty"`
}

// IsRef reports whether the field is a reference to another entity type.
func (f *FieldSpec) IsRef() bool {
	return f.Type == TypeRef
}

// Targets returns the candidate target types of a reference field: the
// union list when present, otherwise the single target.
func (f *FieldSpec) Targets() []string {
	if len(f.UnionTypes) > 0 {
		return f.UnionTypes
	}
	if f.TargetType != "" {
		return []string{f.TargetType}
	}
	return nil
}

// EntitySpec is one parsed entity type: its name and fields in declaration
// order.
type EntitySpec struct {
	Name   string
	Fields []*FieldSpec

	fieldIndex map[string]*FieldSpec
}

// Field returns the named field spec, or nil.
func (e *EntitySpec) Field(name string) *FieldSpec {
	return e.fieldIndex[name]
}

// Schema is an ordered collection of parsed entity types. Declaration order
// is preserved; it is the tie-break for dependency layering.
type Schema struct {
	Entities []*EntitySpec

	index map[string]*EntitySpec
}

// Entity returns the named entity spec, or nil.
func (s *Schema) Entity(name string) *EntitySpec {
	return s.index[name]
}

// Types returns the entity type names in declaration order.
func (s *Schema) Types() []string {
	names := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		names[i] = e.Name
	}
	return names
}

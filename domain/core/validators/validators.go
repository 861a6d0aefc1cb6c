// Package validators holds the input validation rules shared by every
// public store operation. All checks run before any state is mutated.
package validators

import (
	"fmt"
	"regexp"
	"strings"

	pkgerrors "entstore/pkg/errors"
)

const (
	// MaxTypeNameLength bounds entity type names.
	MaxTypeNameLength = 64
	// MaxEntityIDLength bounds entity ids.
	MaxEntityIDLength = 256
	// MaxBatchSize bounds createMany, updateMany, deleteMany and performMany.
	MaxBatchSize = 1000
)

var (
	typeNameRe  = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	fieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	namespaceRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// reservedTypeNames are names that collide with SQL keywords used by the
// persistent-store adapters.
var reservedTypeNames = map[string]struct{}{
	"select": {}, "insert": {}, "update": {}, "delete": {},
	"create": {}, "drop": {}, "alter": {}, "table": {},
	"index": {}, "where": {}, "from": {}, "join": {},
	"order": {}, "group": {}, "union": {}, "null": {},
}

// dangerousFieldNames are prototype pollution vectors and are rejected
// regardless of syntactic validity.
var dangerousFieldNames = map[string]struct{}{
	"__proto__":   {},
	"prototype":   {},
	"constructor": {},
}

// TypeName validates an entity type name.
func TypeName(name string) error {
	if name == "" {
		return pkgerrors.NewValidationError("type name must not be empty")
	}
	if len(name) > MaxTypeNameLength {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("type name exceeds %d characters", MaxTypeNameLength))
	}
	if !typeNameRe.MatchString(name) {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("type name %q may only contain letters, digits and underscores", name))
	}
	if _, ok := reservedTypeNames[strings.ToLower(name)]; ok {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("type name %q is a reserved word", name))
	}
	return nil
}

// EntityID validates an entity id.
func EntityID(id string) error {
	if id == "" {
		return pkgerrors.NewValidationError("entity id must not be empty")
	}
	if len(id) > MaxEntityIDLength {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("entity id exceeds %d characters", MaxEntityIDLength))
	}
	if strings.ContainsAny(id, "/\\") {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("entity id %q must not contain path separators", id))
	}
	return nil
}

// FieldName validates a field name used in where clauses, orderBy and
// embedded-search field lists.
func FieldName(name string) error {
	if !fieldNameRe.MatchString(name) {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("invalid field name %q", name))
	}
	if _, ok := dangerousFieldNames[name]; ok {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("field name %q is not allowed", name))
	}
	return nil
}

// FieldNames validates each name in a list, stopping at the first failure.
func FieldNames(names []string) error {
	for _, n := range names {
		if err := FieldName(n); err != nil {
			return err
		}
	}
	return nil
}

// RelationName validates a relation name; the rules match field names.
func RelationName(name string) error {
	if err := FieldName(name); err != nil {
		return pkgerrors.NewValidationError(
			fmt.Sprintf("invalid relation name %q", name))
	}
	return nil
}

// Namespace validates an external namespace id.
func Namespace(ns string) error {
	if !namespaceRe.MatchString(ns) {
		return pkgerrors.NewInvalidNamespaceError(ns)
	}
	return nil
}

// BatchSize rejects oversized batch inputs before any per-item work begins.
func BatchSize(size int) error {
	if size > MaxBatchSize {
		return pkgerrors.NewBatchTooLargeError(size, MaxBatchSize)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// EscapeLike escapes the LIKE wildcard characters %, _ and \ with a
// backslash. Callers must pass ESCAPE '\' alongside the resulting pattern.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

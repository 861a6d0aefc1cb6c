package schema

import (
	"fmt"
	"strings"
)

// FieldChangeType classifies how a field definition changed between two
// schema versions.
type FieldChangeType string

const (
	ChangeType     FieldChangeType = "type"
	ChangeOptional FieldChangeType = "optional"
	ChangeArray    FieldChangeType = "array"
	ChangeOperator FieldChangeType = "operator"
	ChangeTarget   FieldChangeType = "target"
)

// FieldChange records one changed aspect of a field.
type FieldChange struct {
	Name       string          `json:"name"`
	ChangeType FieldChangeType `json:"changeType"`
	Old        *FieldSpec      `json:"old"`
	New        *FieldSpec      `json:"new"`
}

// RenameCandidate pairs a removed field with an added field whose name is
// similar enough to suggest a rename rather than a drop-and-add.
type RenameCandidate struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Similarity float64 `json:"similarity"`
}

// EntityDiff is the per-entity portion of a schema diff.
type EntityDiff struct {
	Name            string            `json:"name"`
	AddedFields     []string          `json:"addedFields,omitempty"`
	RemovedFields   []string          `json:"removedFields,omitempty"`
	ChangedFields   []FieldChange     `json:"changedFields,omitempty"`
	PossibleRenames []RenameCandidate `json:"possibleRenames,omitempty"`
}

// SchemaDiff is the structural comparison of two parsed schemas.
type SchemaDiff struct {
	AddedEntities    []string     `json:"addedEntities,omitempty"`
	RemovedEntities  []string     `json:"removedEntities,omitempty"`
	ModifiedEntities []EntityDiff `json:"modifiedEntities,omitempty"`
}

// renameSimilarityThreshold is the minimum Jaro-Winkler similarity between
// a removed and an added field name to suggest a rename.
const renameSimilarityThreshold = 0.5

// Diff compares two schemas structurally. Entity and field order follows
// the new schema where applicable, the old schema for removals.
func Diff(oldSchema, newSchema *Schema) *SchemaDiff {
	d := &SchemaDiff{}

	for _, e := range newSchema.Entities {
		if oldSchema.Entity(e.Name) == nil {
			d.AddedEntities = append(d.AddedEntities, e.Name)
		}
	}
	for _, e := range oldSchema.Entities {
		if newSchema.Entity(e.Name) == nil {
			d.RemovedEntities = append(d.RemovedEntities, e.Name)
		}
	}

	for _, oldEntity := range oldSchema.Entities {
		newEntity := newSchema.Entity(oldEntity.Name)
		if newEntity == nil {
			continue
		}
		if ed := diffEntity(oldEntity, newEntity); ed != nil {
			d.ModifiedEntities = append(d.ModifiedEntities, *ed)
		}
	}

	return d
}

func diffEntity(oldEntity, newEntity *EntitySpec) *EntityDiff {
	ed := &EntityDiff{Name: oldEntity.Name}

	for _, f := range newEntity.Fields {
		if oldEntity.Field(f.Name) == nil {
			ed.AddedFields = append(ed.AddedFields, f.Name)
		}
	}
	for _, f := range oldEntity.Fields {
		if newEntity.Field(f.Name) == nil {
			ed.RemovedFields = append(ed.RemovedFields, f.Name)
		}
	}

	for _, oldField := range oldEntity.Fields {
		newField := newEntity.Field(oldField.Name)
		if newField == nil {
			continue
		}
		ed.ChangedFields = append(ed.ChangedFields, diffField(oldField, newField)...)
	}

	// Pair removed with added fields by name similarity to flag likely
	// renames for the migration author.
	for _, removed := range ed.RemovedFields {
		best := RenameCandidate{From: removed}
		for _, added := range ed.AddedFields {
			if sim := JaroWinkler(removed, added); sim > best.Similarity {
				best.To = added
				best.Similarity = sim
			}
		}
		if best.To != "" && best.Similarity >= renameSimilarityThreshold {
			ed.PossibleRenames = append(ed.PossibleRenames, best)
		}
	}

	if len(ed.AddedFields) == 0 && len(ed.RemovedFields) == 0 && len(ed.ChangedFields) == 0 {
		return nil
	}
	return ed
}

func diffField(oldField, newField *FieldSpec) []FieldChange {
	var changes []FieldChange
	record := func(ct FieldChangeType) {
		changes = append(changes, FieldChange{
			Name:       oldField.Name,
			ChangeType: ct,
			Old:        oldField,
			New:        newField,
		})
	}

	if oldField.Type != newField.Type || !equalStrings(oldField.EnumValues, newField.EnumValues) {
		record(ChangeType)
	}
	if oldField.Operator != newField.Operator {
		record(ChangeOperator)
	}
	if oldField.TargetType != newField.TargetType || !equalStrings(oldField.UnionTypes, newField.UnionTypes) {
		record(ChangeTarget)
	}
	if oldField.IsArray != newField.IsArray {
		record(ChangeArray)
	}
	if oldField.IsOptional != newField.IsOptional {
		record(ChangeOptional)
	}
	return changes
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Summary renders the diff as a short human-readable report.
func (d *SchemaDiff) Summary() string {
	if len(d.AddedEntities) == 0 && len(d.RemovedEntities) == 0 && len(d.ModifiedEntities) == 0 {
		return "schemas are identical"
	}

	var b strings.Builder
	for _, e := range d.AddedEntities {
		fmt.Fprintf(&b, "+ entity %s\n", e)
	}
	for _, e := range d.RemovedEntities {
		fmt.Fprintf(&b, "- entity %s\n", e)
	}
	for _, ed := range d.ModifiedEntities {
		fmt.Fprintf(&b, "~ entity %s\n", ed.Name)
		for _, f := range ed.AddedFields {
			fmt.Fprintf(&b, "  + field %s\n", f)
		}
		for _, f := range ed.RemovedFields {
			fmt.Fprintf(&b, "  - field %s\n", f)
		}
		for _, c := range ed.ChangedFields {
			fmt.Fprintf(&b, "  ~ field %s (%s)\n", c.Name, c.ChangeType)
		}
		for _, r := range ed.PossibleRenames {
			fmt.Fprintf(&b, "  ? possible rename %s -> %s (%.2f)\n", r.From, r.To, r.Similarity)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// JaroWinkler computes the Jaro-Winkler similarity of two strings in
// [0, 1]. Used for rename inference; no external dependency in the stack
// provides it.
func JaroWinkler(a, b string) float64 {
	jaro := jaroSimilarity(a, b)
	if jaro == 0 {
		return 0
	}

	// Common prefix bonus, capped at 4 characters.
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
		if prefix == 4 {
			break
		}
	}
	const scaling = 0.1
	return jaro + float64(prefix)*scaling*(1-jaro)
}

func jaroSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}

	window := la
	if lb > la {
		window = lb
	}
	window = window/2 - 1
	if window < 0 {
		window = 0
	}

	matchA := make([]bool, la)
	matchB := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > lb {
			hi = lb
		}
		for j := lo; j < hi; j++ {
			if matchB[j] || a[i] != b[j] {
				continue
			}
			matchA[i] = true
			matchB[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !matchA[i] {
			continue
		}
		for !matchB[j] {
			j++
		}
		if a[i] != b[j] {
			transpositions++
		}
		j++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}

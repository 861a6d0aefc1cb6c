package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffEntities(t *testing.T) {
	oldSchema := MustParse([]TypeDef{
		{Name: "Post", Fields: []FieldDef{{Name: "title", Expr: "string"}}},
		{Name: "Author", Fields: []FieldDef{{Name: "name", Expr: "string"}}},
	})
	newSchema := MustParse([]TypeDef{
		{Name: "Post", Fields: []FieldDef{{Name: "title", Expr: "string"}}},
		{Name: "Tag", Fields: []FieldDef{{Name: "label", Expr: "string"}}},
	})

	d := Diff(oldSchema, newSchema)
	assert.Equal(t, []string{"Tag"}, d.AddedEntities)
	assert.Equal(t, []string{"Author"}, d.RemovedEntities)
	assert.Empty(t, d.ModifiedEntities)
}

func TestDiffFields(t *testing.T) {
	oldSchema := MustParse([]TypeDef{
		{Name: "Post", Fields: []FieldDef{
			{Name: "title", Expr: "string"},
			{Name: "author", Expr: "->Author"},
			{Name: "tags", Expr: "[string]"},
			{Name: "body", Expr: "markdown"},
		}},
	})
	newSchema := MustParse([]TypeDef{
		{Name: "Post", Fields: []FieldDef{
			{Name: "title", Expr: "string?"},   // optional change
			{Name: "author", Expr: "~>Author"}, // operator change
			{Name: "tags", Expr: "string"},     // array change
			{Name: "content", Expr: "markdown"},
		}},
	})

	d := Diff(oldSchema, newSchema)
	require.Len(t, d.ModifiedEntities, 1)
	ed := d.ModifiedEntities[0]

	assert.Equal(t, []string{"content"}, ed.AddedFields)
	assert.Equal(t, []string{"body"}, ed.RemovedFields)

	byName := map[string][]FieldChangeType{}
	for _, c := range ed.ChangedFields {
		byName[c.Name] = append(byName[c.Name], c.ChangeType)
	}
	assert.Equal(t, []FieldChangeType{ChangeOptional}, byName["title"])
	assert.Equal(t, []FieldChangeType{ChangeOperator}, byName["author"])
	assert.Equal(t, []FieldChangeType{ChangeArray}, byName["tags"])
}

func TestDiffTargetChange(t *testing.T) {
	oldSchema := MustParse([]TypeDef{
		{Name: "Post", Fields: []FieldDef{{Name: "owner", Expr: "->Author"}}},
	})
	newSchema := MustParse([]TypeDef{
		{Name: "Post", Fields: []FieldDef{{Name: "owner", Expr: "->Team"}}},
	})

	d := Diff(oldSchema, newSchema)
	require.Len(t, d.ModifiedEntities, 1)
	require.Len(t, d.ModifiedEntities[0].ChangedFields, 1)
	assert.Equal(t, ChangeTarget, d.ModifiedEntities[0].ChangedFields[0].ChangeType)
}

func TestDiffRenameDetection(t *testing.T) {
	oldSchema := MustParse([]TypeDef{
		{Name: "Post", Fields: []FieldDef{{Name: "authorName", Expr: "string"}}},
	})
	newSchema := MustParse([]TypeDef{
		{Name: "Post", Fields: []FieldDef{{Name: "author_name", Expr: "string"}}},
	})

	d := Diff(oldSchema, newSchema)
	require.Len(t, d.ModifiedEntities, 1)
	renames := d.ModifiedEntities[0].PossibleRenames
	require.Len(t, renames, 1)
	assert.Equal(t, "authorName", renames[0].From)
	assert.Equal(t, "author_name", renames[0].To)
	assert.GreaterOrEqual(t, renames[0].Similarity, 0.5)
}

func TestDiffSummary(t *testing.T) {
	oldSchema := MustParse([]TypeDef{{Name: "A", Fields: []FieldDef{{Name: "x", Expr: "string"}}}})
	newSchema := MustParse([]TypeDef{
		{Name: "A", Fields: []FieldDef{{Name: "x", Expr: "number"}}},
		{Name: "B"},
	})

	summary := Diff(oldSchema, newSchema).Summary()
	assert.Contains(t, summary, "+ entity B")
	assert.Contains(t, summary, "~ entity A")
	assert.Contains(t, summary, "~ field x (type)")

	same := Diff(oldSchema, oldSchema)
	assert.Equal(t, "schemas are identical", same.Summary())
}

func TestJaroWinkler(t *testing.T) {
	assert.Equal(t, 1.0, JaroWinkler("field", "field"))
	assert.Equal(t, 0.0, JaroWinkler("", "field"))
	assert.Greater(t, JaroWinkler("createdAt", "created_at"), 0.8)
	assert.Less(t, JaroWinkler("abc", "xyz"), 0.5)
}

package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "entstore/pkg/errors"
)

func TestTypeName(t *testing.T) {
	for _, name := range []string{"Post", "User_Profile", "T2", "_Internal"} {
		assert.NoError(t, TypeName(name), name)
	}

	for _, name := range []string{"", "has space", "post-type", "Select", "where", strings.Repeat("x", 65)} {
		err := TypeName(name)
		require.Error(t, err, "name %q", name)
		assert.True(t, pkgerrors.IsValidation(err))
	}
}

func TestEntityID(t *testing.T) {
	assert.NoError(t, EntityID("abc-123"))
	assert.NoError(t, EntityID("txn-temp-1"))

	for _, id := range []string{"", "a/b", `a\b`, strings.Repeat("x", 257)} {
		assert.Error(t, EntityID(id), "id %q", id)
	}
}

func TestFieldName(t *testing.T) {
	for _, name := range []string{"title", "created_at", "_x", "x9"} {
		assert.NoError(t, FieldName(name), name)
	}

	rejected := []string{
		"__proto__", "prototype", "constructor",
		"a.b", "items[0]", "$v", "@v",
		"", "9x", "has space", "héllo",
	}
	for _, name := range rejected {
		err := FieldName(name)
		require.Error(t, err, "name %q", name)
		assert.True(t, pkgerrors.IsValidation(err))
	}
}

func TestFieldNames(t *testing.T) {
	assert.NoError(t, FieldNames([]string{"a", "b"}))
	assert.Error(t, FieldNames([]string{"a", "a.b"}))
	assert.NoError(t, FieldNames(nil))
}

func TestNamespace(t *testing.T) {
	for _, ns := range []string{"default", "tenant-1", "A_B", strings.Repeat("x", 64)} {
		assert.NoError(t, Namespace(ns), ns)
	}

	for _, ns := range []string{"", "has space", "a.b", strings.Repeat("x", 65)} {
		err := Namespace(ns)
		require.Error(t, err, "ns %q", ns)
		assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindInvalidNamespace))
	}
}

func TestBatchSize(t *testing.T) {
	assert.NoError(t, BatchSize(0))
	assert.NoError(t, BatchSize(1000))

	err := BatchSize(1001)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsBatchTooLarge(err))
	appErr := pkgerrors.GetAppError(err)
	assert.Equal(t, 1001, appErr.Details["size"])
	assert.Equal(t, 1000, appErr.Details["limit"])
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))
	assert.Equal(t, `a\\b`, EscapeLike(`a\b`))
	assert.Equal(t, `\\\%\_`, EscapeLike(`\%_`))
	assert.Equal(t, "plain", EscapeLike("plain"))
}

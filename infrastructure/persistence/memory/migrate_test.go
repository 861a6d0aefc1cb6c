package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entstore/application/ports"
	pkgerrors "entstore/pkg/errors"
)

func testMigrations() []ports.Migration {
	return []ports.Migration{
		{
			Version: 1,
			Name:    "add-posts",
			Up:      []ports.MigrationOp{{Kind: ports.OpAddEntity, Entity: "Post"}},
			Down:    []ports.MigrationOp{{Kind: ports.OpRemoveEntity, Entity: "Post", DeleteData: true}},
		},
		{
			Version: 2,
			Name:    "add-status-field",
			Up: []ports.MigrationOp{
				{Kind: ports.OpAddField, Entity: "Post", Field: "status", Default: "draft"},
			},
			Down: []ports.MigrationOp{
				{Kind: ports.OpRemoveField, Entity: "Post", Field: "status"},
			},
		},
	}
}

func TestMigrateUp(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "x"})
	require.NoError(t, err)

	res, err := p.Migrate(ctx, testMigrations(), ports.MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.MigrationsRun)
	assert.Equal(t, 0, res.FromVersion)
	assert.Equal(t, 2, res.ToVersion)
	assert.Equal(t, []string{"add-posts", "add-status-field"}, res.AppliedMigrations)
	assert.Empty(t, res.Errors)

	got, err := p.Get(ctx, "Post", "p1")
	require.NoError(t, err)
	assert.Equal(t, "draft", got["status"])
}

func TestMigrateIsIdempotentAtTarget(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Migrate(ctx, testMigrations(), ports.MigrateOptions{})
	require.NoError(t, err)

	res, err := p.Migrate(ctx, testMigrations(), ports.MigrateOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.MigrationsRun)
	assert.Equal(t, 2, res.FromVersion)
	assert.Equal(t, 2, res.ToVersion)
}

func TestMigrateDown(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	_, err = p.Migrate(ctx, testMigrations(), ports.MigrateOptions{})
	require.NoError(t, err)

	one := 1
	res, err := p.Migrate(ctx, testMigrations(), ports.MigrateOptions{TargetVersion: &one})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MigrationsRun)
	assert.Equal(t, 2, res.FromVersion)
	assert.Equal(t, 1, res.ToVersion)

	got, err := p.Get(ctx, "Post", "p1")
	require.NoError(t, err)
	assert.NotContains(t, got, "status")
}

func TestMigrateDownToZero(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"title": "x"})
	require.NoError(t, err)
	_, err = p.Migrate(ctx, testMigrations(), ports.MigrateOptions{})
	require.NoError(t, err)

	// An explicit 0 is a full rollback, not "default to max".
	zero := 0
	res, err := p.Migrate(ctx, testMigrations(), ports.MigrateOptions{TargetVersion: &zero})
	require.NoError(t, err)
	assert.Equal(t, 2, res.MigrationsRun)
	assert.Equal(t, 2, res.FromVersion)
	assert.Equal(t, 0, res.ToVersion)
	assert.Equal(t, []string{"add-status-field", "add-posts"}, res.AppliedMigrations)

	got, err := p.Get(ctx, "Post", "p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMigrateRejectsNonSequentialVersions(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.Migrate(context.Background(), []ports.Migration{
		{Version: 1, Name: "one"},
		{Version: 3, Name: "three"},
	}, ports.MigrateOptions{})
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = p.Migrate(context.Background(), []ports.Migration{
		{Version: 2, Name: "two"},
	}, ports.MigrateOptions{})
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestMigrateHaltsOnFailure(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "Post", "p1", map[string]interface{}{"count": "not-a-number"})
	require.NoError(t, err)

	migrations := []ports.Migration{
		{
			Version: 1,
			Name:    "rename-count",
			Up: []ports.MigrationOp{
				{Kind: ports.OpRenameField, Entity: "Post", Field: "count", NewField: "total"},
			},
		},
		{
			Version: 2,
			Name:    "numeric-total",
			Up: []ports.MigrationOp{
				{Kind: ports.OpChangeType, Entity: "Post", Field: "total", Transform: func(v interface{}) (interface{}, error) {
					return nil, fmt.Errorf("cannot convert %v", v)
				}},
			},
		},
	}

	res, err := p.Migrate(ctx, migrations, ports.MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.MigrationsRun)
	assert.Equal(t, 1, res.ToVersion)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "numeric-total")

	// Version did not advance past the failed migration.
	res2, err := p.Migrate(ctx, migrations[:1], ports.MigrateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res2.FromVersion)
}

func TestMigrateTransformData(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	_, err := p.Create(ctx, "User", "u1", map[string]interface{}{"name": "ann", "active": true})
	require.NoError(t, err)
	_, err = p.Create(ctx, "User", "u2", map[string]interface{}{"name": "bob", "active": false})
	require.NoError(t, err)

	migrations := []ports.Migration{{
		Version: 1,
		Name:    "flag-active-users",
		Up: []ports.MigrationOp{{
			Kind:   ports.OpTransformData,
			Entity: "User",
			Filter: func(fields map[string]interface{}) bool {
				return fields["active"] == true
			},
			Transform: func(v interface{}) (interface{}, error) {
				fields := v.(map[string]interface{})
				fields["tier"] = "standard"
				return fields, nil
			},
		}},
	}}

	_, err = p.Migrate(ctx, migrations, ports.MigrateOptions{})
	require.NoError(t, err)

	u1, err := p.Get(ctx, "User", "u1")
	require.NoError(t, err)
	assert.Equal(t, "standard", u1["tier"])

	u2, err := p.Get(ctx, "User", "u2")
	require.NoError(t, err)
	assert.NotContains(t, u2, "tier")
}

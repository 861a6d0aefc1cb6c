package ports

import "context"

// TransformFunc rewrites one field value during a migration.
type TransformFunc func(value interface{}) (interface{}, error)

// RecordFilter selects the records a transformData operation touches.
type RecordFilter func(fields map[string]interface{}) bool

// MigrationOpKind enumerates the schema operations a migration may
// perform.
type MigrationOpKind string

const (
	OpAddEntity     MigrationOpKind = "addEntity"
	OpRemoveEntity  MigrationOpKind = "removeEntity"
	OpAddField      MigrationOpKind = "addField"
	OpRemoveField   MigrationOpKind = "removeField"
	OpRenameField   MigrationOpKind = "renameField"
	OpChangeType    MigrationOpKind = "changeType"
	OpTransformData MigrationOpKind = "transformData"
)

// MigrationOp is one step of a migration. The fields used depend on
// the kind; unused fields stay zero.
type MigrationOp struct {
	Kind       MigrationOpKind
	Entity     string
	Field      string
	NewField   string      // renameField target
	Default    interface{} // addField default value
	DeleteData bool        // removeEntity: drop the records too
	Transform  TransformFunc
	Filter     RecordFilter
}

// Migration is one versioned schema change. Versions must be strictly
// sequential starting at 1. Down reverses Up; an empty Down makes the
// migration irreversible.
type Migration struct {
	Version int
	Name    string
	Up      []MigrationOp
	Down    []MigrationOp
}

// RetentionPolicy decides which events the log may discard. The
// default policy retains everything; pruning strategies plug in here.
type RetentionPolicy interface {
	// Retain reports whether an event at the given log index with the
	// given age should be kept.
	Retain(ctx context.Context, index int, ageSeconds float64) bool
}

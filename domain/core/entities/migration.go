package entities

// SchemaVersionType is the internal entity type holding the single
// record that tracks the current schema version.
const SchemaVersionType = "_SchemaVersion"

// SchemaVersionID is the id of that single record.
const SchemaVersionID = "current"

// MigrationResult summarizes one migration run.
type MigrationResult struct {
	MigrationsRun     int      `json:"migrationsRun"`
	FromVersion       int      `json:"fromVersion"`
	ToVersion         int      `json:"toVersion"`
	AppliedMigrations []string `json:"appliedMigrations"`
	Errors            []string `json:"errors"`
}

package memory

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"entstore/application/ports"
	"entstore/domain/core/entities"
	pkgerrors "entstore/pkg/errors"
)

// Migrate brings the stored data from the current schema version to the
// target. Up migrations apply in ascending order, down migrations in
// descending order. The first failing operation halts the run without
// advancing past the failed migration.
func (p *Provider) Migrate(ctx context.Context, migrations []ports.Migration, opts ports.MigrateOptions) (*entities.MigrationResult, error) {
	sorted := make([]ports.Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for i, m := range sorted {
		if m.Version != i+1 {
			return nil, pkgerrors.NewValidationError(
				fmt.Sprintf("migration versions must be sequential starting at 1, got %d at position %d", m.Version, i))
		}
	}

	current := p.currentVersion()
	target := len(sorted)
	if opts.TargetVersion != nil {
		target = *opts.TargetVersion
	}
	if target < 0 || target > len(sorted) {
		return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown target version %d", target))
	}

	result := &entities.MigrationResult{
		FromVersion:       current,
		ToVersion:         current,
		AppliedMigrations: []string{},
		Errors:            []string{},
	}

	switch {
	case target > current:
		for _, m := range sorted[current:target] {
			if err := p.applyOps(ctx, m.Up); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("migration %d (%s): %v", m.Version, m.Name, err))
				p.logger.Error("migration failed",
					zap.Int("version", m.Version),
					zap.String("name", m.Name),
					zap.Error(err))
				return result, nil
			}
			current = m.Version
			p.setVersion(ctx, current)
			result.MigrationsRun++
			result.ToVersion = current
			result.AppliedMigrations = append(result.AppliedMigrations, m.Name)
		}
	case target < current:
		for i := current - 1; i >= target; i-- {
			m := sorted[i]
			if err := p.applyOps(ctx, m.Down); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("migration %d (%s) down: %v", m.Version, m.Name, err))
				p.logger.Error("down migration failed",
					zap.Int("version", m.Version),
					zap.String("name", m.Name),
					zap.Error(err))
				return result, nil
			}
			current = m.Version - 1
			p.setVersion(ctx, current)
			result.MigrationsRun++
			result.ToVersion = current
			result.AppliedMigrations = append(result.AppliedMigrations, m.Name)
		}
	}
	return result, nil
}

// currentVersion reads the single _SchemaVersion record, defaulting to
// zero on a fresh store.
func (p *Provider) currentVersion() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ts := p.types[entities.SchemaVersionType]
	if ts == nil {
		return 0
	}
	rec := ts.records[entities.SchemaVersionID]
	if rec == nil {
		return 0
	}
	if v, ok := toFloat(rec.Fields["version"]); ok {
		return int(v)
	}
	return 0
}

func (p *Provider) setVersion(_ context.Context, version int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := p.typeStoreFor(entities.SchemaVersionType)
	rec := ts.records[entities.SchemaVersionID]
	if rec == nil {
		rec = entities.NewRecord(entities.SchemaVersionType, entities.SchemaVersionID, nil)
		ts.records[rec.ID] = rec
		ts.order = append(ts.order, rec.ID)
	}
	rec.Merge(map[string]interface{}{"version": version})
}

func (p *Provider) applyOps(ctx context.Context, ops []ports.MigrationOp) error {
	for _, op := range ops {
		if err := p.applyOp(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) applyOp(_ context.Context, op ports.MigrationOp) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch op.Kind {
	case ports.OpAddEntity:
		p.typeStoreFor(op.Entity)
		return nil

	case ports.OpRemoveEntity:
		ts := p.types[op.Entity]
		if ts == nil {
			return nil
		}
		if op.DeleteData {
			for _, id := range ts.order {
				p.cleanupRelationsLocked(op.Entity, id)
				delete(p.artifacts, entities.ArtifactURL(op.Entity, id))
			}
			delete(p.types, op.Entity)
			for i, t := range p.typeOrder {
				if t == op.Entity {
					p.typeOrder = append(p.typeOrder[:i], p.typeOrder[i+1:]...)
					break
				}
			}
		}
		return nil

	case ports.OpAddField:
		return p.eachRecordLocked(op.Entity, func(rec *entities.Record) error {
			if _, ok := rec.Fields[op.Field]; !ok {
				rec.Fields[op.Field] = op.Default
			}
			return nil
		})

	case ports.OpRemoveField:
		return p.eachRecordLocked(op.Entity, func(rec *entities.Record) error {
			delete(rec.Fields, op.Field)
			return nil
		})

	case ports.OpRenameField:
		return p.eachRecordLocked(op.Entity, func(rec *entities.Record) error {
			if v, ok := rec.Fields[op.Field]; ok {
				rec.Fields[op.NewField] = v
				delete(rec.Fields, op.Field)
			}
			return nil
		})

	case ports.OpChangeType:
		if op.Transform == nil {
			return pkgerrors.NewValidationError("changeType requires a transform")
		}
		return p.eachRecordLocked(op.Entity, func(rec *entities.Record) error {
			v, ok := rec.Fields[op.Field]
			if !ok {
				return nil
			}
			converted, err := op.Transform(v)
			if err != nil {
				return err
			}
			rec.Fields[op.Field] = converted
			return nil
		})

	case ports.OpTransformData:
		if op.Transform == nil {
			return pkgerrors.NewValidationError("transformData requires a transform")
		}
		return p.eachRecordLocked(op.Entity, func(rec *entities.Record) error {
			if op.Filter != nil && !op.Filter(rec.Fields) {
				return nil
			}
			transformed, err := op.Transform(rec.Fields)
			if err != nil {
				return err
			}
			if fields, ok := transformed.(map[string]interface{}); ok {
				rec.Fields = fields
			}
			return nil
		})
	}
	return pkgerrors.NewValidationError(fmt.Sprintf("unknown migration operation %q", op.Kind))
}

// eachRecordLocked visits every record of a type in insertion order.
func (p *Provider) eachRecordLocked(typeName string, fn func(rec *entities.Record) error) error {
	ts := p.types[typeName]
	if ts == nil {
		return nil
	}
	for _, id := range ts.order {
		if err := fn(ts.records[id]); err != nil {
			return err
		}
	}
	return nil
}

package memory

import (
	"context"
	"fmt"

	"entstore/application/ports"
	"entstore/domain/core/validators"
	pkgerrors "entstore/pkg/errors"
)

// CreateMany creates a batch of records. The size check runs before any
// per-item work; per-item failures abort the remainder.
func (p *Provider) CreateMany(ctx context.Context, typeName string, items []ports.BatchItem) ([]ports.Projection, error) {
	if err := validators.BatchSize(len(items)); err != nil {
		return nil, err
	}

	out := make([]ports.Projection, 0, len(items))
	for _, item := range items {
		proj, err := p.Create(ctx, typeName, item.ID, item.Data)
		if err != nil {
			return out, err
		}
		out = append(out, proj)
	}
	return out, nil
}

// UpdateMany updates a batch of records.
func (p *Provider) UpdateMany(ctx context.Context, typeName string, items []ports.BatchItem) ([]ports.Projection, error) {
	if err := validators.BatchSize(len(items)); err != nil {
		return nil, err
	}

	out := make([]ports.Projection, 0, len(items))
	for _, item := range items {
		proj, err := p.Update(ctx, typeName, item.ID, item.Data)
		if err != nil {
			return out, err
		}
		out = append(out, proj)
	}
	return out, nil
}

// DeleteMany deletes a batch of records and reports how many existed.
func (p *Provider) DeleteMany(ctx context.Context, typeName string, ids []string) (int, error) {
	if err := validators.BatchSize(len(ids)); err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		ok, err := p.Delete(ctx, typeName, id)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

// PerformMany runs a heterogeneous batch, collecting per-operation
// outcomes instead of aborting on the first failure.
func (p *Provider) PerformMany(ctx context.Context, ops []ports.BatchOp) ([]ports.BatchOpResult, error) {
	if err := validators.BatchSize(len(ops)); err != nil {
		return nil, err
	}

	out := make([]ports.BatchOpResult, 0, len(ops))
	for _, op := range ops {
		result := ports.BatchOpResult{Op: op}
		proj, err := p.performOne(ctx, op)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Result = proj
		}
		out = append(out, result)
	}
	return out, nil
}

func (p *Provider) performOne(ctx context.Context, op ports.BatchOp) (ports.Projection, error) {
	switch op.Op {
	case ports.BatchOpCreate:
		return p.Create(ctx, op.Type, op.ID, op.Data)
	case ports.BatchOpUpdate:
		return p.Update(ctx, op.Type, op.ID, op.Data)
	case ports.BatchOpDelete:
		existed, err := p.Delete(ctx, op.Type, op.ID)
		if err != nil {
			return nil, err
		}
		return ports.Projection{"deleted": existed}, nil
	}
	return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown batch operation %q", op.Op))
}

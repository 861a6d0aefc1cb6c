package memory

import (
	"context"
	"fmt"
	"sync"

	"entstore/application/ports"
	"entstore/domain/core/entities"
	pkgerrors "entstore/pkg/errors"
)

type txnOpKind string

const (
	txnCreate txnOpKind = "create"
	txnUpdate txnOpKind = "update"
	txnDelete txnOpKind = "delete"
	txnRelate txnOpKind = "relate"
)

// txnOp is one buffered operation, replayed verbatim on commit.
type txnOp struct {
	kind     txnOpKind
	typeName string
	id       string // temp id for creates without one
	tempID   bool
	data     map[string]interface{}
	from     ports.EntityRef
	relation string
	to       ports.EntityRef
}

// transaction buffers planned operations without touching the store.
// Commit replays them in insertion order with full side effects.
type transaction struct {
	mu       sync.Mutex
	provider *Provider
	status   ports.TransactionStatus
	staged   map[string]*entities.Record
	tombs    map[string]bool
	ops      []txnOp
	tempSeq  int
}

// BeginTransaction opens a new transaction buffer against the provider.
func (p *Provider) BeginTransaction(_ context.Context) (ports.Transaction, error) {
	return &transaction{
		provider: p,
		status:   ports.TxnOpen,
		staged:   make(map[string]*entities.Record),
		tombs:    make(map[string]bool),
	}, nil
}

func stageKey(typeName, id string) string {
	return typeName + ":" + id
}

func (t *transaction) closedErr() error {
	if t.status == ports.TxnOpen {
		return nil
	}
	return pkgerrors.NewTransactionClosedError(string(t.status))
}

// Get resolves through tombstones, then the staged buffer, then the
// underlying store.
func (t *transaction) Get(ctx context.Context, typeName, id string) (ports.Projection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closedErr(); err != nil {
		return nil, err
	}
	return t.getLocked(ctx, typeName, id)
}

func (t *transaction) getLocked(ctx context.Context, typeName, id string) (ports.Projection, error) {
	key := stageKey(typeName, id)
	if t.tombs[key] {
		return nil, nil
	}
	if rec := t.staged[key]; rec != nil {
		return rec.Projection(), nil
	}
	return t.provider.Get(ctx, typeName, id)
}

// Create stages a new entity, allocating "txn-temp-N" when no id is
// given. The temporary id is replaced by a real one on commit.
func (t *transaction) Create(ctx context.Context, typeName, id string, data map[string]interface{}) (ports.Projection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closedErr(); err != nil {
		return nil, err
	}

	temp := id == ""
	if temp {
		t.tempSeq++
		id = fmt.Sprintf("txn-temp-%d", t.tempSeq)
	} else {
		existing, err := t.getLocked(ctx, typeName, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, pkgerrors.NewAlreadyExistsError(fmt.Sprintf("%s/%s", typeName, id))
		}
	}

	key := stageKey(typeName, id)
	delete(t.tombs, key)
	rec := entities.NewRecord(typeName, id, data)
	t.staged[key] = rec
	t.ops = append(t.ops, txnOp{
		kind:     txnCreate,
		typeName: typeName,
		id:       id,
		tempID:   temp,
		data:     data,
	})
	return rec.Projection(), nil
}

// Update merges a patch into the transaction's view of the entity.
func (t *transaction) Update(ctx context.Context, typeName, id string, data map[string]interface{}) (ports.Projection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closedErr(); err != nil {
		return nil, err
	}

	current, err := t.getLocked(ctx, typeName, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("%s/%s", typeName, id))
	}

	key := stageKey(typeName, id)
	rec := t.staged[key]
	if rec == nil {
		// Materialize the store state into the buffer before merging.
		fields := make(map[string]interface{}, len(current))
		for k, v := range current {
			if k == "createdAt" || k == "updatedAt" || entities.IsReservedKey(k) {
				continue
			}
			fields[k] = v
		}
		rec = entities.NewRecord(typeName, id, fields)
		t.staged[key] = rec
	}
	rec.Merge(data)
	t.ops = append(t.ops, txnOp{kind: txnUpdate, typeName: typeName, id: id, data: data})
	return rec.Projection(), nil
}

// Delete verifies existence, drops any staged state and tombstones the
// entity.
func (t *transaction) Delete(ctx context.Context, typeName, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closedErr(); err != nil {
		return err
	}

	current, err := t.getLocked(ctx, typeName, id)
	if err != nil {
		return err
	}
	if current == nil {
		return pkgerrors.NewNotFoundError(fmt.Sprintf("%s/%s", typeName, id))
	}

	key := stageKey(typeName, id)
	delete(t.staged, key)
	t.tombs[key] = true
	t.ops = append(t.ops, txnOp{kind: txnDelete, typeName: typeName, id: id})
	return nil
}

// Relate records the edge in the operation log only.
func (t *transaction) Relate(_ context.Context, from ports.EntityRef, relation string, to ports.EntityRef) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closedErr(); err != nil {
		return err
	}
	t.ops = append(t.ops, txnOp{kind: txnRelate, from: from, relation: relation, to: to})
	return nil
}

// Commit replays the buffered operations against the store in
// insertion order, each with its full side-effect chain. The
// transaction is marked committed before replay begins; a failed
// operation halts the remainder without rolling back what was already
// applied.
func (t *transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closedErr(); err != nil {
		return err
	}
	t.status = ports.TxnCommitted

	// Temporary create ids resolve to the real ids the store assigns.
	actual := make(map[string]string)
	resolve := func(typeName, id string) string {
		if real, ok := actual[stageKey(typeName, id)]; ok {
			return real
		}
		return id
	}

	for _, op := range t.ops {
		switch op.kind {
		case txnCreate:
			id := op.id
			if op.tempID {
				id = ""
			}
			proj, err := t.provider.Create(ctx, op.typeName, id, op.data)
			if err != nil {
				return err
			}
			if op.tempID {
				actual[stageKey(op.typeName, op.id)] = proj[entities.KeyID].(string)
			}
		case txnUpdate:
			if _, err := t.provider.Update(ctx, op.typeName, resolve(op.typeName, op.id), op.data); err != nil {
				return err
			}
		case txnDelete:
			if _, err := t.provider.Delete(ctx, op.typeName, resolve(op.typeName, op.id)); err != nil {
				return err
			}
		case txnRelate:
			from := op.from
			from.ID = resolve(from.Type, from.ID)
			to := op.to
			to.ID = resolve(to.Type, to.ID)
			if err := t.provider.Relate(ctx, from, op.relation, to, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// Rollback discards every buffer.
func (t *transaction) Rollback(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closedErr(); err != nil {
		return err
	}
	t.status = ports.TxnRolledBack
	t.staged = nil
	t.tombs = nil
	t.ops = nil
	return nil
}

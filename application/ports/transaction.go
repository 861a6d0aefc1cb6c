package ports

import "context"

// Transaction buffers planned operations against a provider without
// committing them. Commit replays the buffered operations in insertion
// order with their full side-effect chains; any call after commit or
// rollback raises a TRANSACTION_CLOSED error.
type Transaction interface {
	// Get checks tombstones first, then the staged buffer, then the
	// underlying store.
	Get(ctx context.Context, typeName, id string) (Projection, error)
	// Create stages a new entity. An empty id gets a temporary
	// "txn-temp-N" id, replaced on commit.
	Create(ctx context.Context, typeName, id string, data map[string]interface{}) (Projection, error)
	Update(ctx context.Context, typeName, id string, data map[string]interface{}) (Projection, error)
	Delete(ctx context.Context, typeName, id string) error
	Relate(ctx context.Context, from EntityRef, relation string, to EntityRef) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionStatus is the lifecycle state of a transaction buffer.
type TransactionStatus string

const (
	TxnOpen       TransactionStatus = "open"
	TxnCommitted  TransactionStatus = "committed"
	TxnRolledBack TransactionStatus = "rolledback"
)

// Package entities holds the core domain types of the store: entity
// records, actions, artifacts and the schema version marker.
package entities

import (
	"time"

	"github.com/google/uuid"
)

// Reserved projection keys. They are stripped from stored fields and
// re-attached (or computed) on the way out.
const (
	KeyID           = "$id"
	KeyType         = "$type"
	KeyScore        = "$score"
	KeyRRFScore     = "$rrfScore"
	KeyFTSRank      = "$ftsRank"
	KeySemanticRank = "$semanticRank"
)

var reservedKeys = map[string]struct{}{
	KeyID:           {},
	KeyType:         {},
	KeyScore:        {},
	KeyRRFScore:     {},
	KeyFTSRank:      {},
	KeySemanticRank: {},
}

// IsReservedKey reports whether k is a projection-only key.
func IsReservedKey(k string) bool {
	_, ok := reservedKeys[k]
	return ok
}

// Record is one stored entity. Fields never contain reserved keys;
// CreatedAt is immutable after creation.
type Record struct {
	ID        string
	Type      string
	Fields    map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates a record of the given type. An empty id gets a fresh
// UUID. Reserved keys in data are dropped silently.
func NewRecord(typeName, id string, data map[string]interface{}) *Record {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	r := &Record{
		ID:        id,
		Type:      typeName,
		Fields:    make(map[string]interface{}, len(data)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for k, v := range data {
		if !IsReservedKey(k) {
			r.Fields[k] = v
		}
	}
	return r
}

// Merge applies a patch on top of the current fields and refreshes
// UpdatedAt. Reserved keys in the patch are dropped.
func (r *Record) Merge(patch map[string]interface{}) {
	for k, v := range patch {
		if !IsReservedKey(k) {
			r.Fields[k] = v
		}
	}
	r.UpdatedAt = time.Now()
}

// Clone returns a copy with its own fields map. Field values are shared.
func (r *Record) Clone() *Record {
	fields := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return &Record{
		ID:        r.ID,
		Type:      r.Type,
		Fields:    fields,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Projection returns the outward shape of the record: all fields plus
// $id, $type and the timestamps.
func (r *Record) Projection() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Fields)+4)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[KeyID] = r.ID
	out[KeyType] = r.Type
	out["createdAt"] = r.CreatedAt
	out["updatedAt"] = r.UpdatedAt
	return out
}

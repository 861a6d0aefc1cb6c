package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"entstore/application/ports"
	"entstore/domain/core/entities"
	"entstore/domain/core/validators"
	"entstore/domain/events"
	pkgerrors "entstore/pkg/errors"
)

// Get returns the record projection, or nil when absent.
func (p *Provider) Get(_ context.Context, typeName, id string) (ports.Projection, error) {
	if err := validators.TypeName(typeName); err != nil {
		return nil, err
	}
	if err := validators.EntityID(id); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	ts := p.types[typeName]
	if ts == nil {
		return nil, nil
	}
	rec := ts.records[id]
	if rec == nil {
		return nil, nil
	}
	return rec.Projection(), nil
}

// List filters, orders and pages the records of one type.
func (p *Provider) List(_ context.Context, typeName string, opts ports.ListOptions) ([]ports.Projection, error) {
	if err := validators.TypeName(typeName); err != nil {
		return nil, err
	}
	for k := range opts.Where {
		if err := validators.FieldName(k); err != nil {
			return nil, err
		}
	}
	if opts.OrderBy != "" {
		if err := validators.FieldName(opts.OrderBy); err != nil {
			return nil, err
		}
	}

	p.mu.RLock()
	records := p.snapshotType(typeName)
	p.mu.RUnlock()

	var matched []*entities.Record
	for _, rec := range records {
		if whereMatches(rec, opts.Where) {
			matched = append(matched, rec)
		}
	}

	if opts.OrderBy != "" {
		desc := opts.Direction == ports.SortDesc
		sortRecords(matched, opts.OrderBy, desc)
	}

	matched = pageRecords(matched, opts.Offset, opts.Limit)

	out := make([]ports.Projection, len(matched))
	for i, rec := range matched {
		out[i] = rec.Projection()
	}
	return out, nil
}

// Create stores a new record, auto-embeds it and emits the type event
// followed by the global one.
func (p *Provider) Create(ctx context.Context, typeName, id string, data map[string]interface{}) (ports.Projection, error) {
	if err := validators.TypeName(typeName); err != nil {
		return nil, err
	}
	if id != "" {
		if err := validators.EntityID(id); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	ts := p.typeStoreFor(typeName)
	if id != "" {
		if _, exists := ts.records[id]; exists {
			p.mu.Unlock()
			return nil, pkgerrors.NewAlreadyExistsError(fmt.Sprintf("%s/%s", typeName, id))
		}
	}

	rec := entities.NewRecord(typeName, id, data)
	ts.records[rec.ID] = rec
	ts.order = append(ts.order, rec.ID)

	pending := p.appendEntityEventsLocked(typeName, rec, "created", events.GlobalEntityCreated)
	snapshot := rec.Clone()
	proj := rec.Projection()
	p.mu.Unlock()

	p.autoEmbed(ctx, snapshot)
	p.dispatchAll(ctx, pending)

	return proj, nil
}

// Update merges a patch into an existing record, re-embeds it and
// invalidates the entity's non-embedding artifacts.
func (p *Provider) Update(ctx context.Context, typeName, id string, data map[string]interface{}) (ports.Projection, error) {
	if err := validators.TypeName(typeName); err != nil {
		return nil, err
	}
	if err := validators.EntityID(id); err != nil {
		return nil, err
	}

	p.mu.Lock()
	ts := p.types[typeName]
	var rec *entities.Record
	if ts != nil {
		rec = ts.records[id]
	}
	if rec == nil {
		p.mu.Unlock()
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("%s/%s", typeName, id))
	}

	rec.Merge(data)
	p.invalidateArtifactsLocked(entities.ArtifactURL(typeName, id))
	pending := p.appendEntityEventsLocked(typeName, rec, "updated", events.GlobalEntityUpdated)
	snapshot := rec.Clone()
	proj := rec.Projection()
	p.mu.Unlock()

	p.autoEmbed(ctx, snapshot)
	p.dispatchAll(ctx, pending)

	return proj, nil
}

// Delete removes a record together with its incident relations and all
// its artifacts. A missing entity returns false without error.
func (p *Provider) Delete(ctx context.Context, typeName, id string) (bool, error) {
	if err := validators.TypeName(typeName); err != nil {
		return false, err
	}
	if err := validators.EntityID(id); err != nil {
		return false, err
	}

	p.mu.Lock()
	ts := p.types[typeName]
	var rec *entities.Record
	if ts != nil {
		rec = ts.records[id]
	}
	if rec == nil {
		p.mu.Unlock()
		return false, nil
	}

	delete(ts.records, id)
	for i, oid := range ts.order {
		if oid == id {
			ts.order = append(ts.order[:i], ts.order[i+1:]...)
			break
		}
	}
	p.cleanupRelationsLocked(typeName, id)
	delete(p.artifacts, entities.ArtifactURL(typeName, id))

	pending := p.appendEntityEventsLocked(typeName, rec, "deleted", events.GlobalEntityDeleted)
	p.mu.Unlock()

	p.dispatchAll(ctx, pending)
	return true, nil
}

// Search runs a case-insensitive substring match over the named fields,
// or over the serialized record when none are given. The score is
// 1 - firstHitIndex/textLen.
func (p *Provider) Search(_ context.Context, typeName, query string, opts ports.SearchOptions) ([]ports.Projection, error) {
	if err := validators.TypeName(typeName); err != nil {
		return nil, err
	}
	if err := validators.FieldNames(opts.Fields); err != nil {
		return nil, err
	}

	p.mu.RLock()
	records := p.snapshotType(typeName)
	p.mu.RUnlock()

	type hit struct {
		rec   *entities.Record
		score float64
	}
	var hits []hit
	needle := strings.ToLower(query)
	for _, rec := range records {
		text := searchableText(rec, opts.Fields)
		if text == "" {
			continue
		}
		idx := strings.Index(strings.ToLower(text), needle)
		if idx < 0 {
			continue
		}
		score := 1 - float64(idx)/float64(len(text))
		if score < opts.MinScore {
			continue
		}
		hits = append(hits, hit{rec: rec, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}

	out := make([]ports.Projection, len(hits))
	for i, h := range hits {
		proj := h.rec.Projection()
		proj[entities.KeyScore] = h.score
		out[i] = proj
	}
	return out, nil
}

// snapshotType clones the type's records in insertion order, detaching
// the caller from merges that land after the lock is released. Callers
// hold at least the read lock.
func (p *Provider) snapshotType(typeName string) []*entities.Record {
	ts := p.types[typeName]
	if ts == nil {
		return nil
	}
	out := make([]*entities.Record, 0, len(ts.order))
	for _, id := range ts.order {
		out = append(out, ts.records[id].Clone())
	}
	return out
}

// appendEntityEventsLocked appends the type-specific event and then the
// global one, returning the dispatches to run after unlocking.
func (p *Provider) appendEntityEventsLocked(typeName string, rec *entities.Record, verb, global string) []pendingDispatch {
	object := entities.ArtifactURL(typeName, rec.ID)
	data := rec.Projection()

	typed := events.New(events.EntityEventName(typeName, verb))
	typed.Actor = "system"
	typed.Object = object
	typed.ObjectData = data

	glob := events.New(global)
	glob.Actor = "system"
	glob.Object = object
	glob.ObjectData = data

	pending := []pendingDispatch{p.appendEventLocked(typed)}
	return append(pending, p.appendEventLocked(glob))
}

func whereMatches(rec *entities.Record, where map[string]interface{}) bool {
	for k, want := range where {
		got, ok := rec.Fields[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if fa, oka := toFloat(a); oka {
		if fb, okb := toFloat(b); okb {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// sortRecords orders by one field. Records missing the field sort last
// ascending and first descending; ties keep insertion order.
func sortRecords(records []*entities.Record, field string, desc bool) {
	sort.SliceStable(records, func(i, j int) bool {
		va, oka := records[i].Fields[field]
		vb, okb := records[j].Fields[field]
		if !oka && !okb {
			return false
		}
		if !oka {
			return desc
		}
		if !okb {
			return !desc
		}
		c := compareValues(va, vb)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b interface{}) int {
	if fa, oka := toFloat(a); oka {
		if fb, okb := toFloat(b); okb {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, oka := a.(time.Time); oka {
		if tb, okb := b.(time.Time); okb {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			}
			return 0
		}
	}
	if ba, oka := a.(bool); oka {
		if bb, okb := b.(bool); okb {
			switch {
			case !ba && bb:
				return -1
			case ba && !bb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func pageRecords(records []*entities.Record, offset, limit int) []*entities.Record {
	if offset > 0 {
		if offset >= len(records) {
			return nil
		}
		records = records[offset:]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

// searchableText builds the haystack for substring search: the named
// fields joined, or the serialized record minus the reserved keys.
func searchableText(rec *entities.Record, fields []string) string {
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			if v, ok := rec.Fields[f]; ok {
				parts = append(parts, stringify(v))
			}
		}
		return strings.TrimSpace(strings.Join(parts, " "))
	}
	raw, err := json.Marshal(rec.Fields)
	if err != nil {
		return ""
	}
	return string(raw)
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

package memory

import (
	"context"
	"fmt"
	"strings"

	"entstore/application/ports"
	"entstore/domain/core/validators"
	"entstore/domain/events"
)

// relationSet keeps one relation key's targets in insertion order.
type relationSet struct {
	order []string
	set   map[string]struct{}
}

func newRelationSet() *relationSet {
	return &relationSet{set: make(map[string]struct{})}
}

func (s *relationSet) add(target string) bool {
	if _, ok := s.set[target]; ok {
		return false
	}
	s.set[target] = struct{}{}
	s.order = append(s.order, target)
	return true
}

func (s *relationSet) remove(target string) bool {
	if _, ok := s.set[target]; !ok {
		return false
	}
	delete(s.set, target)
	for i, t := range s.order {
		if t == target {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func relationKey(fromType, fromID, relation string) string {
	return fmt.Sprintf("%s:%s:%s", fromType, fromID, relation)
}

func targetKey(toType, toID string) string {
	return fmt.Sprintf("%s:%s", toType, toID)
}

func validateRef(ref ports.EntityRef) error {
	if err := validators.TypeName(ref.Type); err != nil {
		return err
	}
	return validators.EntityID(ref.ID)
}

// Relate adds a directed edge and emits a Relation.created event. The
// optional meta carries fuzzy-match details.
func (p *Provider) Relate(ctx context.Context, from ports.EntityRef, relation string, to ports.EntityRef, meta *ports.RelationMeta) error {
	if err := validateRef(from); err != nil {
		return err
	}
	if err := validateRef(to); err != nil {
		return err
	}
	if err := validators.RelationName(relation); err != nil {
		return err
	}

	p.mu.Lock()
	key := relationKey(from.Type, from.ID, relation)
	set := p.relations[key]
	if set == nil {
		set = newRelationSet()
		p.relations[key] = set
	}
	set.add(targetKey(to.Type, to.ID))

	e := events.New("Relation.created")
	e.Actor = "system"
	e.Object = fmt.Sprintf("%s/%s", from.Type, from.ID)
	e.ObjectData = map[string]interface{}{
		"relation": relation,
		"toType":   to.Type,
		"toId":     to.ID,
	}
	if meta != nil {
		e.Meta = map[string]interface{}{
			"matchMode":   meta.MatchMode,
			"similarity":  meta.Similarity,
			"matchedType": meta.MatchedType,
		}
	}
	pending := p.appendEventLocked(e)
	p.mu.Unlock()

	p.dispatchAll(ctx, []pendingDispatch{pending})
	return nil
}

// Unrelate removes one directed edge. Removing an absent edge is a
// no-op.
func (p *Provider) Unrelate(_ context.Context, from ports.EntityRef, relation string, to ports.EntityRef) error {
	if err := validateRef(from); err != nil {
		return err
	}
	if err := validateRef(to); err != nil {
		return err
	}
	if err := validators.RelationName(relation); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := relationKey(from.Type, from.ID, relation)
	if set := p.relations[key]; set != nil {
		set.remove(targetKey(to.Type, to.ID))
		if len(set.order) == 0 {
			delete(p.relations, key)
		}
	}
	return nil
}

// Related resolves one relation's targets to their record projections,
// in insertion order. Delete cleanup removes incident edges, so a
// lookup only misses when the edge was created against an entity that
// never existed; those edges are skipped.
func (p *Provider) Related(_ context.Context, from ports.EntityRef, relation string) ([]ports.Projection, error) {
	if err := validateRef(from); err != nil {
		return nil, err
	}
	if err := validators.RelationName(relation); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	set := p.relations[relationKey(from.Type, from.ID, relation)]
	if set == nil {
		return nil, nil
	}
	out := make([]ports.Projection, 0, len(set.order))
	for _, t := range set.order {
		parts := strings.SplitN(t, ":", 2)
		ts := p.types[parts[0]]
		if ts == nil {
			continue
		}
		rec := ts.records[parts[1]]
		if rec == nil {
			continue
		}
		out = append(out, rec.Projection())
	}
	return out, nil
}

// cleanupRelationsLocked removes every edge incident to the entity, in
// both directions. Callers hold the write lock.
func (p *Provider) cleanupRelationsLocked(typeName, id string) {
	prefix := typeName + ":" + id + ":"
	target := targetKey(typeName, id)

	for key, set := range p.relations {
		if strings.HasPrefix(key, prefix) {
			delete(p.relations, key)
			continue
		}
		set.remove(target)
		if len(set.order) == 0 {
			delete(p.relations, key)
		}
	}
}

package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"entstore/application/ports"
	"entstore/domain/events"
	pkgerrors "entstore/pkg/errors"
)

// pendingDispatch is one appended event together with the handlers that
// matched it at append time. Dispatch runs after the write lock drops.
type pendingDispatch struct {
	event *events.Event
	subs  []*subscription
}

// appendEventLocked appends to the log and snapshots the matching
// subscriptions in registration order. Callers hold the write lock.
func (p *Provider) appendEventLocked(e *events.Event) pendingDispatch {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	p.log = append(p.log, e)
	p.metrics.EventEmitted()

	var subs []*subscription
	for _, s := range p.subs {
		if events.MatchPattern(e.Event, s.pattern) {
			subs = append(subs, s)
		}
	}
	return pendingDispatch{event: e, subs: subs}
}

// dispatchAll invokes the matched handlers of each pending event in
// order, each invocation bounded by the limiter. Handler failures are
// logged and never abort emission.
func (p *Provider) dispatchAll(ctx context.Context, pending []pendingDispatch) {
	for _, pd := range pending {
		for _, s := range pd.subs {
			handler := s.handler
			err := p.limiter.Run(ctx, func() error {
				return handler(pd.event)
			})
			if err != nil {
				p.metrics.HandlerError()
				p.logger.Warn("event handler failed",
					zap.String("event", pd.event.Event),
					zap.String("pattern", s.pattern),
					zap.Error(pkgerrors.NewSubscriberError(s.pattern, err)))
			}
		}
	}
	p.metrics.SetLimiter(p.limiter.Active(), p.limiter.Pending())
}

// Emit appends a full-shape event and dispatches matching handlers.
func (p *Provider) Emit(ctx context.Context, e *events.Event) error {
	if e == nil || e.Event == "" {
		return pkgerrors.NewValidationError("event name must not be empty")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	p.mu.Lock()
	pending := p.appendEventLocked(e)
	p.mu.Unlock()

	p.dispatchAll(ctx, []pendingDispatch{pending})
	return nil
}

// EmitLegacy appends an event given in the legacy (name, data) form.
func (p *Provider) EmitLegacy(ctx context.Context, name string, data map[string]interface{}) error {
	if name == "" {
		return pkgerrors.NewValidationError("event name must not be empty")
	}
	return p.Emit(ctx, events.FromLegacy(name, data))
}

// On registers a handler for a pattern. The returned function removes
// exactly this binding; calling it twice is harmless.
func (p *Provider) On(pattern string, h events.Handler) events.Unsubscribe {
	p.mu.Lock()
	p.nextID++
	sub := &subscription{id: p.nextID, pattern: pattern, handler: h}
	p.subs = append(p.subs, sub)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subs {
			if s.id == sub.id {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

// ListEvents filters the log and returns the most recent Limit entries
// in append order.
func (p *Provider) ListEvents(_ context.Context, f ports.EventFilter) ([]*events.Event, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*events.Event
	for _, e := range p.log {
		if eventMatchesFilter(e, f.Event, f.Actor, f.Object, f.Since, f.Until) {
			out = append(out, e)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// ReplayEvents re-invokes a handler over the filtered history in append
// order, each invocation bounded by the limiter. It returns the number
// of invocations; handler failures are logged and skipped.
func (p *Provider) ReplayEvents(ctx context.Context, opts ports.ReplayOptions) (int, error) {
	if opts.Handler == nil {
		return 0, pkgerrors.NewValidationError("replay handler must not be nil")
	}

	p.mu.RLock()
	var selected []*events.Event
	for _, e := range p.log {
		if eventMatchesFilter(e, opts.Event, opts.Actor, "", opts.Since, nil) {
			selected = append(selected, e)
		}
	}
	p.mu.RUnlock()

	count := 0
	for _, e := range selected {
		e := e
		err := p.limiter.Run(ctx, func() error {
			return opts.Handler(e)
		})
		if err != nil {
			if ctx.Err() != nil {
				return count, err
			}
			p.metrics.HandlerError()
			p.logger.Warn("replay handler failed",
				zap.String("event", e.Event),
				zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}

// PruneEvents applies the retention policy to the log and reports how
// many events were discarded. Without a policy nothing is pruned.
func (p *Provider) PruneEvents(ctx context.Context) (int, error) {
	if p.retention == nil {
		return 0, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	kept := p.log[:0]
	dropped := 0
	for i, e := range p.log {
		if p.retention.Retain(ctx, i, now.Sub(e.Timestamp).Seconds()) {
			kept = append(kept, e)
		} else {
			dropped++
		}
	}
	p.log = kept
	return dropped, nil
}

func eventMatchesFilter(e *events.Event, pattern, actor, object string, since, until *time.Time) bool {
	if pattern != "" && !events.MatchPattern(e.Event, pattern) {
		return false
	}
	if actor != "" && e.Actor != actor {
		return false
	}
	if object != "" && e.Object != object {
		return false
	}
	if since != nil && e.Timestamp.Before(*since) {
		return false
	}
	if until != nil && e.Timestamp.After(*until) {
		return false
	}
	return true
}

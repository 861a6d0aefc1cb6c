package memory

import (
	"context"
	"fmt"

	"entstore/application/ports"
	"entstore/domain/core/entities"
	"entstore/domain/events"
	pkgerrors "entstore/pkg/errors"
)

// CreateAction registers a new pending action and emits Action.created.
func (p *Provider) CreateAction(ctx context.Context, actor, verb string, params entities.ActionParams) (*entities.Action, error) {
	a, err := entities.NewAction(actor, verb, params)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if _, exists := p.actions[a.ID]; exists {
		p.mu.Unlock()
		return nil, pkgerrors.NewAlreadyExistsError("action " + a.ID)
	}
	p.actions[a.ID] = a
	p.actionOrder = append(p.actionOrder, a.ID)
	pending := p.appendActionEventLocked(a, "Action.created")
	p.mu.Unlock()

	p.dispatchAll(ctx, []pendingDispatch{pending})
	return cloneAction(a), nil
}

// GetAction returns a copy of the action, or a NOT_FOUND error.
func (p *Provider) GetAction(_ context.Context, id string) (*entities.Action, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	a := p.actions[id]
	if a == nil {
		return nil, pkgerrors.NewNotFoundError("action " + id)
	}
	return cloneAction(a), nil
}

// UpdateAction applies a partial update. A status change runs through
// the state machine and emits the matching lifecycle event.
func (p *Provider) UpdateAction(ctx context.Context, id string, u ports.ActionUpdate) (*entities.Action, error) {
	p.mu.Lock()
	a := p.actions[id]
	if a == nil {
		p.mu.Unlock()
		return nil, pkgerrors.NewNotFoundError("action " + id)
	}

	var pending []pendingDispatch
	if u.Status != nil && *u.Status != a.Status {
		eventName, err := p.transitionLocked(a, *u.Status, u)
		if err != nil {
			p.mu.Unlock()
			return nil, err
		}
		pending = append(pending, p.appendActionEventLocked(a, eventName))
	} else {
		if u.Result != nil {
			a.Result = u.Result
		}
		if u.Error != nil {
			a.Error = *u.Error
		}
	}
	if u.Progress != nil {
		a.SetProgress(*u.Progress, u.Total)
	} else if u.Total != nil {
		a.SetProgress(a.Progress, u.Total)
	}
	if u.Meta != nil {
		if a.Meta == nil {
			a.Meta = make(map[string]interface{}, len(u.Meta))
		}
		for k, v := range u.Meta {
			a.Meta[k] = v
		}
	}
	out := cloneAction(a)
	p.mu.Unlock()

	p.dispatchAll(ctx, pending)
	return out, nil
}

// transitionLocked moves the action to the target status and returns
// the lifecycle event to emit.
func (p *Provider) transitionLocked(a *entities.Action, to entities.ActionStatus, u ports.ActionUpdate) (string, error) {
	switch to {
	case entities.ActionActive:
		return "Action.started", a.Start()
	case entities.ActionCompleted:
		return "Action.completed", a.Complete(u.Result)
	case entities.ActionFailed:
		message := ""
		if u.Error != nil {
			message = *u.Error
		}
		return "Action.failed", a.Fail(message)
	case entities.ActionCancelled:
		return "Action.cancelled", a.Cancel()
	case entities.ActionPending:
		return "Action.retried", a.Retry()
	}
	return "", pkgerrors.NewValidationError(fmt.Sprintf("unknown action status %q", to))
}

// ListActions filters actions, returning the most recent Limit entries
// in creation order.
func (p *Provider) ListActions(_ context.Context, f ports.ActionFilter) ([]*entities.Action, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []*entities.Action
	for _, id := range p.actionOrder {
		a := p.actions[id]
		if f.Actor != "" && a.Actor != f.Actor {
			continue
		}
		if f.Action != "" && a.Action != f.Action {
			continue
		}
		if f.Status != "" && string(a.Status) != f.Status {
			continue
		}
		if f.Object != "" && a.Object != f.Object {
			continue
		}
		out = append(out, cloneAction(a))
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

// RetryAction returns a failed action to pending and emits
// Action.retried.
func (p *Provider) RetryAction(ctx context.Context, id string) (*entities.Action, error) {
	return p.lifecycle(ctx, id, func(a *entities.Action) (string, error) {
		return "Action.retried", a.Retry()
	})
}

// CancelAction terminates a pending or active action and emits
// Action.cancelled.
func (p *Provider) CancelAction(ctx context.Context, id string) (*entities.Action, error) {
	return p.lifecycle(ctx, id, func(a *entities.Action) (string, error) {
		return "Action.cancelled", a.Cancel()
	})
}

func (p *Provider) lifecycle(ctx context.Context, id string, fn func(a *entities.Action) (string, error)) (*entities.Action, error) {
	p.mu.Lock()
	a := p.actions[id]
	if a == nil {
		p.mu.Unlock()
		return nil, pkgerrors.NewNotFoundError("action " + id)
	}
	eventName, err := fn(a)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	pending := p.appendActionEventLocked(a, eventName)
	out := cloneAction(a)
	p.mu.Unlock()

	p.dispatchAll(ctx, []pendingDispatch{pending})
	return out, nil
}

func (p *Provider) appendActionEventLocked(a *entities.Action, name string) pendingDispatch {
	e := events.New(name)
	e.Actor = a.Actor
	e.ActorData = a.ActorData
	e.Object = "Action/" + a.ID
	e.ObjectData = map[string]interface{}{
		"action":   a.Action,
		"act":      a.Act,
		"activity": a.Activity,
		"status":   string(a.Status),
		"progress": a.Progress,
	}
	if a.Object != "" {
		e.ObjectData["object"] = a.Object
	}
	if a.Error != "" {
		e.ObjectData["error"] = a.Error
	}
	return p.appendEventLocked(e)
}

func cloneAction(a *entities.Action) *entities.Action {
	c := *a
	return &c
}

package entities

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "entstore/pkg/errors"
	"entstore/pkg/verbs"
)

// ActionStatus is the lifecycle state of an action.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionActive    ActionStatus = "active"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
	ActionCancelled ActionStatus = "cancelled"
)

// Action is a long-running operation tracked as a first-class entity.
// Its lifecycle is pending -> active -> completed | failed | cancelled,
// with retry returning a failed action to pending.
type Action struct {
	ID        string
	Actor     string
	ActorData map[string]interface{}

	// The three conjugated forms of the verb: "deploy", "deploys",
	// "deploying". They name the derived lifecycle events.
	Action   string
	Act      string
	Activity string

	Object     string
	ObjectData map[string]interface{}

	Status   ActionStatus
	Progress float64
	Total    *float64
	Result   interface{}
	Error    string
	Meta     map[string]interface{}

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// ActionParams carries the optional parts of a new action.
type ActionParams struct {
	ID         string
	ActorData  map[string]interface{}
	Object     string
	ObjectData map[string]interface{}
	Total      *float64
	Meta       map[string]interface{}
}

// NewAction creates a pending action for the given actor and base verb.
func NewAction(actor, verb string, p ActionParams) (*Action, error) {
	if actor == "" {
		return nil, pkgerrors.NewValidationError("action actor must not be empty")
	}
	if verb == "" {
		return nil, pkgerrors.NewValidationError("action verb must not be empty")
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	c := verbs.Conjugate(verb)
	now := time.Now()
	return &Action{
		ID:         id,
		Actor:      actor,
		ActorData:  p.ActorData,
		Action:     c.Action,
		Act:        c.Act,
		Activity:   c.Activity,
		Object:     p.Object,
		ObjectData: p.ObjectData,
		Status:     ActionPending,
		Total:      p.Total,
		Meta:       p.Meta,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Start moves a pending action to active and stamps StartedAt.
func (a *Action) Start() error {
	if a.Status != ActionPending {
		return a.transitionError(ActionActive)
	}
	now := time.Now()
	a.Status = ActionActive
	a.StartedAt = &now
	a.UpdatedAt = now
	return nil
}

// Complete moves an active action to completed with its result.
func (a *Action) Complete(result interface{}) error {
	if a.Status != ActionActive {
		return a.transitionError(ActionCompleted)
	}
	now := time.Now()
	a.Status = ActionCompleted
	a.Result = result
	a.CompletedAt = &now
	a.UpdatedAt = now
	return nil
}

// Fail moves an active action to failed with an error message.
func (a *Action) Fail(message string) error {
	if a.Status != ActionActive {
		return a.transitionError(ActionFailed)
	}
	now := time.Now()
	a.Status = ActionFailed
	a.Error = message
	a.CompletedAt = &now
	a.UpdatedAt = now
	return nil
}

// Cancel terminates a pending or active action.
func (a *Action) Cancel() error {
	if a.Status != ActionPending && a.Status != ActionActive {
		return a.transitionError(ActionCancelled)
	}
	now := time.Now()
	a.Status = ActionCancelled
	a.CompletedAt = &now
	a.UpdatedAt = now
	return nil
}

// Retry returns a failed action to pending, clearing the error and the
// start and completion timestamps.
func (a *Action) Retry() error {
	if a.Status != ActionFailed {
		return a.transitionError(ActionPending)
	}
	a.Status = ActionPending
	a.Error = ""
	a.StartedAt = nil
	a.CompletedAt = nil
	a.UpdatedAt = time.Now()
	return nil
}

// SetProgress updates the progress counter, and the total when given.
func (a *Action) SetProgress(progress float64, total *float64) {
	a.Progress = progress
	if total != nil {
		a.Total = total
	}
	a.UpdatedAt = time.Now()
}

// IsTerminal reports whether the action can no longer change state,
// retry from failed excepted.
func (a *Action) IsTerminal() bool {
	switch a.Status {
	case ActionCompleted, ActionFailed, ActionCancelled:
		return true
	}
	return false
}

func (a *Action) transitionError(to ActionStatus) error {
	return pkgerrors.NewInvalidStateTransitionError(string(a.Status), string(to))
}

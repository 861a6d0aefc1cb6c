// Package events defines the actor-event-object-result event shape and
// the wildcard pattern matching used by subscriptions.
package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Global event names emitted alongside the type-specific ones. Within
// one store operation the type-specific event is always appended first.
const (
	GlobalEntityCreated = "entity:created"
	GlobalEntityUpdated = "entity:updated"
	GlobalEntityDeleted = "entity:deleted"
)

// Event is one immutable entry in the append-only log.
type Event struct {
	ID         string                 `json:"id"`
	Actor      string                 `json:"actor"`
	ActorData  map[string]interface{} `json:"actorData,omitempty"`
	Event      string                 `json:"event"`
	Object     string                 `json:"object,omitempty"`
	ObjectData map[string]interface{} `json:"objectData,omitempty"`
	Result     string                 `json:"result,omitempty"`
	ResultData map[string]interface{} `json:"resultData,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// New creates an event with a fresh id and the current timestamp. The
// remaining fields are filled by the caller before appending.
func New(name string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Event:     name,
		Timestamp: time.Now(),
	}
}

// FromLegacy builds an event from the legacy (eventName, data) emit
// form. Data lands in ObjectData unchanged.
func FromLegacy(name string, data map[string]interface{}) *Event {
	e := New(name)
	e.Actor = "system"
	e.ObjectData = data
	return e
}

// EntityEventName builds the type-specific name for an entity verb,
// e.g. "Post.created".
func EntityEventName(typeName, verb string) string {
	return fmt.Sprintf("%s.%s", typeName, verb)
}

// Handler consumes one event. Returned errors are logged by the bus and
// never abort emission.
type Handler func(e *Event) error

// Unsubscribe removes the handler binding that produced it. Calling it
// more than once is harmless.
type Unsubscribe func()

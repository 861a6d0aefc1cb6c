package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entstore/application/ports"
	"entstore/domain/core/entities"
	pkgerrors "entstore/pkg/errors"
)

func statusPtr(s entities.ActionStatus) *entities.ActionStatus { return &s }

func TestActionLifecycleEmitsInOrder(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	a, err := p.CreateAction(ctx, "worker-1", "deploy", entities.ActionParams{Object: "Service/api"})
	require.NoError(t, err)
	assert.Equal(t, entities.ActionPending, a.Status)

	a, err = p.UpdateAction(ctx, a.ID, ports.ActionUpdate{Status: statusPtr(entities.ActionActive)})
	require.NoError(t, err)
	require.NotNil(t, a.StartedAt)

	a, err = p.UpdateAction(ctx, a.ID, ports.ActionUpdate{
		Status: statusPtr(entities.ActionCompleted),
		Result: map[string]interface{}{"ok": true},
	})
	require.NoError(t, err)
	require.NotNil(t, a.CompletedAt)

	log, err := p.ListEvents(ctx, ports.EventFilter{Event: "Action.*"})
	require.NoError(t, err)
	require.Len(t, log, 3)
	assert.Equal(t, "Action.created", log[0].Event)
	assert.Equal(t, "Action.started", log[1].Event)
	assert.Equal(t, "Action.completed", log[2].Event)
	assert.Equal(t, "deploying", log[1].ObjectData["activity"])

	// Timestamps advance monotonically through the lifecycle.
	assert.False(t, a.StartedAt.Before(a.CreatedAt))
	assert.False(t, a.CompletedAt.Before(*a.StartedAt))
}

func TestActionRetryFlow(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	a, err := p.CreateAction(ctx, "worker-1", "sync", entities.ActionParams{})
	require.NoError(t, err)

	_, err = p.UpdateAction(ctx, a.ID, ports.ActionUpdate{Status: statusPtr(entities.ActionActive)})
	require.NoError(t, err)

	message := "remote unavailable"
	failed, err := p.UpdateAction(ctx, a.ID, ports.ActionUpdate{
		Status: statusPtr(entities.ActionFailed),
		Error:  &message,
	})
	require.NoError(t, err)
	assert.Equal(t, "remote unavailable", failed.Error)

	retried, err := p.RetryAction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ActionPending, retried.Status)
	assert.Empty(t, retried.Error)
	assert.Nil(t, retried.StartedAt)

	// Retry from pending is illegal.
	_, err = p.RetryAction(ctx, a.ID)
	assert.True(t, pkgerrors.IsInvalidStateTransition(err))

	log, err := p.ListEvents(ctx, ports.EventFilter{Event: "Action.retried"})
	require.NoError(t, err)
	assert.Len(t, log, 1)
}

func TestCancelAction(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	a, err := p.CreateAction(ctx, "worker-1", "fetch", entities.ActionParams{})
	require.NoError(t, err)

	cancelled, err := p.CancelAction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ActionCancelled, cancelled.Status)

	_, err = p.CancelAction(ctx, a.ID)
	assert.True(t, pkgerrors.IsInvalidStateTransition(err))

	_, err = p.CancelAction(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestUpdateActionProgress(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	a, err := p.CreateAction(ctx, "worker-1", "process", entities.ActionParams{})
	require.NoError(t, err)

	progress, total := 3.0, 10.0
	a, err = p.UpdateAction(ctx, a.ID, ports.ActionUpdate{
		Progress: &progress,
		Total:    &total,
		Meta:     map[string]interface{}{"source": "queue"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, a.Progress)
	assert.Equal(t, 10.0, *a.Total)
	assert.Equal(t, "queue", a.Meta["source"])
}

func TestListActionsFilter(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	a1, err := p.CreateAction(ctx, "w1", "deploy", entities.ActionParams{})
	require.NoError(t, err)
	_, err = p.CreateAction(ctx, "w2", "deploy", entities.ActionParams{})
	require.NoError(t, err)
	_, err = p.CreateAction(ctx, "w1", "sync", entities.ActionParams{})
	require.NoError(t, err)

	byActor, err := p.ListActions(ctx, ports.ActionFilter{Actor: "w1"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byVerb, err := p.ListActions(ctx, ports.ActionFilter{Action: "deploy"})
	require.NoError(t, err)
	assert.Len(t, byVerb, 2)

	_, err = p.CancelAction(ctx, a1.ID)
	require.NoError(t, err)
	pending, err := p.ListActions(ctx, ports.ActionFilter{Status: "pending"})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	limited, err := p.ListActions(ctx, ports.ActionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetActionReturnsCopy(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	a, err := p.CreateAction(ctx, "w1", "build", entities.ActionParams{})
	require.NoError(t, err)

	got, err := p.GetAction(ctx, a.ID)
	require.NoError(t, err)
	got.Status = entities.ActionCompleted

	again, err := p.GetAction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ActionPending, again.Status)
}

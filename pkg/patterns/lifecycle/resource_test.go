package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spounge-ai/sysaudit/pkg/patterns/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResource struct {
	name     string
	startErr error
	health   lifecycle.HealthStatus
	events   *[]string
}

func (f *fakeResource) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	*f.events = append(*f.events, "start "+f.name)
	return nil
}

func (f *fakeResource) Stop(context.Context) error {
	*f.events = append(*f.events, "stop "+f.name)
	return nil
}

func (f *fakeResource) Health(context.Context) lifecycle.HealthStatus { return f.health }

func TestGroupOrdering(t *testing.T) {
	var events []string
	g := lifecycle.NewGroup(
		&fakeResource{name: "store", events: &events, health: lifecycle.HealthStatus{Ready: true}},
		&fakeResource{name: "api", events: &events, health: lifecycle.HealthStatus{Ready: true}},
	)
	ctx := context.Background()

	require.NoError(t, g.Start(ctx))
	require.NoError(t, g.Start(ctx))
	assert.True(t, g.Health(ctx).Ready)
	require.NoError(t, g.Stop(ctx))
	require.NoError(t, g.Stop(ctx))

	assert.Equal(t, []string{"start store", "start api", "stop api", "stop store"}, events)
}

func TestGroupRollsBackOnStartFailure(t *testing.T) {
	var events []string
	boom := errors.New("bind: address in use")
	g := lifecycle.NewGroup(
		&fakeResource{name: "store", events: &events},
		&fakeResource{name: "api", events: &events, startErr: boom},
	)

	err := g.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start store", "stop store"}, events)
}

func TestGroupHealth(t *testing.T) {
	var events []string
	g := lifecycle.NewGroup(
		&fakeResource{name: "store", events: &events, health: lifecycle.HealthStatus{Ready: false, Message: "ping timeout"}},
		&fakeResource{name: "api", events: &events, health: lifecycle.HealthStatus{Ready: true}},
	)

	h := g.Health(context.Background())
	assert.False(t, h.Ready)
	assert.Equal(t, "ping timeout", h.Message)
}

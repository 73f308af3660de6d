package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/ideagraph/internal/testutil"
)

func recv(t *testing.T, s Subscription) Event {
	t.Helper()
	select {
	case e, ok := <-s.C():
		require.True(t, ok, "subscription closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestMemoryBusDelivers(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, Event{Type: IdeaUpdated, EntityID: "i1", Version: 2}))

	e := recv(t, sub)
	assert.Equal(t, IdeaUpdated, e.Type)
	assert.Equal(t, int64(2), e.Version)
	assert.False(t, e.At.IsZero())
}

func TestMemoryBusCloseEndsSubscription(t *testing.T) {
	bus := NewMemoryBus()
	sub, err := bus.Subscribe(context.Background())
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.C()
	assert.False(t, ok)
	require.NoError(t, bus.Publish(context.Background(), Event{Type: IdeaCreated}))
}

func TestMemoryBusContextCancel(t *testing.T) {
	bus := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-sub.C():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not released")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	bus := NewRedisBus(rdb, "")
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.Publish(ctx, Event{Type: FollowChanged, EntityID: "u2", Version: 7, ActorID: "u1"}))
	e := recv(t, sub)
	assert.Equal(t, FollowChanged, e.Type)
	assert.Equal(t, "u2", e.EntityID)
	assert.Equal(t, "u1", e.ActorID)
	assert.Equal(t, int64(7), e.Version)
}

func TestVersionFilterDropsStale(t *testing.T) {
	f := NewVersionFilter()
	assert.True(t, f.Accept(Event{Type: IdeaUpdated, EntityID: "i1", Version: 3}))
	assert.False(t, f.Accept(Event{Type: IdeaUpdated, EntityID: "i1", Version: 2}))
	assert.False(t, f.Accept(Event{Type: IdeaUpdated, EntityID: "i1", Version: 3}))
	assert.True(t, f.Accept(Event{Type: IdeaUpdated, EntityID: "i2", Version: 1}))
	assert.True(t, f.Accept(Event{Type: LikeChanged, EntityID: "i1"}))

	f.Observe(UserUpdated, "u1", 5)
	assert.False(t, f.Accept(Event{Type: UserUpdated, EntityID: "u1", Version: 4}))
	assert.True(t, f.Accept(Event{Type: UserUpdated, EntityID: "u1", Version: 6}))
}

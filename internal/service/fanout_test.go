package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/push"
)

func TestFanoutWritesNewIdeaNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []string{"author", "f1", "f2", "f3", "stranger"} {
		env.seedUser(t, id)
	}
	for _, id := range []string{"f1", "f2", "f3"} {
		_, err := env.relations.Follow(ctx, id, "author")
		require.NoError(t, err)
	}
	idea := env.seedIdea(t, "author", "shared kitchen", "Health")

	// batchSize 2 走分页
	worker := NewFanoutWorker(env.store, env.notifier, 1, 2, 10, time.Hour, time.Hour)
	n, err := worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, id := range []string{"f1", "f2", "f3"} {
		notes := env.notificationsOf(t, id, model.NotificationNewIdea)
		require.Len(t, notes, 1, id)
		assert.Equal(t, idea.ID, notes[0].RelatedID)
		assert.Equal(t, "author", notes[0].SenderID)
	}
	assert.Empty(t, env.notificationsOf(t, "stranger", model.NotificationNewIdea))

	pending, err := env.store.Outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	n, err = worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFanoutSkipsDeletedIdea(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "author")
	env.seedUser(t, "f1")
	_, err := env.relations.Follow(ctx, "f1", "author")
	require.NoError(t, err)
	idea := env.seedIdea(t, "author", "gone soon", "Other")
	require.NoError(t, env.ideas.DeleteIdea(ctx, "author", idea.ID))

	n, err := NewFanoutWorker(env.store, env.notifier, 1, 10, 10, time.Hour, time.Hour).ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, env.notificationsOf(t, "f1", model.NotificationNewIdea))
}

func TestFanoutWorkerStartStop(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "author")
	env.seedUser(t, "f1")
	_, err := env.relations.Follow(context.Background(), "f1", "author")
	require.NoError(t, err)
	env.seedIdea(t, "author", "polled", "Other")

	stop := NewFanoutWorker(env.store, env.notifier, 1, 10, 10, 10*time.Millisecond, time.Hour).Start()
	assert.Eventually(t, func() bool {
		notes, err := env.store.Notifications.List(context.Background(), "f1", false, 0, 10)
		return err == nil && len(notes) == 1 && notes[0].Type == model.NotificationNewIdea
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
}

func seedFollowers(t *testing.T, env *testEnv, author string, fans ...string) {
	t.Helper()
	env.seedUser(t, author)
	for _, id := range fans {
		env.seedUser(t, id)
		_, err := env.relations.Follow(context.Background(), id, author)
		require.NoError(t, err)
	}
}

func TestFanoutRetriesFailedIdeaWithoutDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedFollowers(t, env, "author", "f1", "f2", "f3")
	env.seedIdea(t, "author", "repair cafe", "Other")

	// 第二页粉丝读取失败，第一页的通知已经写入
	calls := 0
	require.NoError(t, env.store.DB().Callback().Query().Before("gorm:query").Register("test:fail_fans_page", func(db *gorm.DB) {
		if db.Statement.Table != "fans" {
			return
		}
		calls++
		if calls == 2 {
			_ = db.AddError(errors.New("fans index unavailable"))
		}
	}))

	worker := NewFanoutWorker(env.store, env.notifier, 1, 2, 10, time.Hour, time.Hour)
	n, err := worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	pending, err := env.store.Outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	n, err = worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	for _, id := range []string{"f1", "f2", "f3"} {
		assert.Len(t, env.notificationsOf(t, id, model.NotificationNewIdea), 1, id)
	}
	pending, err = env.store.Outbox.CountPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	n, err = worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFanoutReclaimsExpiredLease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedFollowers(t, env, "author", "f1")
	env.seedIdea(t, "author", "night market", "Other")

	// 认领后 worker 崩溃，事件停在 processing
	claimed, err := env.store.Outbox.Claim(ctx, 10, time.Hour)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	worker := NewFanoutWorker(env.store, env.notifier, 1, 10, 10, time.Hour, 10*time.Millisecond)
	n, err := worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	time.Sleep(20 * time.Millisecond)
	n, err = worker.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, env.notificationsOf(t, "f1", model.NotificationNewIdea), 1)
}

type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) Push(ctx context.Context, msg push.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestDispatcherPushesNotifications(t *testing.T) {
	p := &mockPusher{}
	var wg sync.WaitGroup
	wg.Add(2)
	p.On("Push", mock.Anything, mock.MatchedBy(func(m push.Message) bool {
		return m.ReceiverID == "u1" && m.Title == "New like" && m.Ext["related_id"] == "i1"
	})).Return(nil).Run(func(mock.Arguments) { wg.Done() }).Once()
	p.On("Push", mock.Anything, mock.MatchedBy(func(m push.Message) bool {
		return m.ReceiverID == "u2"
	})).Return(errors.New("device offline")).Run(func(mock.Arguments) { wg.Done() }).Once()

	d := NewDispatcher(p, 8)
	stop := d.Start(2)
	assert.True(t, d.Enqueue(&model.Notification{ID: "n1", Type: model.NotificationLike, ReceiverID: "u1", RelatedID: "i1"}))
	assert.True(t, d.Enqueue(&model.Notification{ID: "n2", Type: model.NotificationFollow, ReceiverID: "u2"}))

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pushes not delivered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
	p.AssertExpectations(t)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(nil, 1)
	assert.True(t, d.Enqueue(&model.Notification{ID: "n1"}))
	assert.False(t, d.Enqueue(&model.Notification{ID: "n2"}))
	assert.Equal(t, 1, d.QueueLen())
}

func TestNotifierDeliverPublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := env.bus.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	var nilNotifier *Notifier
	nilNotifier.Deliver(ctx, &model.Notification{ID: "ignored"})

	env.notifier.Deliver(ctx, &model.Notification{ID: "n1", ReceiverID: "u1", Type: model.NotificationSystem})
	select {
	case e := <-sub.C():
		assert.Equal(t, "n1", e.EntityID)
		assert.Equal(t, "u1", e.Data["receiver_id"])
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/internal/cache"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
	"github.com/d60-Lab/ideagraph/internal/testutil"
	"github.com/d60-Lab/ideagraph/pkg/auth"
)

type testEnv struct {
	store         *repository.Store
	bus           *events.MemoryBus
	users         UserService
	relations     RelationshipService
	ideas         IdeaService
	engagement    EngagementService
	comments      CommentService
	feed          FeedService
	views         ViewService
	notifications NotificationService
	notifier      *Notifier
}

// newTestEnv 粉丝索引同步写入，通知不推送
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewStore(testutil.NewDB(t))
	_, rdb := testutil.NewRedis(t)
	bus := events.NewMemoryBus()
	t.Cleanup(func() { _ = bus.Close() })

	notifier := NewNotifier(nil, bus)
	following := cache.NewFollowingCache(rdb, time.Minute)
	cards := cache.NewUserCardCache(rdb, time.Minute)
	relations := NewRelationshipService(store, nil, following, cards, notifier, bus)

	return &testEnv{
		store:         store,
		bus:           bus,
		users:         NewUserService(store, auth.NewTokenIssuer("0123456789abcdef", time.Hour), cards, bus),
		relations:     relations,
		ideas:         NewIdeaService(store, bus),
		engagement:    NewEngagementService(store, notifier, bus),
		comments:      NewCommentService(store, notifier, bus),
		feed:          NewFeedService(store, relations, 50, 200),
		views:         NewViewService(store, cache.NewRecentList(rdb, cache.DefaultRecentCapacity), bus),
		notifications: NewNotificationService(store, notifier),
		notifier:      notifier,
	}
}

func (e *testEnv) seedUser(t *testing.T, id string) *model.User {
	t.Helper()
	u := &model.User{ID: id, Username: id, Email: id + "@example.com", FirstName: "First" + id, LastName: "Last" + id}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) seedIdea(t *testing.T, authorID, title, category string) *model.Idea {
	t.Helper()
	idea, err := e.ideas.CreateIdea(context.Background(), authorID, IdeaInput{Title: title, Body: "body of " + title, Category: category})
	require.NoError(t, err)
	return idea
}

func (e *testEnv) user(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := e.store.Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) idea(t *testing.T, id string) *model.Idea {
	t.Helper()
	i, err := e.store.Ideas.GetByID(context.Background(), id)
	require.NoError(t, err)
	return i
}

func (e *testEnv) notificationsOf(t *testing.T, receiverID string, typ model.NotificationType) []*model.Notification {
	t.Helper()
	all, err := e.notifications.List(context.Background(), receiverID, false, 100, 0)
	require.NoError(t, err)
	var out []*model.Notification
	for _, n := range all {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

// interleaveDelete 在下一次删除 table 的语句执行前，于同一事务内先执行 stmts，
// 模拟并发请求抢先提交的删除
func (e *testEnv) interleaveDelete(t *testing.T, table string, stmts ...func(tx *gorm.DB) error) {
	t.Helper()
	fired := false
	err := e.store.DB().Callback().Delete().Before("gorm:delete").Register("test:interleave_"+table, func(db *gorm.DB) {
		if fired || db.Statement.Table != table {
			return
		}
		fired = true
		tx := db.Session(&gorm.Session{NewDB: true})
		for _, stmt := range stmts {
			if err := stmt(tx); err != nil {
				_ = db.AddError(err)
				return
			}
		}
	})
	require.NoError(t, err)
}

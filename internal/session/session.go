// Package session 单个用户的客户端状态容器：关注集合、点赞集合与计数。
// 命令先乐观更新本地状态，再调用远端，成功提交、失败回滚，每次状态迁移都通知监听者。
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/service"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

// ErrClosed 会话已关闭
var ErrClosed = errors.New("session closed")

// Remote 会话依赖的权威存储
type Remote interface {
	Follow(ctx context.Context, followerID, followeeID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	ToggleIdeaLike(ctx context.Context, userID, ideaID string) (bool, int64, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	LikedIdeaIDs(ctx context.Context, userID string) ([]string, error)
	Reconcile(ctx context.Context, userID string) (*model.User, error)
}

type serviceRemote struct {
	service.RelationshipService
	service.EngagementService
}

// NewRemote 用服务层实现 Remote
func NewRemote(relations service.RelationshipService, engagement service.EngagementService) Remote {
	return serviceRemote{RelationshipService: relations, EngagementService: engagement}
}

type Status int

const (
	Idle Status = iota
	Pending
	Committed
	RolledBack
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type Action string

const (
	ActionFollow   Action = "follow"
	ActionUnfollow Action = "unfollow"
	ActionLike     Action = "like"
	ActionUnlike   Action = "unlike"
	// ActionSync 来自变更流或 Load 的远端同步
	ActionSync Action = "sync"
)

// Change 一次状态迁移
type Change struct {
	Action Action    `json:"action"`
	Target string    `json:"target,omitempty"`
	Status Status    `json:"status"`
	Err    string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

type Listener func(Change)

// Snapshot 会话状态的只读副本
type Snapshot struct {
	UserID         string           `json:"user_id"`
	Following      []string         `json:"following"`
	Liked          []string         `json:"liked"`
	FollowersCount int64            `json:"followers_count"`
	FollowingCount int64            `json:"following_count"`
	LikeCounts     map[string]int64 `json:"like_counts"`
	Loaded         bool             `json:"loaded"`
}

type Store struct {
	userID string
	remote Remote
	bus    events.Bus
	filter *events.VersionFilter

	mu             sync.Mutex
	following      map[string]struct{}
	liked          map[string]struct{}
	likeCounts     map[string]int64
	followersCount int64
	followingCount int64
	loaded         bool
	states         map[string]Status
	listeners      map[int]Listener
	nextListener   int
	sub            events.Subscription
	cancel         context.CancelFunc
	closed         bool
	done           chan struct{}
}

// New bus 为 nil 时不订阅变更流
func New(userID string, remote Remote, bus events.Bus) *Store {
	return &Store{
		userID:     userID,
		remote:     remote,
		bus:        bus,
		filter:     events.NewVersionFilter(),
		following:  make(map[string]struct{}),
		liked:      make(map[string]struct{}),
		likeCounts: make(map[string]int64),
		states:     make(map[string]Status),
		listeners:  make(map[int]Listener),
	}
}

func (s *Store) UserID() string { return s.userID }

// OnChange 注册监听者，返回取消函数
func (s *Store) OnChange(l Listener) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Load 先在远端做一次对账，再用权威数据覆盖本地集合，首次调用时订阅变更流
func (s *Store) Load(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	u, err := s.remote.Reconcile(ctx, s.userID)
	if err != nil {
		return err
	}
	following, err := s.remote.FollowingIDs(ctx, s.userID)
	if err != nil {
		return err
	}
	liked, err := s.remote.LikedIdeaIDs(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.following = toSet(following)
	s.liked = toSet(liked)
	s.followersCount = u.FollowersCount
	s.followingCount = u.FollowingCount
	s.loaded = true
	s.filter.Observe(events.FollowChanged, u.ID, u.Version)
	ls := s.snapshotListeners()
	s.mu.Unlock()
	notify(ls, Change{Action: ActionSync, Status: Committed, At: time.Now()})

	if s.bus != nil {
		return s.subscribe()
	}
	return nil
}

func (s *Store) subscribe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil || s.closed {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := s.bus.Subscribe(ctx)
	if err != nil {
		cancel()
		return apperr.Remote("subscribe change feed", err)
	}
	s.sub = sub
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.consume(sub, s.done)
	return nil
}

func (s *Store) consume(sub events.Subscription, done chan struct{}) {
	defer close(done)
	for e := range sub.C() {
		s.Apply(e)
	}
}

// Apply 把一条远端变更合并进本地状态；旧版本事件和仍在进行中的本地操作会被跳过
func (s *Store) Apply(e events.Event) {
	if !s.filter.Accept(e) {
		return
	}
	s.mu.Lock()
	var changed *Change
	switch e.Type {
	case events.FollowChanged:
		if e.EntityID == s.userID {
			if n, ok := toInt64(e.Data["followers_count"]); ok {
				s.followersCount = n
				changed = &Change{Action: ActionSync, Target: e.EntityID}
			}
		}
		if e.ActorID == s.userID && !s.inFlight(ActionFollow, e.EntityID) {
			following, _ := e.Data["following"].(bool)
			if s.setMember(s.following, e.EntityID, following) {
				changed = &Change{Action: ActionSync, Target: e.EntityID}
			}
		}
	case events.LikeChanged:
		if target, _ := e.Data["target"].(string); target != string(model.LikeTargetIdea) {
			break
		}
		if s.inFlight(ActionLike, e.EntityID) {
			break
		}
		if n, ok := toInt64(e.Data["like_count"]); ok {
			s.likeCounts[e.EntityID] = n
			changed = &Change{Action: ActionSync, Target: e.EntityID}
		}
		if e.ActorID == s.userID {
			liked, _ := e.Data["liked"].(bool)
			s.setMember(s.liked, e.EntityID, liked)
			changed = &Change{Action: ActionSync, Target: e.EntityID}
		}
	case events.IdeaDeleted:
		if _, ok := s.liked[e.EntityID]; ok {
			delete(s.liked, e.EntityID)
			changed = &Change{Action: ActionSync, Target: e.EntityID}
		}
		delete(s.likeCounts, e.EntityID)
	}
	var ls []Listener
	if changed != nil {
		ls = s.snapshotListeners()
	}
	s.mu.Unlock()

	if changed != nil {
		changed.Status = Committed
		changed.At = time.Now()
		notify(ls, *changed)
	}
}

// Follow 乐观加入关注集合，远端失败时回滚
func (s *Store) Follow(ctx context.Context, followeeID string) error {
	return s.runFollow(ctx, ActionFollow, followeeID, true)
}

func (s *Store) Unfollow(ctx context.Context, followeeID string) error {
	return s.runFollow(ctx, ActionUnfollow, followeeID, false)
}

func (s *Store) runFollow(ctx context.Context, action Action, followeeID string, follow bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.inFlight(ActionFollow, followeeID) {
		s.mu.Unlock()
		return apperr.Conflict("follow change for %s already in flight", followeeID)
	}
	if _, ok := s.following[followeeID]; ok == follow {
		s.mu.Unlock()
		return nil
	}
	delta := int64(1)
	if !follow {
		delta = -1
	}
	s.setMember(s.following, followeeID, follow)
	s.followingCount = floor(s.followingCount + delta)
	s.states[stateKey(ActionFollow, followeeID)] = Pending
	s.emitLocked(action, followeeID, Pending, nil)

	var (
		changed bool
		err     error
	)
	s.mu.Unlock()
	if follow {
		changed, err = s.remote.Follow(ctx, s.userID, followeeID)
	} else {
		changed, err = s.remote.Unfollow(ctx, s.userID, followeeID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.setMember(s.following, followeeID, !follow)
		s.followingCount = floor(s.followingCount - delta)
		s.states[stateKey(ActionFollow, followeeID)] = RolledBack
		s.emitLocked(action, followeeID, RolledBack, err)
		return err
	}
	if !changed {
		// 远端已处于目标状态，集合正确但计数不应变化
		s.followingCount = floor(s.followingCount - delta)
	}
	s.states[stateKey(ActionFollow, followeeID)] = Committed
	s.emitLocked(action, followeeID, Committed, nil)
	return nil
}

// ToggleLike 乐观切换点赞，提交后以远端返回的计数为准
func (s *Store) ToggleLike(ctx context.Context, ideaID string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if s.inFlight(ActionLike, ideaID) {
		s.mu.Unlock()
		return false, apperr.Conflict("like change for %s already in flight", ideaID)
	}
	_, wasLiked := s.liked[ideaID]
	prevCount, hadCount := s.likeCounts[ideaID]
	action := ActionLike
	if wasLiked {
		action = ActionUnlike
	}
	s.setMember(s.liked, ideaID, !wasLiked)
	if hadCount {
		if wasLiked {
			s.likeCounts[ideaID] = floor(prevCount - 1)
		} else {
			s.likeCounts[ideaID] = prevCount + 1
		}
	}
	s.states[stateKey(ActionLike, ideaID)] = Pending
	s.emitLocked(action, ideaID, Pending, nil)
	s.mu.Unlock()

	liked, count, err := s.remote.ToggleIdeaLike(ctx, s.userID, ideaID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.setMember(s.liked, ideaID, wasLiked)
		if hadCount {
			s.likeCounts[ideaID] = prevCount
		}
		s.states[stateKey(ActionLike, ideaID)] = RolledBack
		s.emitLocked(action, ideaID, RolledBack, err)
		return wasLiked, err
	}
	s.setMember(s.liked, ideaID, liked)
	s.likeCounts[ideaID] = count
	s.states[stateKey(ActionLike, ideaID)] = Committed
	s.emitLocked(action, ideaID, Committed, nil)
	return liked, nil
}

// State 返回某个目标上最近一次操作的状态
func (s *Store) State(action Action, target string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[stateKey(action, target)]
}

func (s *Store) IsFollowing(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.following[userID]
	return ok
}

func (s *Store) IsLiked(ideaID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.liked[ideaID]
	return ok
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64, len(s.likeCounts))
	for k, v := range s.likeCounts {
		counts[k] = v
	}
	return Snapshot{
		UserID:         s.userID,
		Following:      sortedKeys(s.following),
		Liked:          sortedKeys(s.liked),
		FollowersCount: s.followersCount,
		FollowingCount: s.followingCount,
		LikeCounts:     counts,
		Loaded:         s.loaded,
	}
}

// Close 释放变更流订阅并移除所有监听者，可重复调用
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sub, done, cancel := s.sub, s.done, s.cancel
	s.sub = nil
	s.listeners = make(map[int]Listener)
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	err := sub.Close()
	cancel()
	<-done
	logger.Debug("session closed", zap.String("user", s.userID))
	return err
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) inFlight(action Action, target string) bool {
	return s.states[stateKey(action, target)] == Pending
}

// emitLocked 在持锁状态下通知监听者，监听者不得回调 Store
func (s *Store) emitLocked(action Action, target string, status Status, err error) {
	c := Change{Action: action, Target: target, Status: status, At: time.Now()}
	if err != nil {
		c.Err = err.Error()
	}
	notify(s.snapshotListeners(), c)
}

func (s *Store) snapshotListeners() []Listener {
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	return ls
}

func (s *Store) setMember(set map[string]struct{}, id string, present bool) bool {
	_, had := set[id]
	if present {
		set[id] = struct{}{}
	} else {
		delete(set, id)
	}
	return had != present
}

func notify(ls []Listener, c Change) {
	for _, l := range ls {
		l(c)
	}
}

func stateKey(action Action, target string) string {
	return string(action) + "/" + target
}

func floor(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

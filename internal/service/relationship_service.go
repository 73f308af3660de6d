package service

import (
	"context"
	"fmt"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/cache"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
)

// RelationshipService 关系链服务
type RelationshipService interface {
	// Follow 返回 true 表示新建了关注；重复关注是 no-op
	Follow(ctx context.Context, followerID, followeeID string) (bool, error)
	// Unfollow 返回 true 表示确实取消了关注；关系不存在时是 no-op
	Unfollow(ctx context.Context, followerID, followeeID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]cache.UserCard, error)
	// ListFollowers 读粉丝索引，可能落后于关注边
	ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]cache.UserCard, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	// Reconcile 按关注边重算计数并重建粉丝索引
	Reconcile(ctx context.Context, userID string) (*model.User, error)
}

type relationshipService struct {
	store      *repository.Store
	replicator *FanReplicator
	following  *cache.FollowingCache
	cards      *cache.UserCardCache
	notifier   *Notifier
	bus        events.Bus
}

// NewRelationshipService replicator 为 nil 时粉丝索引在同一事务内同步写入；缓存可为 nil
func NewRelationshipService(
	store *repository.Store,
	replicator *FanReplicator,
	following *cache.FollowingCache,
	cards *cache.UserCardCache,
	notifier *Notifier,
	bus events.Bus,
) RelationshipService {
	return &relationshipService{
		store:      store,
		replicator: replicator,
		following:  following,
		cards:      cards,
		notifier:   notifier,
		bus:        bus,
	}
}

func checkPair(followerID, followeeID string) error {
	if blank(followerID) || blank(followeeID) {
		return apperr.Validation("follower and followee are required")
	}
	if followerID == followeeID {
		return apperr.Validation("cannot follow self")
	}
	return nil
}

func (s *relationshipService) Follow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if err := checkPair(followerID, followeeID); err != nil {
		return false, err
	}

	var (
		created  bool
		note     *model.Notification
		followee *model.User
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		follower, err := tx.Users.GetByID(ctx, followerID)
		if err != nil {
			return err
		}
		if _, err = tx.Users.GetByID(ctx, followeeID); err != nil {
			return err
		}
		// 以存储中的边为准，不信任调用方的本地关注集合
		created, err = tx.Follows.Create(ctx, followerID, followeeID)
		if err != nil || !created {
			return err
		}
		if err := tx.Users.AdjustFollowCounts(ctx, followerID, followeeID, 1); err != nil {
			return err
		}
		if s.replicator == nil {
			if err := tx.Fans.Create(ctx, followeeID, followerID); err != nil {
				return err
			}
		}
		note = &model.Notification{
			Type:       model.NotificationFollow,
			SenderID:   followerID,
			SenderName: follower.DisplayName(),
			ReceiverID: followeeID,
			RelatedID:  followerID,
			Message:    fmt.Sprintf("%s started following you", follower.DisplayName()),
		}
		if err := tx.Notifications.Create(ctx, note); err != nil {
			return err
		}
		followee, err = tx.Users.GetByID(ctx, followeeID)
		return err
	})
	if err != nil {
		return false, apperr.Remote("follow", err)
	}
	if !created {
		return false, nil
	}

	if s.replicator != nil {
		s.replicator.EnqueueAdd(followeeID, followerID)
	}
	s.afterEdgeChange(ctx, followerID, followee, true)
	s.notifier.Deliver(ctx, note)
	return true, nil
}

func (s *relationshipService) Unfollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if err := checkPair(followerID, followeeID); err != nil {
		return false, err
	}

	var (
		removed  bool
		followee *model.User
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		removed, err = tx.Follows.Delete(ctx, followerID, followeeID)
		if err != nil || !removed {
			return err
		}
		if err := tx.Users.AdjustFollowCounts(ctx, followerID, followeeID, -1); err != nil {
			return err
		}
		if s.replicator == nil {
			if err := tx.Fans.Delete(ctx, followeeID, followerID); err != nil {
				return err
			}
		}
		followee, err = tx.Users.GetByID(ctx, followeeID)
		return err
	})
	if err != nil {
		return false, apperr.Remote("unfollow", err)
	}
	if !removed {
		return false, nil
	}

	if s.replicator != nil {
		s.replicator.EnqueueRemove(followeeID, followerID)
	}
	s.afterEdgeChange(ctx, followerID, followee, false)
	return true, nil
}

func (s *relationshipService) afterEdgeChange(ctx context.Context, followerID string, followee *model.User, following bool) {
	if s.following != nil {
		_ = s.following.Invalidate(ctx, followerID)
	}
	if s.cards != nil {
		_ = s.cards.Invalidate(ctx, followerID, followee.ID)
	}
	publish(ctx, s.bus, events.Event{
		Type:     events.FollowChanged,
		EntityID: followee.ID,
		Version:  followee.Version,
		ActorID:  followerID,
		Data: map[string]any{
			"following":       following,
			"followers_count": followee.FollowersCount,
		},
	})
}

func (s *relationshipService) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	ok, err := s.store.Follows.Exists(ctx, followerID, followeeID)
	if err != nil {
		return false, apperr.Remote("check follow", err)
	}
	return ok, nil
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]cache.UserCard, error) {
	offset, limit := pageOffset(page, pageSize)
	items, err := s.store.Follows.ListFollowings(ctx, userID, offset, limit)
	if err != nil {
		return nil, apperr.Remote("list following", err)
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.FolloweeID
	}
	return s.loadCards(ctx, ids)
}

func (s *relationshipService) ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]cache.UserCard, error) {
	offset, limit := pageOffset(page, pageSize)
	items, err := s.store.Fans.ListFans(ctx, userID, offset, limit)
	if err != nil {
		return nil, apperr.Remote("list followers", err)
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.FanID
	}
	return s.loadCards(ctx, ids)
}

func (s *relationshipService) loadCards(ctx context.Context, ids []string) ([]cache.UserCard, error) {
	if s.cards != nil {
		cards, err := s.cards.Load(ctx, ids, s.store.Users.GetByIDs)
		return cards, apperr.Remote("load users", err)
	}
	users, err := s.store.Users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Remote("load users", err)
	}
	cards := make([]cache.UserCard, len(users))
	for i, u := range users {
		cards[i] = cache.CardOf(u)
	}
	return cards, nil
}

func (s *relationshipService) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	loader := func(ctx context.Context) ([]string, error) {
		return s.store.Follows.FolloweeIDs(ctx, userID)
	}
	var (
		ids []string
		err error
	)
	if s.following != nil {
		ids, err = s.following.Load(ctx, userID, loader)
	} else {
		ids, err = loader(ctx)
	}
	if err != nil {
		return nil, apperr.Remote("load following", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *relationshipService) Reconcile(ctx context.Context, userID string) (*model.User, error) {
	var user *model.User
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		followers, err := tx.Follows.CountFollowers(ctx, userID)
		if err != nil {
			return err
		}
		following, err := tx.Follows.CountFollowing(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Users.SetFollowCounts(ctx, userID, followers, following); err != nil {
			return err
		}
		fanIDs, err := tx.Follows.FollowerIDs(ctx, userID)
		if err != nil {
			return err
		}
		if err := tx.Fans.Rebuild(ctx, userID, fanIDs); err != nil {
			return err
		}
		user, err = tx.Users.GetByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, apperr.Remote("reconcile follows", err)
	}
	if s.following != nil {
		_ = s.following.Invalidate(ctx, userID)
	}
	if s.cards != nil {
		_ = s.cards.Invalidate(ctx, userID)
	}
	publish(ctx, s.bus, events.Event{Type: events.UserUpdated, EntityID: userID, Version: user.Version})
	return user, nil
}

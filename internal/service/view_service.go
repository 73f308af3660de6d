package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/cache"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

type ViewService interface {
	// ViewIdea 首次浏览返回 true 并累加浏览数，之后只刷新浏览时间
	ViewIdea(ctx context.Context, userID, ideaID string) (bool, error)
	// RecentlyViewed 最近浏览在前，已删除的想法被跳过
	RecentlyViewed(ctx context.Context, userID string) ([]*model.Idea, error)
}

type viewService struct {
	store  *repository.Store
	recent *cache.RecentList
	bus    events.Bus
}

func NewViewService(store *repository.Store, recent *cache.RecentList, bus events.Bus) ViewService {
	return &viewService{store: store, recent: recent, bus: bus}
}

func (s *viewService) ViewIdea(ctx context.Context, userID, ideaID string) (bool, error) {
	if blank(userID) || blank(ideaID) {
		return false, apperr.Validation("user and idea are required")
	}

	now := time.Now().UTC()
	var (
		first bool
		idea  *model.Idea
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Ideas.GetByID(ctx, ideaID); err != nil {
			return err
		}
		var err error
		first, err = tx.Views.Record(ctx, userID, ideaID, now)
		if err != nil {
			return err
		}
		if first {
			if err := tx.Ideas.AdjustCounter(ctx, ideaID, repository.IdeaViews, 1); err != nil {
				return err
			}
		}
		if err := tx.Ideas.TouchViewed(ctx, ideaID, now); err != nil {
			return err
		}
		idea, err = tx.Ideas.GetByID(ctx, ideaID)
		return err
	})
	if err != nil {
		return false, apperr.Remote("view idea", err)
	}

	if _, err := s.recent.Touch(ctx, userID, ideaID); err != nil {
		// 浏览记录已落库，最近浏览列表失败不影响结果
		logger.Warn("update recently viewed failed", zap.String("user", userID), zap.String("idea", ideaID), zap.Error(err))
	}
	if first {
		publish(ctx, s.bus, events.Event{
			Type:     events.IdeaUpdated,
			EntityID: ideaID,
			Version:  idea.Version,
			ActorID:  userID,
			Data:     map[string]any{"view_count": idea.ViewCount},
		})
	}
	return first, nil
}

func (s *viewService) RecentlyViewed(ctx context.Context, userID string) ([]*model.Idea, error) {
	ids, err := s.recent.IDs(ctx, userID)
	if err != nil {
		return nil, apperr.Remote("load recently viewed", err)
	}
	ideas, err := s.store.Ideas.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Remote("load recently viewed", err)
	}
	return ideas, nil
}

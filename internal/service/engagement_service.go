package service

import (
	"context"
	"fmt"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
)

// EngagementService 点赞账本：点赞边与冗余计数在同一事务内变更
type EngagementService interface {
	// ToggleIdeaLike 已点赞则取消，返回切换后的状态和点赞数
	ToggleIdeaLike(ctx context.Context, userID, ideaID string) (bool, int64, error)
	ToggleCommentLike(ctx context.Context, userID, commentID string) (bool, int64, error)
	IsIdeaLiked(ctx context.Context, userID, ideaID string) (bool, error)
	LikedIdeaIDs(ctx context.Context, userID string) ([]string, error)
	// ReconcileIdea 按点赞/评论/浏览集合重算想法的计数
	ReconcileIdea(ctx context.Context, ideaID string) (*model.Idea, error)
}

type engagementService struct {
	store    *repository.Store
	notifier *Notifier
	bus      events.Bus
}

func NewEngagementService(store *repository.Store, notifier *Notifier, bus events.Bus) EngagementService {
	return &engagementService{store: store, notifier: notifier, bus: bus}
}

func (s *engagementService) ToggleIdeaLike(ctx context.Context, userID, ideaID string) (bool, int64, error) {
	if blank(userID) || blank(ideaID) {
		return false, 0, apperr.Validation("user and idea are required")
	}

	var (
		liked bool
		idea  *model.Idea
		note  *model.Notification
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		actor, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.Ideas.GetByID(ctx, ideaID); err != nil {
			return err
		}
		liked, err = tx.Likes.Create(ctx, userID, model.LikeTargetIdea, ideaID)
		if err != nil {
			return err
		}
		delta := int64(1)
		if !liked {
			removed, err := tx.Likes.Delete(ctx, userID, model.LikeTargetIdea, ideaID)
			if err != nil {
				return err
			}
			// 并发的取消点赞已经删掉了这条边并扣过计数
			delta = 0
			if removed {
				delta = -1
			}
		}
		if delta != 0 {
			if err := tx.Ideas.AdjustCounter(ctx, ideaID, repository.IdeaLikes, delta); err != nil {
				return err
			}
		}
		if idea, err = tx.Ideas.GetByID(ctx, ideaID); err != nil {
			return err
		}
		if liked && idea.AuthorID != userID {
			note = &model.Notification{
				Type:       model.NotificationLike,
				SenderID:   userID,
				SenderName: actor.DisplayName(),
				ReceiverID: idea.AuthorID,
				RelatedID:  ideaID,
				Message:    fmt.Sprintf("%s liked your idea %q", actor.DisplayName(), idea.Title),
			}
			return tx.Notifications.Create(ctx, note)
		}
		return nil
	})
	if err != nil {
		return false, 0, apperr.Remote("toggle like", err)
	}

	s.notifier.Deliver(ctx, note)
	publish(ctx, s.bus, events.Event{
		Type:     events.LikeChanged,
		EntityID: ideaID,
		Version:  idea.Version,
		ActorID:  userID,
		Data:     map[string]any{"target": string(model.LikeTargetIdea), "liked": liked, "like_count": idea.LikeCount},
	})
	return liked, idea.LikeCount, nil
}

// ToggleCommentLike 评论点赞不发通知
func (s *engagementService) ToggleCommentLike(ctx context.Context, userID, commentID string) (bool, int64, error) {
	if blank(userID) || blank(commentID) {
		return false, 0, apperr.Validation("user and comment are required")
	}

	var (
		liked   bool
		comment *model.Comment
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		if _, err := tx.Comments.GetByID(ctx, commentID); err != nil {
			return err
		}
		var err error
		liked, err = tx.Likes.Create(ctx, userID, model.LikeTargetComment, commentID)
		if err != nil {
			return err
		}
		delta := int64(1)
		if !liked {
			removed, err := tx.Likes.Delete(ctx, userID, model.LikeTargetComment, commentID)
			if err != nil {
				return err
			}
			// 并发的取消点赞已经删掉了这条边并扣过计数
			delta = 0
			if removed {
				delta = -1
			}
		}
		if delta != 0 {
			if err := tx.Comments.AdjustLikes(ctx, commentID, delta); err != nil {
				return err
			}
		}
		comment, err = tx.Comments.GetByID(ctx, commentID)
		return err
	})
	if err != nil {
		return false, 0, apperr.Remote("toggle comment like", err)
	}

	publish(ctx, s.bus, events.Event{
		Type:     events.LikeChanged,
		EntityID: commentID,
		ActorID:  userID,
		Data:     map[string]any{"target": string(model.LikeTargetComment), "liked": liked, "like_count": comment.LikeCount, "idea_id": comment.IdeaID},
	})
	return liked, comment.LikeCount, nil
}

func (s *engagementService) IsIdeaLiked(ctx context.Context, userID, ideaID string) (bool, error) {
	ok, err := s.store.Likes.Exists(ctx, userID, model.LikeTargetIdea, ideaID)
	if err != nil {
		return false, apperr.Remote("check like", err)
	}
	return ok, nil
}

func (s *engagementService) LikedIdeaIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.Likes.TargetIDs(ctx, userID, model.LikeTargetIdea)
	if err != nil {
		return nil, apperr.Remote("list likes", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *engagementService) ReconcileIdea(ctx context.Context, ideaID string) (*model.Idea, error) {
	var idea *model.Idea
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Ideas.GetByID(ctx, ideaID); err != nil {
			return err
		}
		likes, err := tx.Likes.Count(ctx, model.LikeTargetIdea, ideaID)
		if err != nil {
			return err
		}
		comments, err := tx.Comments.CountByIdea(ctx, ideaID)
		if err != nil {
			return err
		}
		views, err := tx.Views.CountByIdea(ctx, ideaID)
		if err != nil {
			return err
		}
		if err := tx.Ideas.SetCounters(ctx, ideaID, likes, comments, views); err != nil {
			return err
		}
		idea, err = tx.Ideas.GetByID(ctx, ideaID)
		return err
	})
	if err != nil {
		return nil, apperr.Remote("reconcile idea", err)
	}
	publish(ctx, s.bus, events.Event{Type: events.IdeaUpdated, EntityID: ideaID, Version: idea.Version})
	return idea, nil
}

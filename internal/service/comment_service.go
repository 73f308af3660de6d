package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
)

const maxCommentLength = 2000

type CommentService interface {
	AddComment(ctx context.Context, userID, ideaID, content string) (*model.Comment, error)
	UpdateComment(ctx context.Context, userID, commentID, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID string) error
	// ListComments 新评论在前
	ListComments(ctx context.Context, ideaID string, limit, offset int) ([]*model.Comment, error)
}

type commentService struct {
	store    *repository.Store
	notifier *Notifier
	bus      events.Bus
}

func NewCommentService(store *repository.Store, notifier *Notifier, bus events.Bus) CommentService {
	return &commentService{store: store, notifier: notifier, bus: bus}
}

func checkContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return "", apperr.Validation("content must be at most %d characters", maxCommentLength)
	}
	return content, nil
}

func (s *commentService) AddComment(ctx context.Context, userID, ideaID, content string) (*model.Comment, error) {
	content, err := checkContent(content)
	if err != nil {
		return nil, err
	}

	var (
		comment *model.Comment
		idea    *model.Idea
		note    *model.Notification
	)
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		author, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if _, err := tx.Ideas.GetByID(ctx, ideaID); err != nil {
			return err
		}
		comment = &model.Comment{
			IdeaID:     ideaID,
			AuthorID:   userID,
			AuthorName: author.DisplayName(),
			Content:    content,
		}
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}
		if err := tx.Ideas.AdjustCounter(ctx, ideaID, repository.IdeaComments, 1); err != nil {
			return err
		}
		if idea, err = tx.Ideas.GetByID(ctx, ideaID); err != nil {
			return err
		}
		if idea.AuthorID == userID {
			return nil
		}
		note = &model.Notification{
			Type:       model.NotificationComment,
			SenderID:   userID,
			SenderName: author.DisplayName(),
			ReceiverID: idea.AuthorID,
			RelatedID:  ideaID,
			Message:    fmt.Sprintf("%s commented on your idea %q", author.DisplayName(), idea.Title),
		}
		return tx.Notifications.Create(ctx, note)
	})
	if err != nil {
		return nil, apperr.Remote("add comment", err)
	}

	s.notifier.Deliver(ctx, note)
	s.publishChange(ctx, userID, idea, comment.ID, "added")
	return comment, nil
}

func (s *commentService) UpdateComment(ctx context.Context, userID, commentID, content string) (*model.Comment, error) {
	content, err := checkContent(content)
	if err != nil {
		return nil, err
	}

	var comment *model.Comment
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if current.AuthorID != userID {
			return apperr.Permission("only the author can edit this comment")
		}
		if err := tx.Comments.UpdateContent(ctx, commentID, content); err != nil {
			return err
		}
		comment, err = tx.Comments.GetByID(ctx, commentID)
		return err
	})
	if err != nil {
		return nil, apperr.Remote("update comment", err)
	}

	publish(ctx, s.bus, events.Event{
		Type:     events.CommentChanged,
		EntityID: comment.IdeaID,
		ActorID:  userID,
		Data:     map[string]any{"comment_id": comment.ID, "action": "updated"},
	})
	return comment, nil
}

func (s *commentService) DeleteComment(ctx context.Context, userID, commentID string) error {
	var idea *model.Idea
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		comment, err := tx.Comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if comment.AuthorID != userID {
			return apperr.Permission("only the author can delete this comment")
		}
		if err := tx.Likes.DeleteByTargets(ctx, model.LikeTargetComment, []string{commentID}); err != nil {
			return err
		}
		removed, err := tx.Comments.Delete(ctx, commentID)
		if err != nil {
			return err
		}
		// 并发删除已经扣过计数
		if removed {
			if err := tx.Ideas.AdjustCounter(ctx, comment.IdeaID, repository.IdeaComments, -1); err != nil {
				return err
			}
		}
		idea, err = tx.Ideas.GetByID(ctx, comment.IdeaID)
		return err
	})
	if err != nil {
		return apperr.Remote("delete comment", err)
	}

	s.publishChange(ctx, userID, idea, commentID, "deleted")
	return nil
}

func (s *commentService) publishChange(ctx context.Context, actorID string, idea *model.Idea, commentID, action string) {
	publish(ctx, s.bus, events.Event{
		Type:     events.CommentChanged,
		EntityID: idea.ID,
		Version:  idea.Version,
		ActorID:  actorID,
		Data:     map[string]any{"comment_id": commentID, "action": action, "comment_count": idea.CommentCount},
	})
}

func (s *commentService) ListComments(ctx context.Context, ideaID string, limit, offset int) ([]*model.Comment, error) {
	if _, err := s.store.Ideas.GetByID(ctx, ideaID); err != nil {
		return nil, apperr.Remote("list comments", err)
	}
	if offset < 0 {
		offset = 0
	}
	comments, err := s.store.Comments.ListByIdea(ctx, ideaID, offset, clampLimit(limit, defaultPageSize, maxPageSize))
	if err != nil {
		return nil, apperr.Remote("list comments", err)
	}
	return comments, nil
}

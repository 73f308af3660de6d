package service

import (
	"context"
	"strings"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
)

type IdeaInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Body     string `json:"body" validate:"required"`
	Category string `json:"category" validate:"required,max=64"`
}

func (in *IdeaInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	in.Category = strings.TrimSpace(in.Category)
}

type IdeaService interface {
	// CreateIdea 同一事务内写入想法、分类计数与 outbox 事件
	CreateIdea(ctx context.Context, authorID string, in IdeaInput) (*model.Idea, error)
	UpdateIdea(ctx context.Context, userID, ideaID string, in IdeaInput) (*model.Idea, error)
	// DeleteIdea 级联删除评论、评论点赞、想法点赞与浏览记录
	DeleteIdea(ctx context.Context, userID, ideaID string) error
	GetIdea(ctx context.Context, id string) (*model.Idea, error)
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

type ideaService struct {
	store *repository.Store
	bus   events.Bus
}

func NewIdeaService(store *repository.Store, bus events.Bus) IdeaService {
	return &ideaService{store: store, bus: bus}
}

func (s *ideaService) CreateIdea(ctx context.Context, authorID string, in IdeaInput) (*model.Idea, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var idea *model.Idea
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		author, err := tx.Users.GetByID(ctx, authorID)
		if err != nil {
			return err
		}
		idea = &model.Idea{
			Title:      in.Title,
			Body:       in.Body,
			Category:   in.Category,
			AuthorID:   author.ID,
			AuthorName: author.DisplayName(),
		}
		if err := tx.Ideas.Create(ctx, idea); err != nil {
			return err
		}
		if err := tx.Categories.Adjust(ctx, idea.Category, 1); err != nil {
			return err
		}
		return tx.Outbox.Create(ctx, idea.ID, author.ID)
	})
	if err != nil {
		return nil, apperr.Remote("create idea", err)
	}

	publish(ctx, s.bus, events.Event{Type: events.IdeaCreated, EntityID: idea.ID, Version: idea.Version, ActorID: authorID})
	return idea, nil
}

func (s *ideaService) UpdateIdea(ctx context.Context, userID, ideaID string, in IdeaInput) (*model.Idea, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var idea *model.Idea
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Ideas.GetByID(ctx, ideaID)
		if err != nil {
			return err
		}
		if current.AuthorID != userID {
			return apperr.Permission("only the author can edit this idea")
		}
		if err := tx.Ideas.Update(ctx, ideaID, map[string]any{
			"title":    in.Title,
			"body":     in.Body,
			"category": in.Category,
		}); err != nil {
			return err
		}
		if current.Category != in.Category {
			if err := tx.Categories.Adjust(ctx, current.Category, -1); err != nil {
				return err
			}
			if err := tx.Categories.Adjust(ctx, in.Category, 1); err != nil {
				return err
			}
		}
		idea, err = tx.Ideas.GetByID(ctx, ideaID)
		return err
	})
	if err != nil {
		return nil, apperr.Remote("update idea", err)
	}

	publish(ctx, s.bus, events.Event{Type: events.IdeaUpdated, EntityID: idea.ID, Version: idea.Version, ActorID: userID})
	return idea, nil
}

func (s *ideaService) DeleteIdea(ctx context.Context, userID, ideaID string) error {
	var version int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		idea, err := tx.Ideas.GetByID(ctx, ideaID)
		if err != nil {
			return err
		}
		if idea.AuthorID != userID {
			return apperr.Permission("only the author can delete this idea")
		}
		version = idea.Version + 1
		return deleteIdeaCascade(ctx, tx, idea)
	})
	if err != nil {
		return apperr.Remote("delete idea", err)
	}

	publish(ctx, s.bus, events.Event{Type: events.IdeaDeleted, EntityID: ideaID, Version: version, ActorID: userID})
	return nil
}

func deleteIdeaCascade(ctx context.Context, tx *repository.Store, idea *model.Idea) error {
	commentIDs, err := tx.Comments.IDsByIdea(ctx, idea.ID)
	if err != nil {
		return err
	}
	if err := tx.Likes.DeleteByTargets(ctx, model.LikeTargetComment, commentIDs); err != nil {
		return err
	}
	if err := tx.Comments.DeleteByIdea(ctx, idea.ID); err != nil {
		return err
	}
	if err := tx.Likes.DeleteByTargets(ctx, model.LikeTargetIdea, []string{idea.ID}); err != nil {
		return err
	}
	if err := tx.Views.DeleteByIdea(ctx, idea.ID); err != nil {
		return err
	}
	if err := tx.Ideas.Delete(ctx, idea.ID); err != nil {
		return err
	}
	return tx.Categories.Adjust(ctx, idea.Category, -1)
}

func (s *ideaService) GetIdea(ctx context.Context, id string) (*model.Idea, error) {
	idea, err := s.store.Ideas.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Remote("get idea", err)
	}
	return idea, nil
}

func (s *ideaService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	cats, err := s.store.Categories.List(ctx)
	if err != nil {
		return nil, apperr.Remote("list categories", err)
	}
	return cats, nil
}

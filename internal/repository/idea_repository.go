package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/internal/model"
)

// IdeaCounter 可原子调整的想法计数列
type IdeaCounter string

const (
	IdeaLikes    IdeaCounter = "like_count"
	IdeaComments IdeaCounter = "comment_count"
	IdeaViews    IdeaCounter = "view_count"
)

var ideaQueryFields = map[string]bool{
	"id": true, "title": true, "body": true, "category": true,
	"author_id": true, "author_name": true, "like_count": true,
	"comment_count": true, "view_count": true,
	"created_at": true, "updated_at": true,
}

type IdeaRepository interface {
	Create(ctx context.Context, idea *model.Idea) error
	GetByID(ctx context.Context, id string) (*model.Idea, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.Idea, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	Delete(ctx context.Context, id string) error
	AdjustCounter(ctx context.Context, id string, counter IdeaCounter, delta int64) error
	SetCounters(ctx context.Context, id string, likes, comments, views int64) error
	TouchViewed(ctx context.Context, id string, at time.Time) error
	Find(ctx context.Context, q *Query) ([]*model.Idea, error)
}

type ideaRepository struct{ db *gorm.DB }

func NewIdeaRepository(db *gorm.DB) IdeaRepository { return &ideaRepository{db: db} }

func (r *ideaRepository) Create(ctx context.Context, idea *model.Idea) error {
	if idea.ID == "" {
		idea.ID = newID()
	}
	return r.db.WithContext(ctx).Create(idea).Error
}

func (r *ideaRepository) GetByID(ctx context.Context, id string) (*model.Idea, error) {
	var idea model.Idea
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&idea).Error; err != nil {
		return nil, notFound(err, "idea", id)
	}
	return &idea, nil
}

// GetByIDs 按 ids 顺序返回，已删除的想法被跳过
func (r *ideaRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Idea, error) {
	if len(ids) == 0 {
		return []*model.Idea{}, nil
	}
	var ideas []*model.Idea
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ideas).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Idea, len(ideas))
	for _, i := range ideas {
		byID[i.ID] = i
	}
	res := make([]*model.Idea, 0, len(ids))
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			res = append(res, i)
		}
	}
	return res, nil
}

func (r *ideaRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	fields["version"] = gorm.Expr("version + 1")
	res := r.db.WithContext(ctx).Model(&model.Idea{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "idea", id)
	}
	return nil
}

func (r *ideaRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Idea{}).Error
}

// AdjustCounter 使用 UpdateColumns，计数变化不刷新 updated_at
func (r *ideaRepository) AdjustCounter(ctx context.Context, id string, counter IdeaCounter, delta int64) error {
	switch counter {
	case IdeaLikes, IdeaComments, IdeaViews:
	default:
		return fmt.Errorf("unknown idea counter %q", counter)
	}
	col := string(counter)
	return r.db.WithContext(ctx).Model(&model.Idea{}).Where("id = ?", id).UpdateColumns(map[string]any{
		col:       counterExpr(col, delta),
		"version": gorm.Expr("version + 1"),
	}).Error
}

func (r *ideaRepository) SetCounters(ctx context.Context, id string, likes, comments, views int64) error {
	return r.db.WithContext(ctx).Model(&model.Idea{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"like_count":    likes,
		"comment_count": comments,
		"view_count":    views,
		"version":       gorm.Expr("version + 1"),
	}).Error
}

func (r *ideaRepository) TouchViewed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Idea{}).Where("id = ?", id).UpdateColumn("viewed_at", at).Error
}

func (r *ideaRepository) Find(ctx context.Context, q *Query) ([]*model.Idea, error) {
	query, args, err := q.ToSQL(model.Idea{}.TableName(), ideaQueryFields)
	if err != nil {
		return nil, err
	}
	var ideas []*model.Idea
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&ideas).Error; err != nil {
		return nil, err
	}
	if ideas == nil {
		ideas = []*model.Idea{}
	}
	return ideas, nil
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/internal/model"
)

type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	UpdateContent(ctx context.Context, id, content string) error
	// Delete 返回 false 表示评论已不存在
	Delete(ctx context.Context, id string) (bool, error)
	// ListByIdea 新评论在前
	ListByIdea(ctx context.Context, ideaID string, offset, limit int) ([]*model.Comment, error)
	IDsByIdea(ctx context.Context, ideaID string) ([]string, error)
	DeleteByIdea(ctx context.Context, ideaID string) error
	CountByIdea(ctx context.Context, ideaID string) (int64, error)
	AdjustLikes(ctx context.Context, id string, delta int64) error
}

type commentRepository struct{ db *gorm.DB }

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	var c model.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err, "comment", id)
	}
	return &c, nil
}

func (r *commentRepository) UpdateContent(ctx context.Context, id, content string) error {
	res := r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "comment", id)
	}
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Comment{})
	return res.RowsAffected > 0, res.Error
}

func (r *commentRepository) ListByIdea(ctx context.Context, ideaID string, offset, limit int) ([]*model.Comment, error) {
	var res []*model.Comment
	err := r.db.WithContext(ctx).
		Where("idea_id = ?", ideaID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *commentRepository) IDsByIdea(ctx context.Context, ideaID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("idea_id = ?", ideaID).Pluck("id", &ids).Error
	return ids, err
}

func (r *commentRepository) DeleteByIdea(ctx context.Context, ideaID string) error {
	return r.db.WithContext(ctx).Where("idea_id = ?", ideaID).Delete(&model.Comment{}).Error
}

func (r *commentRepository) CountByIdea(ctx context.Context, ideaID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).Where("idea_id = ?", ideaID).Count(&cnt).Error
	return cnt, err
}

func (r *commentRepository) AdjustLikes(ctx context.Context, id string, delta int64) error {
	return r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).
		UpdateColumn("like_count", counterExpr("like_count", delta)).Error
}

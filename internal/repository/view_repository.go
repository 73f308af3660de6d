package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/ideagraph/internal/model"
)

type ViewRepository interface {
	// Record 写入浏览记录，首次浏览返回 true；重复浏览只刷新 viewed_at
	Record(ctx context.Context, userID, ideaID string, at time.Time) (bool, error)
	CountByIdea(ctx context.Context, ideaID string) (int64, error)
	DeleteByIdea(ctx context.Context, ideaID string) error
}

type viewRepository struct{ db *gorm.DB }

func NewViewRepository(db *gorm.DB) ViewRepository { return &viewRepository{db: db} }

func (r *viewRepository) Record(ctx context.Context, userID, ideaID string, at time.Time) (bool, error) {
	db := r.db.WithContext(ctx)
	v := &model.View{ID: newID(), UserID: userID, IdeaID: ideaID, ViewedAt: at}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(v)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	err := db.Model(&model.View{}).
		Where("user_id = ? AND idea_id = ?", userID, ideaID).
		UpdateColumn("viewed_at", at).Error
	return false, err
}

func (r *viewRepository) CountByIdea(ctx context.Context, ideaID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.View{}).Where("idea_id = ?", ideaID).Count(&cnt).Error
	return cnt, err
}

func (r *viewRepository) DeleteByIdea(ctx context.Context, ideaID string) error {
	return r.db.WithContext(ctx).Where("idea_id = ?", ideaID).Delete(&model.View{}).Error
}

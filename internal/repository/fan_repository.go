package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/ideagraph/internal/model"
)

type FanRepository interface {
	Create(ctx context.Context, userID, fanID string) error
	Delete(ctx context.Context, userID, fanID string) error
	ListFans(ctx context.Context, userID string, offset, limit int) ([]*model.Fan, error)
	// Rebuild 用 fanIDs 覆盖 userID 的粉丝索引
	Rebuild(ctx context.Context, userID string, fanIDs []string) error
}

type fanRepository struct{ db *gorm.DB }

func NewFanRepository(db *gorm.DB) FanRepository { return &fanRepository{db: db} }

func (r *fanRepository) Create(ctx context.Context, userID, fanID string) error {
	f := &model.Fan{ID: newID(), UserID: userID, FanID: fanID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *fanRepository) Delete(ctx context.Context, userID, fanID string) error {
	return r.db.WithContext(ctx).Where("user_id = ? AND fan_id = ?", userID, fanID).Delete(&model.Fan{}).Error
}

func (r *fanRepository) ListFans(ctx context.Context, userID string, offset, limit int) ([]*model.Fan, error) {
	var res []*model.Fan
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *fanRepository) Rebuild(ctx context.Context, userID string, fanIDs []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).Delete(&model.Fan{}).Error; err != nil {
		return err
	}
	if len(fanIDs) == 0 {
		return nil
	}
	rows := make([]model.Fan, len(fanIDs))
	for i, id := range fanIDs {
		rows[i] = model.Fan{ID: newID(), UserID: userID, FanID: id}
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 500).Error
}

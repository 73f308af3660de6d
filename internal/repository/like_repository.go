package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/ideagraph/internal/model"
)

type LikeRepository interface {
	// Create 返回 true 表示新增了点赞边
	Create(ctx context.Context, userID string, target model.LikeTarget, targetID string) (bool, error)
	Delete(ctx context.Context, userID string, target model.LikeTarget, targetID string) (bool, error)
	Exists(ctx context.Context, userID string, target model.LikeTarget, targetID string) (bool, error)
	TargetIDs(ctx context.Context, userID string, target model.LikeTarget) ([]string, error)
	Count(ctx context.Context, target model.LikeTarget, targetID string) (int64, error)
	DeleteByTargets(ctx context.Context, target model.LikeTarget, targetIDs []string) error
}

type likeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) Create(ctx context.Context, userID string, target model.LikeTarget, targetID string) (bool, error) {
	l := &model.Like{ID: newID(), UserID: userID, TargetType: target, TargetID: targetID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l)
	return res.RowsAffected == 1, res.Error
}

func (r *likeRepository) Delete(ctx context.Context, userID string, target model.LikeTarget, targetID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		Delete(&model.Like{})
	return res.RowsAffected > 0, res.Error
}

func (r *likeRepository) Exists(ctx context.Context, userID string, target model.LikeTarget, targetID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *likeRepository) TargetIDs(ctx context.Context, userID string, target model.LikeTarget) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND target_type = ?", userID, target).
		Order("created_at DESC").
		Pluck("target_id", &ids).Error
	return ids, err
}

func (r *likeRepository) Count(ctx context.Context, target model.LikeTarget, targetID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("target_type = ? AND target_id = ?", target, targetID).
		Count(&cnt).Error
	return cnt, err
}

func (r *likeRepository) DeleteByTargets(ctx context.Context, target model.LikeTarget, targetIDs []string) error {
	if len(targetIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("target_type = ? AND target_id IN ?", target, targetIDs).
		Delete(&model.Like{}).Error
}

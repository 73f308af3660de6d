package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/ideagraph/internal/model"
)

type CategoryRepository interface {
	// Adjust 调整分类下的想法数，分类不存在时先创建
	Adjust(ctx context.Context, name string, delta int64) error
	List(ctx context.Context) ([]*model.Category, error)
	SetCount(ctx context.Context, name string, count int64) error
}

type categoryRepository struct{ db *gorm.DB }

func NewCategoryRepository(db *gorm.DB) CategoryRepository { return &categoryRepository{db: db} }

func (r *categoryRepository) Adjust(ctx context.Context, name string, delta int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Category{Name: name}).Error; err != nil {
		return err
	}
	return db.Model(&model.Category{}).Where("name = ?", name).
		UpdateColumn("idea_count", counterExpr("idea_count", delta)).Error
}

func (r *categoryRepository) List(ctx context.Context) ([]*model.Category, error) {
	var cats []*model.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&cats).Error
	return cats, err
}

func (r *categoryRepository) SetCount(ctx context.Context, name string, count int64) error {
	return r.db.WithContext(ctx).Model(&model.Category{}).Where("name = ?", name).
		UpdateColumn("idea_count", count).Error
}

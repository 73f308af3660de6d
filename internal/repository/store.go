package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/ideagraph/internal/apperr"
)

// Store 聚合全部仓储，Transaction 内的仓储共享同一个事务
type Store struct {
	db *gorm.DB

	Users         UserRepository
	Follows       FollowRepository
	Fans          FanRepository
	Ideas         IdeaRepository
	Categories    CategoryRepository
	Comments      CommentRepository
	Likes         LikeRepository
	Views         ViewRepository
	Notifications NotificationRepository
	Outbox        OutboxRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Users:         NewUserRepository(db),
		Follows:       NewFollowRepository(db),
		Fans:          NewFanRepository(db),
		Ideas:         NewIdeaRepository(db),
		Categories:    NewCategoryRepository(db),
		Comments:      NewCommentRepository(db),
		Likes:         NewLikeRepository(db),
		Views:         NewViewRepository(db),
		Notifications: NewNotificationRepository(db),
		Outbox:        NewOutboxRepository(db),
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Transaction 在一个数据库事务内执行 fn，fn 返回错误即回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func newID() string { return uuid.New().String() }

// counterExpr 生成原子增减表达式，结果不小于 0
func counterExpr(column string, delta int64) clause.Expr {
	return gorm.Expr("CASE WHEN "+column+" + ? < 0 THEN 0 ELSE "+column+" + ? END", delta, delta)
}

// duplicate 唯一索引冲突转为 Conflict，需开启 gorm.Config.TranslateError
func duplicate(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(format, args...)
	}
	return err
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}

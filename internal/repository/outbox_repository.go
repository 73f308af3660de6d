package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/internal/model"
)

type OutboxRepository interface {
	Create(ctx context.Context, ideaID, authorID string) error
	// Claim 认领一批 pending 事件，以及认领超过 lease 仍未完成的 processing 事件
	Claim(ctx context.Context, limit int, lease time.Duration) ([]*model.Outbox, error)
	// Release 扇出失败时放回 pending
	Release(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string, fanoutCount int64) error
	CountPending(ctx context.Context) (int64, error)
}

type outboxRepository struct{ db *gorm.DB }

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) Create(ctx context.Context, ideaID, authorID string) error {
	out := &model.Outbox{ID: newID(), IdeaID: ideaID, AuthorID: authorID, Status: model.OutboxPending}
	return r.db.WithContext(ctx).Create(out).Error
}

func (r *outboxRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*model.Outbox, error) {
	var batch []*model.Outbox
	now := r.db.NowFunc()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT id, idea_id, author_id, created_at, status, attempts FROM outbox ` +
			`WHERE status = ? OR (status = ? AND claimed_at < ?) ORDER BY created_at LIMIT ?`
		// sqlite 没有行锁，单连接下串行即可
		if tx.Dialector.Name() == "postgres" {
			query += ` FOR UPDATE SKIP LOCKED`
		}
		if err := tx.Raw(query, model.OutboxPending, model.OutboxProcessing, now.Add(-lease), limit).Scan(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).Updates(map[string]any{
			"status":     model.OutboxProcessing,
			"claimed_at": now,
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *outboxRepository) Release(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ? AND status = ?", id, model.OutboxProcessing).
		Updates(map[string]any{"status": model.OutboxPending, "claimed_at": nil}).Error
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string, fanoutCount int64) error {
	return r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxDone, "processed_at": r.db.NowFunc(), "fanout_count": fanoutCount}).Error
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Outbox{}).Where("status = ?", model.OutboxPending).Count(&cnt).Error
	return cnt, err
}

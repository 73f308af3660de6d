package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/internal/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateBatch(ctx context.Context, ns []*model.Notification) error
	// NotifiedReceivers 返回 receiverIDs 中已收到 (typ, relatedID) 通知的用户
	NotifiedReceivers(ctx context.Context, typ model.NotificationType, relatedID string, receiverIDs []string) ([]string, error)
	List(ctx context.Context, receiverID string, unreadOnly bool, offset, limit int) ([]*model.Notification, error)
	CountUnread(ctx context.Context, receiverID string) (int64, error)
	// MarkRead 只能标记属于 receiverID 的通知
	MarkRead(ctx context.Context, receiverID, id string) error
	MarkAllRead(ctx context.Context, receiverID string) (int64, error)
	Delete(ctx context.Context, receiverID, id string) error
	DeleteAll(ctx context.Context, receiverID string) (int64, error)
}

type notificationRepository struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) CreateBatch(ctx context.Context, ns []*model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	for _, n := range ns {
		if n.ID == "" {
			n.ID = newID()
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(ns, 500).Error
}

func (r *notificationRepository) NotifiedReceivers(ctx context.Context, typ model.NotificationType, relatedID string, receiverIDs []string) ([]string, error) {
	if len(receiverIDs) == 0 {
		return nil, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("type = ? AND related_id = ? AND receiver_id IN ?", typ, relatedID, receiverIDs).
		Distinct().Pluck("receiver_id", &ids).Error
	return ids, err
}

func (r *notificationRepository) List(ctx context.Context, receiverID string, unreadOnly bool, offset, limit int) ([]*model.Notification, error) {
	q := r.db.WithContext(ctx).Where("receiver_id = ?", receiverID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var res []*model.Notification
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Count(&cnt).Error
	return cnt, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, receiverID, id string) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND receiver_id = ?", id, receiverID).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "notification", id)
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		UpdateColumn("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) Delete(ctx context.Context, receiverID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND receiver_id = ?", id, receiverID).Delete(&model.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "notification", id)
	}
	return nil
}

func (r *notificationRepository) DeleteAll(ctx context.Context, receiverID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("receiver_id = ?", receiverID).Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}

package service

import (
	"context"
	"strings"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
)

// NotificationService 所有操作都限定在接收者自己的通知内
type NotificationService interface {
	List(ctx context.Context, receiverID string, unreadOnly bool, limit, offset int) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, receiverID string) (int64, error)
	MarkRead(ctx context.Context, receiverID, id string) error
	MarkAllRead(ctx context.Context, receiverID string) (int64, error)
	Delete(ctx context.Context, receiverID, id string) error
	Clear(ctx context.Context, receiverID string) (int64, error)
	SendSystem(ctx context.Context, receiverID, message string) (*model.Notification, error)
}

type notificationService struct {
	store    *repository.Store
	notifier *Notifier
}

func NewNotificationService(store *repository.Store, notifier *Notifier) NotificationService {
	return &notificationService{store: store, notifier: notifier}
}

func (s *notificationService) List(ctx context.Context, receiverID string, unreadOnly bool, limit, offset int) ([]*model.Notification, error) {
	if offset < 0 {
		offset = 0
	}
	res, err := s.store.Notifications.List(ctx, receiverID, unreadOnly, offset, clampLimit(limit, defaultPageSize, maxPageSize))
	if err != nil {
		return nil, apperr.Remote("list notifications", err)
	}
	return res, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, receiverID string) (int64, error) {
	n, err := s.store.Notifications.CountUnread(ctx, receiverID)
	if err != nil {
		return 0, apperr.Remote("count notifications", err)
	}
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, receiverID, id string) error {
	return apperr.Remote("mark notification read", s.store.Notifications.MarkRead(ctx, receiverID, id))
}

func (s *notificationService) MarkAllRead(ctx context.Context, receiverID string) (int64, error) {
	n, err := s.store.Notifications.MarkAllRead(ctx, receiverID)
	if err != nil {
		return 0, apperr.Remote("mark notifications read", err)
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, receiverID, id string) error {
	return apperr.Remote("delete notification", s.store.Notifications.Delete(ctx, receiverID, id))
}

func (s *notificationService) Clear(ctx context.Context, receiverID string) (int64, error) {
	n, err := s.store.Notifications.DeleteAll(ctx, receiverID)
	if err != nil {
		return 0, apperr.Remote("clear notifications", err)
	}
	return n, nil
}

func (s *notificationService) SendSystem(ctx context.Context, receiverID, message string) (*model.Notification, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Validation("message is required")
	}
	if _, err := s.store.Users.GetByID(ctx, receiverID); err != nil {
		return nil, apperr.Remote("send notification", err)
	}
	note := &model.Notification{
		Type:       model.NotificationSystem,
		SenderName: "system",
		ReceiverID: receiverID,
		Message:    message,
	}
	if err := s.store.Notifications.Create(ctx, note); err != nil {
		return nil, apperr.Remote("send notification", err)
	}
	s.notifier.Deliver(ctx, note)
	return note, nil
}

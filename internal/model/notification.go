package model

import "time"

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationNewIdea NotificationType = "new_idea"
	NotificationSystem  NotificationType = "system"
)

// Notification 通知（按接收者切分），除已读标记外只追加
type Notification struct {
	ID         string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Type       NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	SenderID   string           `gorm:"type:varchar(36)" json:"sender_id"`
	SenderName string           `gorm:"type:varchar(128)" json:"sender_name"`
	ReceiverID string           `gorm:"type:varchar(36);index:idx_notification_receiver;not null" json:"receiver_id"`
	RelatedID  string           `gorm:"type:varchar(36)" json:"related_id,omitempty"`
	Message    string           `gorm:"type:text" json:"message"`
	IsRead     bool             `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt  time.Time        `gorm:"index:idx_notification_receiver" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

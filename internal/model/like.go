package model

import "time"

// LikeTarget 点赞对象类型
type LikeTarget string

const (
	LikeTargetIdea    LikeTarget = "idea"
	LikeTargetComment LikeTarget = "comment"
)

// Like 点赞边，存在即已点赞，唯一键 (user_id, target_type, target_id)
type Like struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)"`
	UserID     string     `gorm:"type:varchar(36);uniqueIndex:ux_like_edge;index:idx_like_user;not null"`
	TargetType LikeTarget `gorm:"type:varchar(16);uniqueIndex:ux_like_edge;index:idx_like_target;not null"`
	TargetID   string     `gorm:"type:varchar(36);uniqueIndex:ux_like_edge;index:idx_like_target;not null"`
	CreatedAt  time.Time
}

func (Like) TableName() string { return "likes" }

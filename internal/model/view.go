package model

import "time"

// View 浏览记录，每个 (user, idea) 至多一条，重复浏览只刷新 ViewedAt
type View struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)"`
	UserID   string    `gorm:"type:varchar(36);uniqueIndex:ux_view_pair;not null"`
	IdeaID   string    `gorm:"type:varchar(36);uniqueIndex:ux_view_pair;index:idx_view_idea;not null"`
	ViewedAt time.Time
}

func (View) TableName() string { return "views" }

package model

import (
	"time"
)

// Follow 关注关系（A 关注 B），是否关注的唯一事实来源
type Follow struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FollowerID string `gorm:"type:varchar(36);index:idx_follow_follower;uniqueIndex:ux_follow_pair;not null" json:"follower_id"`
	FolloweeID string `gorm:"type:varchar(36);index:idx_follow_followee;uniqueIndex:ux_follow_pair;not null" json:"followee_id"`
	// ux_follow_pair = (follower_id, followee_id)，避免重复关注
	CreatedAt time.Time `json:"created_at"`
}

func (Follow) TableName() string { return "follows" }

package model

import "time"

// User 用户资料，关注数/粉丝数为冗余计数，必须等于 follows 中对应边的数量
type User struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	FirstName      string    `gorm:"type:varchar(64)" json:"first_name"`
	LastName       string    `gorm:"type:varchar(64)" json:"last_name"`
	PasswordHash   string    `gorm:"type:varchar(100)" json:"-"`
	Bio            string    `gorm:"type:text" json:"bio,omitempty"`
	AvatarURL      string    `gorm:"type:varchar(512)" json:"avatar_url,omitempty"`
	FollowersCount int64     `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount int64     `gorm:"not null;default:0" json:"following_count"`
	Version        int64     `gorm:"not null;default:1" json:"version"`
	JoinedAt       time.Time `json:"joined_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DisplayName 优先使用全名，否则退回用户名
func (u *User) DisplayName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

package model

import "time"

type Comment struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	IdeaID     string    `gorm:"type:varchar(36);index:idx_comment_idea;not null" json:"idea_id"`
	AuthorID   string    `gorm:"type:varchar(36);index;not null" json:"author_id"`
	AuthorName string    `gorm:"type:varchar(128)" json:"author_name"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	LikeCount  int64     `gorm:"not null;default:0" json:"like_count"`
	CreatedAt  time.Time `gorm:"index:idx_comment_idea" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }

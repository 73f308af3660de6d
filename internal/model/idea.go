package model

import "time"

// Idea 用户发布的想法，like/comment/view 计数为冗余聚合
type Idea struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title        string     `gorm:"type:varchar(200);not null" json:"title"`
	Body         string     `gorm:"type:text;not null" json:"body"`
	Category     string     `gorm:"type:varchar(64);index:idx_idea_category;not null" json:"category"`
	AuthorID     string     `gorm:"type:varchar(36);index:idx_idea_author;not null" json:"author_id"`
	AuthorName   string     `gorm:"type:varchar(128)" json:"author_name"`
	LikeCount    int64      `gorm:"not null;default:0;index:idx_idea_likes" json:"like_count"`
	CommentCount int64      `gorm:"not null;default:0" json:"comment_count"`
	ViewCount    int64      `gorm:"not null;default:0" json:"view_count"`
	Version      int64      `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time  `gorm:"index:idx_idea_created" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"index:idx_idea_updated" json:"updated_at"`
	ViewedAt     *time.Time `json:"viewed_at,omitempty"`
}

func (Idea) TableName() string { return "ideas" }

// Category 开放的分类集合，IdeaCount 随想法创建/移动/删除维护
type Category struct {
	Name      string `gorm:"primaryKey;type:varchar(64)" json:"name"`
	IdeaCount int64  `gorm:"not null;default:0" json:"idea_count"`
}

func (Category) TableName() string { return "categories" }

// DefaultCategories 初始分类
var DefaultCategories = []string{
	"Technology", "Education", "Health", "Environment",
	"Agriculture", "Art", "Sports", "Other",
}

package model

import "time"

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
)

// Outbox 新想法事件外发盒，由 FanoutWorker 扇出为粉丝通知
type Outbox struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	IdeaID      string    `gorm:"type:varchar(36);uniqueIndex"`
	AuthorID    string    `gorm:"type:varchar(36);index:idx_outbox_author"`
	CreatedAt   time.Time `gorm:"index"`
	Status      string    `gorm:"type:varchar(16);index"`
	// ClaimedAt 认领时间；processing 超过租约视为 worker 已失效，可被重新认领
	ClaimedAt   *time.Time `gorm:"index"`
	Attempts    int        `gorm:"not null;default:0"`
	ProcessedAt *time.Time
	FanoutCount int64
}

func (Outbox) TableName() string { return "outbox" }

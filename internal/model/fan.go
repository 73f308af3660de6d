package model

import "time"

// Fan 粉丝索引（UserID 的粉丝是 FanID），异步冗余自 Follow，对账时重建
type Fan struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_fan_user;uniqueIndex:ux_fan_pair;not null"`
	FanID     string `gorm:"type:varchar(36);uniqueIndex:ux_fan_pair;not null"`
	CreatedAt time.Time
}

func (Fan) TableName() string { return "fans" }

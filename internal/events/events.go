// Package events 变更通知总线。服务在提交后发布实体变更，订阅者（SSE、会话状态）据此刷新。
package events

import (
	"context"
	"sync"
	"time"
)

type Type string

const (
	UserUpdated         Type = "user.updated"
	FollowChanged       Type = "follow.changed"
	IdeaCreated         Type = "idea.created"
	IdeaUpdated         Type = "idea.updated"
	IdeaDeleted         Type = "idea.deleted"
	LikeChanged         Type = "like.changed"
	CommentChanged      Type = "comment.changed"
	NotificationCreated Type = "notification.created"
)

// Event 一次实体变更。Version 为实体写入后的版本号，消费者丢弃不新于已知版本的事件。
type Event struct {
	Type     Type           `json:"type"`
	EntityID string         `json:"entity_id"`
	Version  int64          `json:"version"`
	ActorID  string         `json:"actor_id,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	At       time.Time      `json:"at"`
}

type Bus interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe 订阅直到 ctx 取消或调用 Subscription.Close
	Subscribe(ctx context.Context) (Subscription, error)
	Close() error
}

type Subscription interface {
	C() <-chan Event
	Close() error
}

// VersionFilter 记录每个实体已见过的最大版本
type VersionFilter struct {
	mu   sync.Mutex
	seen map[string]int64
}

func NewVersionFilter() *VersionFilter {
	return &VersionFilter{seen: make(map[string]int64)}
}

// Accept 事件版本比已知版本新时返回 true 并记录；无版本号的事件总是接受
func (f *VersionFilter) Accept(e Event) bool {
	if e.Version <= 0 {
		return true
	}
	key := string(e.Type) + "/" + e.EntityID
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.Version <= f.seen[key] {
		return false
	}
	f.seen[key] = e.Version
	return true
}

// Observe 记录从权威存储读到的版本
func (f *VersionFilter) Observe(t Type, entityID string, version int64) {
	key := string(t) + "/" + entityID
	f.mu.Lock()
	if version > f.seen[key] {
		f.seen[key] = version
	}
	f.mu.Unlock()
}

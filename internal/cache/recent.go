package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRecentCapacity 最近浏览列表的默认容量
const DefaultRecentCapacity = 5

// RecentList 每个用户一个有界的最近浏览列表，下标 0 为最近一次
type RecentList struct {
	rdb      *redis.Client
	capacity int
}

func NewRecentList(rdb *redis.Client, capacity int) *RecentList {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &RecentList{rdb: rdb, capacity: capacity}
}

func recentKey(userID string) string { return fmt.Sprintf("recent:%s", userID) }

func (l *RecentList) Capacity() int { return l.capacity }

// Touch 把 ideaID 移到列表头部，超出容量的尾部被淘汰。
// 已在头部时不做任何写入，返回 false。
func (l *RecentList) Touch(ctx context.Context, userID, ideaID string) (bool, error) {
	key := recentKey(userID)
	head, err := l.rdb.LIndex(ctx, key, 0).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	if head == ideaID {
		return false, nil
	}
	_, err = l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, key, 0, ideaID)
		pipe.LPush(ctx, key, ideaID)
		pipe.LTrim(ctx, key, 0, int64(l.capacity-1))
		return nil
	})
	return err == nil, err
}

func (l *RecentList) IDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := l.rdb.LRange(ctx, recentKey(userID), 0, int64(l.capacity-1)).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	return ids, err
}

func (l *RecentList) Remove(ctx context.Context, userID, ideaID string) error {
	return l.rdb.LRem(ctx, recentKey(userID), 0, ideaID).Err()
}

// Package cache 基于 Redis 的读缓存：关注集合、用户卡片、最近浏览列表
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FollowingCache 缓存用户当前关注的 id 列表（按关注时间倒序），写操作后失效
type FollowingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewFollowingCache(rdb *redis.Client, ttl time.Duration) *FollowingCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FollowingCache{rdb: rdb, ttl: ttl}
}

func followingKey(userID string) string { return fmt.Sprintf("following:index:%s", userID) }

// Load 读穿：命中返回缓存，未命中调用 loader 并回填。空集合不缓存。
func (c *FollowingCache) Load(ctx context.Context, userID string, loader func(context.Context) ([]string, error)) ([]string, error) {
	key := followingKey(userID)
	ids, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if len(ids) > 0 {
		return ids, nil
	}

	ids, err = loader(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		pipe := c.rdb.Pipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, interfaceSlice(ids)...)
		pipe.Expire(ctx, key, c.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (c *FollowingCache) Invalidate(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, followingKey(userID)).Err()
}

func interfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}

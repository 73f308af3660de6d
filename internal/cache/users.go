package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/ideagraph/internal/model"
)

// UserCard 列表页所需的最小用户信息
type UserCard struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	FollowersCount int64  `json:"followers_count"`
}

func CardOf(u *model.User) UserCard {
	return UserCard{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName(),
		AvatarURL:      u.AvatarURL,
		FollowersCount: u.FollowersCount,
	}
}

// UserCardCache 用 MGET 批量读取用户卡片，缺失部分交给 loader 并回填
type UserCardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewUserCardCache(rdb *redis.Client, ttl time.Duration) *UserCardCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &UserCardCache{rdb: rdb, ttl: ttl}
}

func userKey(id string) string { return fmt.Sprintf("user:%s", id) }

// Load 按 ids 顺序返回，loader 也找不到的 id 被跳过
func (c *UserCardCache) Load(ctx context.Context, ids []string, loader func(context.Context, []string) ([]*model.User, error)) ([]UserCard, error) {
	if len(ids) == 0 {
		return []UserCard{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}

	cached := make(map[string]UserCard, len(ids))
	if vals, err := c.rdb.MGet(ctx, keys...).Result(); err == nil {
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			var card UserCard
			if uErr := json.Unmarshal([]byte(str), &card); uErr == nil {
				cached[ids[i]] = card
			}
		}
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		users, err := loader(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			card := CardOf(u)
			cached[u.ID] = card
			if payload, err := json.Marshal(card); err == nil {
				_ = c.rdb.Set(ctx, userKey(u.ID), payload, c.ttl).Err()
			}
		}
	}

	result := make([]UserCard, 0, len(ids))
	for _, id := range ids {
		if card, ok := cached[id]; ok {
			result = append(result, card)
		}
	}
	return result, nil
}

func (c *UserCardCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/pkg/logger"
)

const DefaultChannel = "ideagraph:events"

// RedisBus 基于 Redis Pub/Sub，多实例部署时各节点都能收到变更
type RedisBus struct {
	rdb     *redis.Client
	channel string
}

func NewRedisBus(rdb *redis.Client, channel string) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{rdb: rdb, channel: channel}
}

func (b *RedisBus) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context) (Subscription, error) {
	ps := b.rdb.Subscribe(ctx, b.channel)
	// 等待订阅确认，保证返回后发布的事件不会丢
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &redisSub{ps: ps, ch: make(chan Event, subscriberBuffer), cancel: cancel}
	go s.run(ctx)
	return s, nil
}

// Close 连接由调用方管理
func (b *RedisBus) Close() error { return nil }

type redisSub struct {
	ps     *redis.PubSub
	ch     chan Event
	cancel context.CancelFunc
	once   sync.Once
}

func (s *redisSub) run(ctx context.Context) {
	defer close(s.ch)
	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.ps.Close()
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				logger.Warn("decode event", zap.Error(err))
				continue
			}
			select {
			case s.ch <- e:
			default:
				logger.Warn("event subscriber too slow, drop event", zap.String("type", string(e.Type)))
			}
		}
	}
}

func (s *redisSub) C() <-chan Event { return s.ch }

func (s *redisSub) Close() error {
	s.once.Do(s.cancel)
	return nil
}

package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/pkg/logger"
)

const subscriberBuffer = 64

// MemoryBus 进程内总线，单节点部署与测试使用
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[*memorySub]struct{}
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*memorySub]struct{})}
}

func (b *MemoryBus) Publish(_ context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			logger.Warn("event subscriber too slow, drop event", zap.String("type", string(e.Type)), zap.String("entity", e.EntityID))
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (Subscription, error) {
	s := &memorySub{bus: b, ch: make(chan Event, subscriberBuffer)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s, nil
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	return s, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for s := range b.subs {
		s.once.Do(func() { close(s.ch) })
		delete(b.subs, s)
	}
	return nil
}

type memorySub struct {
	bus  *MemoryBus
	ch   chan Event
	once sync.Once
}

func (s *memorySub) C() <-chan Event { return s.ch }

func (s *memorySub) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.subs, s)
	s.once.Do(func() { close(s.ch) })
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
	"github.com/d60-Lab/ideagraph/pkg/logger"
	"github.com/d60-Lab/ideagraph/pkg/metrics"
)

// FanoutWorker 从 outbox 拉取新想法事件，按作者的粉丝索引分页写入 new_idea 通知
type FanoutWorker struct {
	store        *repository.Store
	notifier     *Notifier
	batchSize    int
	claimLimit   int
	pollInterval time.Duration
	lease        time.Duration
	workers      int
}

// lease 是认领后未完成的事件可被再次认领的时长
func NewFanoutWorker(store *repository.Store, notifier *Notifier, workers, batchSize, claimLimit int, pollInterval, lease time.Duration) *FanoutWorker {
	if workers <= 0 {
		workers = 2
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if claimLimit <= 0 {
		claimLimit = 64
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if lease <= 0 {
		lease = 5 * time.Minute
	}
	return &FanoutWorker{
		store:        store,
		notifier:     notifier,
		workers:      workers,
		batchSize:    batchSize,
		claimLimit:   claimLimit,
		pollInterval: pollInterval,
		lease:        lease,
	}
}

// Start 启动若干 worker 轮询处理 outbox；返回停止函数
func (w *FanoutWorker) Start() func(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, w.workers)
	for i := 0; i < w.workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			w.loop(ctx)
		}()
	}
	return func(stopCtx context.Context) error {
		cancel()
		for i := 0; i < w.workers; i++ {
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		}
		return nil
	}
}

func (w *FanoutWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("fanout outbox failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce 认领一批事件并扇出，返回认领的事件数。
// 失败的事件放回 pending；放回也失败时等租约过期后重新认领。
func (w *FanoutWorker) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := w.store.Outbox.Claim(ctx, w.claimLimit, w.lease)
	if err != nil {
		return 0, err
	}
	for _, ob := range batch {
		written, err := w.fanout(ctx, ob)
		if err != nil {
			logger.Error("fanout idea failed", zap.String("outbox", ob.ID), zap.String("idea", ob.IdeaID),
				zap.Int("attempts", ob.Attempts+1), zap.Error(err))
			if err := w.store.Outbox.Release(ctx, ob.ID); err != nil {
				logger.Warn("release outbox failed", zap.String("outbox", ob.ID), zap.Error(err))
			}
			continue
		}
		if err := w.store.Outbox.MarkDone(ctx, ob.ID, written); err != nil {
			return 0, err
		}
		if !ob.CreatedAt.IsZero() {
			metrics.QueueLatency.WithLabelValues("fanout").Observe(time.Since(ob.CreatedAt).Seconds())
		}
	}
	return len(batch), nil
}

func (w *FanoutWorker) fanout(ctx context.Context, ob *model.Outbox) (int64, error) {
	idea, err := w.store.Ideas.GetByID(ctx, ob.IdeaID)
	if errors.Is(err, apperr.ErrNotFound) {
		// 想法已被删除，无需通知
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var total int64
	offset := 0
	for {
		fans, err := w.store.Fans.ListFans(ctx, ob.AuthorID, offset, w.batchSize)
		if err != nil {
			return total, err
		}
		if len(fans) == 0 {
			break
		}
		fanIDs := make([]string, len(fans))
		for i, f := range fans {
			fanIDs[i] = f.FanID
		}
		// 重试时跳过上一次已写入的粉丝
		notified, err := w.store.Notifications.NotifiedReceivers(ctx, model.NotificationNewIdea, idea.ID, fanIDs)
		if err != nil {
			return total, err
		}
		skip := make(map[string]bool, len(notified))
		for _, id := range notified {
			skip[id] = true
		}
		notes := make([]*model.Notification, 0, len(fans))
		for _, f := range fans {
			if skip[f.FanID] {
				continue
			}
			notes = append(notes, &model.Notification{
				Type:       model.NotificationNewIdea,
				SenderID:   idea.AuthorID,
				SenderName: idea.AuthorName,
				ReceiverID: f.FanID,
				RelatedID:  idea.ID,
				Message:    fmt.Sprintf("%s shared a new idea: %s", idea.AuthorName, idea.Title),
			})
		}
		if err := w.store.Notifications.CreateBatch(ctx, notes); err != nil {
			return total, err
		}
		w.notifier.Deliver(ctx, notes...)
		total += int64(len(notes))
		metrics.FanoutNotifications.Add(float64(len(notes)))
		if len(fans) < w.batchSize {
			break
		}
		offset += w.batchSize
	}
	return total, nil
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/push"
	"github.com/d60-Lab/ideagraph/pkg/logger"
	"github.com/d60-Lab/ideagraph/pkg/metrics"
)

type dispatchJob struct {
	note  *model.Notification
	enqAt time.Time
}

// Dispatcher 已落库通知的异步推送执行器，队列满时丢弃推送（通知本身仍在库中）
type Dispatcher struct {
	pusher push.Pusher
	ch     chan dispatchJob
}

func NewDispatcher(pusher push.Pusher, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 10000
	}
	if pusher == nil {
		pusher = push.LogPusher{}
	}
	return &Dispatcher{pusher: pusher, ch: make(chan dispatchJob, queueSize)}
}

func (d *Dispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-d.ch:
					d.deliver(job)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		// 在 ctx 允许的时间内把剩余任务推完
		for {
			select {
			case job := <-d.ch:
				d.deliver(job)
			case <-ctx.Done():
				return ctx.Err()
			default:
				return nil
			}
		}
	}
}

func (d *Dispatcher) deliver(job dispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n := job.note
	err := d.pusher.Push(ctx, push.Message{
		ReceiverID: n.ReceiverID,
		Title:      pushTitle(n.Type),
		Body:       n.Message,
		Ext:        map[string]string{"notification_id": n.ID, "type": string(n.Type), "related_id": n.RelatedID},
	})
	if err != nil {
		metrics.PushTotal.WithLabelValues("error").Inc()
		logger.Warn("push notification failed", zap.String("notification", n.ID), zap.String("receiver", n.ReceiverID), zap.Error(err))
	} else {
		metrics.PushTotal.WithLabelValues("ok").Inc()
	}
	metrics.QueueLatency.WithLabelValues("dispatcher").Observe(time.Since(job.enqAt).Seconds())
}

func (d *Dispatcher) Enqueue(n *model.Notification) bool {
	select {
	case d.ch <- dispatchJob{note: n, enqAt: time.Now()}:
		return true
	default:
		metrics.QueueDropped.WithLabelValues("dispatcher").Inc()
		logger.Warn("dispatch queue full, drop push", zap.String("notification", n.ID), zap.String("receiver", n.ReceiverID))
		return false
	}
}

// QueueLen 返回当前队列长度（采样值）
func (d *Dispatcher) QueueLen() int { return len(d.ch) }

func pushTitle(t model.NotificationType) string {
	switch t {
	case model.NotificationLike:
		return "New like"
	case model.NotificationComment:
		return "New comment"
	case model.NotificationFollow:
		return "New follower"
	case model.NotificationNewIdea:
		return "New idea"
	default:
		return "Notice"
	}
}

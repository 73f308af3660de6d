package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/repository"
	"github.com/d60-Lab/ideagraph/pkg/logger"
	"github.com/d60-Lab/ideagraph/pkg/metrics"
)

type replicateAction int

const (
	actionAdd replicateAction = iota + 1
	actionRemove
)

type replicateJob struct {
	action replicateAction
	userID string
	fanID  string
	enqAt  time.Time
}

// FanReplicator 把关注边异步冗余到粉丝索引；丢失的任务由 Reconcile 修复
type FanReplicator struct {
	fanRepo repository.FanRepository
	ch      chan replicateJob
}

func NewFanReplicator(fanRepo repository.FanRepository, queueSize int) *FanReplicator {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &FanReplicator{fanRepo: fanRepo, ch: make(chan replicateJob, queueSize)}
}

func (r *FanReplicator) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-r.ch:
					r.apply(job)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		close(stopCh)
		// 排空剩余任务，直到队列为空或 ctx 到期
		for {
			select {
			case job := <-r.ch:
				r.apply(job)
			case <-ctx.Done():
				return ctx.Err()
			default:
				return nil
			}
		}
	}
}

func (r *FanReplicator) apply(job replicateJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err error
	switch job.action {
	case actionAdd:
		err = r.fanRepo.Create(ctx, job.userID, job.fanID)
	case actionRemove:
		err = r.fanRepo.Delete(ctx, job.userID, job.fanID)
	}
	if err != nil {
		logger.Warn("replicate fan index failed", zap.String("user", job.userID), zap.String("fan", job.fanID), zap.Error(err))
	}
	metrics.QueueLatency.WithLabelValues("replicator").Observe(time.Since(job.enqAt).Seconds())
}

func (r *FanReplicator) EnqueueAdd(userID, fanID string) {
	select {
	case r.ch <- replicateJob{action: actionAdd, userID: userID, fanID: fanID, enqAt: time.Now()}:
	default:
		metrics.QueueDropped.WithLabelValues("replicator").Inc()
		logger.Warn("replicator queue full, drop add", zap.String("user", userID), zap.String("fan", fanID))
	}
}

func (r *FanReplicator) EnqueueRemove(userID, fanID string) {
	select {
	case r.ch <- replicateJob{action: actionRemove, userID: userID, fanID: fanID, enqAt: time.Now()}:
	default:
		metrics.QueueDropped.WithLabelValues("replicator").Inc()
		logger.Warn("replicator queue full, drop remove", zap.String("user", userID), zap.String("fan", fanID))
	}
}

// QueueLen 返回当前队列长度（采样值）
func (r *FanReplicator) QueueLen() int { return len(r.ch) }

// Package push 通知的设备推送出口，推送失败不影响已落库的通知
package push

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/config"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

// Message 推送给某个账号的一条消息
type Message struct {
	ReceiverID string
	Title      string
	Body       string
	Ext        map[string]string
}

type Pusher interface {
	Push(ctx context.Context, msg Message) error
}

// New 按配置选择推送实现
func New(cfg config.PushConfig) (Pusher, error) {
	switch cfg.Provider {
	case "", "log":
		return LogPusher{}, nil
	case "aliyun":
		return NewAliyunPusher(cfg)
	default:
		return nil, fmt.Errorf("unknown push provider %q", cfg.Provider)
	}
}

// LogPusher 只记录日志，开发环境使用
type LogPusher struct{}

func (LogPusher) Push(_ context.Context, msg Message) error {
	logger.Info("push notification",
		zap.String("receiver", msg.ReceiverID),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
	)
	return nil
}

package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/session"
	"github.com/d60-Lab/ideagraph/pkg/logger"
	"github.com/d60-Lab/ideagraph/pkg/response"
)

const sseKeepAlive = 25 * time.Second

var errNoBus = errors.New("event bus is not configured")

// Events SSE 变更流：先推一次会话快照，之后推送会话状态迁移与发给自己的通知
// @Summary 订阅变更流（Server-Sent Events）
// @Tags 变更流
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "event stream"
// @Router /api/v1/events [get]
func (h *Handler) Events(c *gin.Context) {
	if h.bus == nil {
		response.Error(c, errNoBus)
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c)

	changes := make(chan session.Change, 32)
	s := session.New(userID, h.remote, h.bus)
	defer s.Close()
	s.OnChange(func(ch session.Change) {
		select {
		case changes <- ch:
		default:
			// 客户端太慢，丢弃中间状态，下次 Load 会对齐
		}
	})
	if err := s.Load(ctx); err != nil {
		fail(c, err)
		return
	}

	sub, err := h.bus.Subscribe(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", s.Snapshot())
	c.Writer.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ch := <-changes:
			c.SSEvent("change", ch)
		case e, ok := <-sub.C():
			if !ok {
				return false
			}
			if e.Type != events.NotificationCreated || e.Data["receiver_id"] != userID {
				return true
			}
			c.SSEvent("notification", e)
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
		}
		return true
	})
	logger.Debug("event stream closed", zap.String("user", userID))
}

package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func pageOffset(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return (page - 1) * pageSize, pageSize
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// publish 变更事件只尽力投递，失败记录日志
func publish(ctx context.Context, bus events.Bus, e events.Event) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, e); err != nil {
		logger.Warn("publish event failed", zap.String("type", string(e.Type)), zap.String("entity", e.EntityID), zap.Error(err))
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

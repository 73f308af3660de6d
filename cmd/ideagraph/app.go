package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/config"
	"github.com/d60-Lab/ideagraph/internal/api/handler"
	"github.com/d60-Lab/ideagraph/internal/cache"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/push"
	"github.com/d60-Lab/ideagraph/internal/repository"
	"github.com/d60-Lab/ideagraph/internal/service"
	"github.com/d60-Lab/ideagraph/pkg/auth"
	"github.com/d60-Lab/ideagraph/pkg/database"
	"github.com/d60-Lab/ideagraph/pkg/logger"
)

// app 进程内的全部依赖
type app struct {
	cfg        *config.Config
	db         *gorm.DB
	rdb        *redis.Client
	store      *repository.Store
	bus        events.Bus
	tokens     *auth.TokenIssuer
	replicator *service.FanReplicator
	dispatcher *service.Dispatcher
	fanout     *service.FanoutWorker
	services   handler.Services
}

func newApp(cfg *config.Config) (*app, error) {
	db, err := database.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := database.InitRedis(cfg)
	if err != nil {
		return nil, err
	}

	var bus events.Bus
	switch cfg.Events.Backend {
	case "memory":
		bus = events.NewMemoryBus()
	case "redis", "":
		bus = events.NewRedisBus(rdb, cfg.Events.Channel)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}

	pusher, err := push.New(cfg.Push)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		db:     db,
		rdb:    rdb,
		store:  repository.NewStore(db),
		bus:    bus,
		tokens: auth.NewTokenIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpireHours)*time.Hour),
	}
	a.replicator = service.NewFanReplicator(a.store.Fans, cfg.Worker.ReplicatorQueue)
	a.dispatcher = service.NewDispatcher(pusher, cfg.Worker.DispatchQueue)
	notifier := service.NewNotifier(a.dispatcher, bus)
	a.fanout = service.NewFanoutWorker(a.store, notifier, cfg.Worker.FanoutWorkers, cfg.Worker.FanoutBatch, cfg.Worker.FanoutClaim, cfg.Worker.FanoutInterval, cfg.Worker.FanoutLease)

	following := cache.NewFollowingCache(rdb, cfg.Feed.FollowingTTL)
	cards := cache.NewUserCardCache(rdb, cfg.Feed.FollowingTTL)
	relations := service.NewRelationshipService(a.store, a.replicator, following, cards, notifier, bus)
	engagement := service.NewEngagementService(a.store, notifier, bus)

	a.services = handler.Services{
		Users:         service.NewUserService(a.store, a.tokens, cards, bus),
		Relations:     relations,
		Ideas:         service.NewIdeaService(a.store, bus),
		Engagement:    engagement,
		Comments:      service.NewCommentService(a.store, notifier, bus),
		Feed:          service.NewFeedService(a.store, relations, cfg.Feed.DefaultLimit, cfg.Feed.MaxLimit),
		Views:         service.NewViewService(a.store, cache.NewRecentList(rdb, cfg.Feed.RecentCapacity), bus),
		Notifications: service.NewNotificationService(a.store, notifier),
		Bus:           bus,
	}
	return a, nil
}

// ping 数据库与 Redis 健康检查
func (a *app) ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := a.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

func (a *app) close() {
	if err := a.bus.Close(); err != nil {
		logger.Warn("close event bus", zap.Error(err))
	}
	if err := a.rdb.Close(); err != nil {
		logger.Warn("close redis", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

package router

import (
	"context"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/ideagraph/config"
	_ "github.com/d60-Lab/ideagraph/docs"
	"github.com/d60-Lab/ideagraph/internal/api/handler"
	"github.com/d60-Lab/ideagraph/internal/api/middleware"
	"github.com/d60-Lab/ideagraph/pkg/auth"
)

type Options struct {
	Mode        string
	ServiceName string
	Tokens      *auth.TokenIssuer
	RateLimit   config.RateLimitConfig
	// Sentry 为 true 时挂载 sentrygin，需先 sentry.Init
	Sentry bool
	// Health 为 nil 时 /healthz 总是返回 ok
	Health func(ctx context.Context) error
}

// New 组装中间件与路由
func New(h *handler.Handler, opts Options) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(
		middleware.Logger(),
		middleware.Metrics(),
		middleware.RateLimit(middleware.NewIPRateLimiter(rate.Limit(opts.RateLimit.RPS), opts.RateLimit.Burst)),
		// SSE 与指标接口不压缩
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events", "/metrics"})),
	)

	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authed := middleware.Auth(opts.Tokens)
	optional := middleware.OptionalAuth(opts.Tokens)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/register", h.Register)
		v1.POST("/auth/login", h.Login)

		v1.GET("/users/:id", h.GetUser)
		v1.GET("/users/:id/following", h.ListFollowing)
		v1.GET("/users/:id/followers", h.ListFollowers)
		v1.PUT("/users/me", authed, h.UpdateMe)
		v1.POST("/users/me/reconcile", authed, h.ReconcileMe)

		v1.POST("/relations/follow", authed, h.Follow)
		v1.POST("/relations/unfollow", authed, h.Unfollow)

		v1.GET("/categories", h.ListCategories)
		v1.GET("/ideas", optional, h.Feed)
		v1.GET("/ideas/popular", h.Popular)
		v1.GET("/ideas/search", h.Search)
		v1.GET("/ideas/recent", authed, h.RecentIdeas)
		v1.POST("/ideas", authed, h.CreateIdea)
		v1.GET("/ideas/:id", optional, h.GetIdea)
		v1.PUT("/ideas/:id", authed, h.UpdateIdea)
		v1.DELETE("/ideas/:id", authed, h.DeleteIdea)
		v1.POST("/ideas/:id/like", authed, h.ToggleIdeaLike)
		v1.POST("/ideas/:id/view", authed, h.ViewIdea)
		v1.GET("/ideas/:id/comments", h.ListComments)
		v1.POST("/ideas/:id/comments", authed, h.AddComment)

		v1.PUT("/comments/:id", authed, h.UpdateComment)
		v1.DELETE("/comments/:id", authed, h.DeleteComment)
		v1.POST("/comments/:id/like", authed, h.ToggleCommentLike)

		v1.GET("/notifications", authed, h.ListNotifications)
		v1.GET("/notifications/unread", authed, h.UnreadCount)
		v1.POST("/notifications/read-all", authed, h.MarkAllNotificationsRead)
		v1.POST("/notifications/:id/read", authed, h.MarkNotificationRead)
		v1.DELETE("/notifications/:id", authed, h.DeleteNotification)
		v1.DELETE("/notifications", authed, h.ClearNotifications)

		v1.GET("/events", authed, h.Events)
	}
	return r
}

package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/ideagraph/internal/api/middleware"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/service"
	"github.com/d60-Lab/ideagraph/internal/session"
	"github.com/d60-Lab/ideagraph/pkg/response"
)

// Services handler 依赖的服务集合
type Services struct {
	Users         service.UserService
	Relations     service.RelationshipService
	Ideas         service.IdeaService
	Engagement    service.EngagementService
	Comments      service.CommentService
	Feed          service.FeedService
	Views         service.ViewService
	Notifications service.NotificationService
	Bus           events.Bus
}

type Handler struct {
	users         service.UserService
	relService    service.RelationshipService
	ideas         service.IdeaService
	engagement    service.EngagementService
	comments      service.CommentService
	feed          service.FeedService
	views         service.ViewService
	notifications service.NotificationService
	bus           events.Bus
	remote        session.Remote
}

func New(s Services) *Handler {
	return &Handler{
		users:         s.Users,
		relService:    s.Relations,
		ideas:         s.Ideas,
		engagement:    s.Engagement,
		comments:      s.Comments,
		feed:          s.Feed,
		views:         s.Views,
		notifications: s.Notifications,
		bus:           s.Bus,
		remote:        session.NewRemote(s.Relations, s.Engagement),
	}
}

// fail 把服务错误映射为响应
func fail(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		response.Unauthorized(c, err.Error())
		return
	}
	response.Error(c, err)
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func currentUser(c *gin.Context) string {
	return middleware.UserID(c)
}

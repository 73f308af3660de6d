package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/ideagraph/internal/service"
	"github.com/d60-Lab/ideagraph/pkg/response"
)

// Feed 想法流
// @Summary 想法流（for_you 全部 / following 只看关注的人）
// @Tags 想法
// @Produce json
// @Param mode query string false "for_you | following" default(for_you)
// @Param category query string false "分类"
// @Param limit query int false "数量" default(50)
// @Param offset query int false "偏移" default(0)
// @Success 200 {object} response.Response{data=[]model.Idea}
// @Failure 400 {object} response.Response
// @Router /api/v1/ideas [get]
func (h *Handler) Feed(c *gin.Context) {
	q := service.FeedQuery{
		UserID:   currentUser(c),
		Mode:     service.FeedMode(c.DefaultQuery("mode", string(service.FeedForYou))),
		Category: c.Query("category"),
		Limit:    queryInt(c, "limit", 0),
		Offset:   queryInt(c, "offset", 0),
	}
	if q.Mode == service.FeedFollowing && q.UserID == "" {
		response.Unauthorized(c, "login required for the following feed")
		return
	}
	ideas, err := h.feed.GetFeed(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ideas)
}

// Popular 热门榜
// @Summary 热门想法
// @Tags 想法
// @Produce json
// @Param window query string false "today | week | month | all_time" default(all_time)
// @Param category query string false "分类"
// @Param limit query int false "数量" default(50)
// @Success 200 {object} response.Response{data=[]model.Idea}
// @Router /api/v1/ideas/popular [get]
func (h *Handler) Popular(c *gin.Context) {
	window, err := service.ParseWindow(c.Query("window"))
	if err != nil {
		fail(c, err)
		return
	}
	ideas, err := h.feed.Popular(c.Request.Context(), window, c.Query("category"), queryInt(c, "limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ideas)
}

// Search 搜索想法
// @Summary 按关键词搜索标题、正文、分类与作者
// @Tags 想法
// @Produce json
// @Param q query string true "关键词"
// @Param limit query int false "数量" default(50)
// @Success 200 {object} response.Response{data=[]model.Idea}
// @Router /api/v1/ideas/search [get]
func (h *Handler) Search(c *gin.Context) {
	ideas, err := h.feed.Search(c.Request.Context(), c.Query("q"), queryInt(c, "limit", 0))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ideas)
}

// CreateIdea 发布想法
// @Summary 发布想法
// @Tags 想法
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.IdeaInput true "想法"
// @Success 200 {object} response.Response{data=model.Idea}
// @Failure 400 {object} response.Response
// @Router /api/v1/ideas [post]
func (h *Handler) CreateIdea(c *gin.Context) {
	var req service.IdeaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	idea, err := h.ideas.CreateIdea(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, idea)
}

// GetIdea 想法详情，登录时附带是否已点赞
// @Summary 想法详情
// @Tags 想法
// @Produce json
// @Param id path string true "想法ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/ideas/{id} [get]
func (h *Handler) GetIdea(c *gin.Context) {
	ctx := c.Request.Context()
	idea, err := h.ideas.GetIdea(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	liked := false
	if uid := currentUser(c); uid != "" {
		if liked, err = h.engagement.IsIdeaLiked(ctx, uid, idea.ID); err != nil {
			fail(c, err)
			return
		}
	}
	response.Success(c, gin.H{"idea": idea, "liked": liked})
}

// UpdateIdea 修改想法（仅作者）
// @Summary 修改想法
// @Tags 想法
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "想法ID"
// @Param request body service.IdeaInput true "想法"
// @Success 200 {object} response.Response{data=model.Idea}
// @Failure 403 {object} response.Response
// @Router /api/v1/ideas/{id} [put]
func (h *Handler) UpdateIdea(c *gin.Context) {
	var req service.IdeaInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	idea, err := h.ideas.UpdateIdea(c.Request.Context(), currentUser(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, idea)
}

// DeleteIdea 删除想法（仅作者），级联删除评论、点赞与浏览记录
// @Summary 删除想法
// @Tags 想法
// @Security BearerAuth
// @Param id path string true "想法ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/ideas/{id} [delete]
func (h *Handler) DeleteIdea(c *gin.Context) {
	if err := h.ideas.DeleteIdea(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleIdeaLike 点赞/取消点赞
// @Summary 切换想法点赞
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "想法ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/ideas/{id}/like [post]
func (h *Handler) ToggleIdeaLike(c *gin.Context) {
	liked, count, err := h.engagement.ToggleIdeaLike(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"liked": liked, "like_count": count})
}

// ViewIdea 记录浏览
// @Summary 记录浏览（每人只计一次）
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "想法ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/ideas/{id}/view [post]
func (h *Handler) ViewIdea(c *gin.Context) {
	first, err := h.views.ViewIdea(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"first_view": first})
}

// RecentIdeas 最近浏览
// @Summary 最近浏览的想法（最多 5 条）
// @Tags 互动
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Idea}
// @Router /api/v1/ideas/recent [get]
func (h *Handler) RecentIdeas(c *gin.Context) {
	ideas, err := h.views.RecentlyViewed(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, ideas)
}

// ListCategories 分类及想法数
// @Summary 分类列表
// @Tags 想法
// @Success 200 {object} response.Response{data=[]model.Category}
// @Router /api/v1/categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.ideas.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, cats)
}

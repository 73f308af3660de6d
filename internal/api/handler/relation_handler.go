package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/ideagraph/pkg/response"
)

type followRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Follow 关注用户，重复关注不报错
// @Summary 关注用户
// @Tags 关系链
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body followRequest true "被关注用户"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	changed, err := h.relService.Follow(c.Request.Context(), currentUser(c), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"following": true, "changed": changed})
}

// Unfollow 取消关注，关系不存在时不报错
// @Summary 取消关注
// @Tags 关系链
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body followRequest true "被取消关注用户"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	changed, err := h.relService.Unfollow(c.Request.Context(), currentUser(c), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"following": false, "changed": changed})
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{id}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	page, pageSize := queryInt(c, "page", 1), queryInt(c, "page_size", 20)
	list, err := h.relService.ListFollowing(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListFollowers 查询某用户的粉丝
// @Summary 查询粉丝列表（来自粉丝索引）
// @Tags 关系链
// @Param id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{id}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	page, pageSize := queryInt(c, "page", 1), queryInt(c, "page_size", 20)
	list, err := h.relService.ListFollowers(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

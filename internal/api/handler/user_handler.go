package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/ideagraph/internal/service"
	"github.com/d60-Lab/ideagraph/internal/session"
	"github.com/d60-Lab/ideagraph/pkg/response"
)

// GetUser 查询用户资料
// @Summary 查询用户资料
// @Tags 用户
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.users.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, u)
}

// UpdateMe 修改自己的资料，未提供的字段保持不变
// @Summary 修改资料
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ProfileInput true "资料"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/users/me [put]
func (h *Handler) UpdateMe(c *gin.Context) {
	var req service.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, u)
}

// ReconcileMe 对账并返回会话快照：计数、粉丝索引、关注集合与点赞集合
// @Summary 加载并修复会话状态
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=session.Snapshot}
// @Router /api/v1/users/me/reconcile [post]
func (h *Handler) ReconcileMe(c *gin.Context) {
	s := session.New(currentUser(c), h.remote, nil)
	defer s.Close()
	if err := s.Load(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, s.Snapshot())
}

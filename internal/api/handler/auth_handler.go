package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/ideagraph/internal/service"
	"github.com/d60-Lab/ideagraph/pkg/response"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册
// @Summary 注册新用户
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "注册信息"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, u)
}

// Login 登录，返回访问令牌
// @Summary 邮箱密码登录
// @Tags 账号
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "user": u})
}

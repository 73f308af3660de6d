package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/ideagraph/pkg/response"
)

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListComments 评论列表，新评论在前
// @Summary 评论列表
// @Tags 评论
// @Param id path string true "想法ID"
// @Param limit query int false "数量" default(20)
// @Param offset query int false "偏移" default(0)
// @Success 200 {object} response.Response{data=[]model.Comment}
// @Failure 404 {object} response.Response
// @Router /api/v1/ideas/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	list, err := h.comments.ListComments(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}

// AddComment 发表评论
// @Summary 发表评论
// @Tags 评论
// @Accept json
// @Security BearerAuth
// @Param id path string true "想法ID"
// @Param request body commentRequest true "评论内容"
// @Success 200 {object} response.Response{data=model.Comment}
// @Failure 400 {object} response.Response
// @Router /api/v1/ideas/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	comment, err := h.comments.AddComment(c.Request.Context(), currentUser(c), c.Param("id"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, comment)
}

// UpdateComment 修改评论（仅作者）
// @Summary 修改评论
// @Tags 评论
// @Accept json
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Param request body commentRequest true "评论内容"
// @Success 200 {object} response.Response{data=model.Comment}
// @Failure 403 {object} response.Response
// @Router /api/v1/comments/{id} [put]
func (h *Handler) UpdateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	comment, err := h.comments.UpdateComment(c.Request.Context(), currentUser(c), c.Param("id"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, comment)
}

// DeleteComment 删除评论（仅作者）
// @Summary 删除评论
// @Tags 评论
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/comments/{id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	if err := h.comments.DeleteComment(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ToggleCommentLike 评论点赞/取消
// @Summary 切换评论点赞
// @Tags 评论
// @Security BearerAuth
// @Param id path string true "评论ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/comments/{id}/like [post]
func (h *Handler) ToggleCommentLike(c *gin.Context) {
	liked, count, err := h.engagement.ToggleCommentLike(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"liked": liked, "like_count": count})
}

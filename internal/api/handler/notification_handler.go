package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/ideagraph/pkg/response"
)

// ListNotifications 我的通知
// @Summary 通知列表，新通知在前
// @Tags 通知
// @Security BearerAuth
// @Param unread query bool false "只看未读"
// @Param limit query int false "数量" default(20)
// @Param offset query int false "偏移" default(0)
// @Success 200 {object} response.Response{data=[]model.Notification}
// @Router /api/v1/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	unread := c.Query("unread") == "true"
	list, err := h.notifications.List(c.Request.Context(), currentUser(c), unread, queryInt(c, "limit", 0), queryInt(c, "offset", 0))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}

// UnreadCount 未读数
// @Summary 未读通知数
// @Tags 通知
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/unread [get]
func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"unread": n})
}

// MarkNotificationRead 标记已读
// @Summary 标记单条通知已读
// @Tags 通知
// @Security BearerAuth
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/{id}/read [post]
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAllNotificationsRead 全部已读
// @Summary 全部标记已读
// @Tags 通知
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/read-all [post]
func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"updated": n})
}

// DeleteNotification 删除单条通知
// @Summary 删除通知
// @Tags 通知
// @Security BearerAuth
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/{id} [delete]
func (h *Handler) DeleteNotification(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// ClearNotifications 清空通知
// @Summary 清空我的通知
// @Tags 通知
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications [delete]
func (h *Handler) ClearNotifications(c *gin.Context) {
	n, err := h.notifications.Clear(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": n})
}

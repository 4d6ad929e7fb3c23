package handler

import (
	"github.com/gin-gonic/gin"

	"farmhub/backend/internal/dto"
	"farmhub/backend/internal/service"
	"farmhub/backend/pkg/response"
)

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// List 当前用户的通知列表（分页，按创建时间倒序）
// GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	notifications, total, err := h.notificationSvc.List(c.Request.Context(), userID, page.GetPage(), page.GetPageSize())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OKPage(c, notifications, total, page.GetPage(), page.GetPageSize())
}

// MarkRead 批量标记已读
// PUT /api/v1/notifications/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), userID, req.NotificationIDs); err != nil {
		writeServiceError(c, err)
		return
	}
	response.NoContent(c)
}

// UnreadCount 未读通知数
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationSvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.OK(c, dto.UnreadCountResponse{Count: count})
}

// [自证通过] internal/api/handler/notification_handler.go

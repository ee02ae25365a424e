package controllers

import (
	"strconv"

	"gostay/response"
	"gostay/services"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// GetNotifications liệt kê thông báo của user hiện tại
func (ctl *NotificationController) GetNotifications(c *gin.Context) {
	userID, _ := currentUser(c)
	if userID == nil {
		response.Unauthorized(c)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	notifications, err := ctl.notifications.GetNotificationsByUser(*userID, limit)
	if err != nil {
		response.ServerError(c)
		return
	}
	response.Success(c, notifications)
}

// MarkNotificationRead đánh dấu một thông báo đã đọc
func (ctl *NotificationController) MarkNotificationRead(c *gin.Context) {
	userID, _ := currentUser(c)
	if userID == nil {
		response.Unauthorized(c)
		return
	}

	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "ID không hợp lệ")
		return
	}

	if err := ctl.notifications.MarkAsRead(uint(notificationID), *userID); err != nil {
		response.ServerError(c)
		return
	}
	response.Success(c, nil)
}

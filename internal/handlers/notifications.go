package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/models"
	"github.com/tripwise-dev/tripwise/internal/utils"
)

func (h *Handler) ListNotifications(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, offset := utils.GetPagination(ctx)

	query := db.DB.Where("user_id = ?", userID)
	if ctx.Query("unread") == "true" {
		query = query.Where("read = ?", false)
	}

	notifications := []models.Notification{}

	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&notifications).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}

	ctx.JSON(http.StatusOK, notifications)
}

func (h *Handler) UnreadNotificationCount(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var count int64

	if err := db.DB.Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false).Count(&count).Error; err != nil {
		internalError(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *Handler) MarkNotificationRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notificationID, err := utils.GetIDParam(ctx, "id")

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var notification models.Notification

	if err := db.DB.Where("id = ? AND user_id = ?", notificationID, userID).First(&notification).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	if !notification.Read {
		if err := db.DB.Model(&notification).Update("read", true).Error; err != nil {
			internalError(ctx)
			return
		}
	}

	ctx.JSON(http.StatusOK, notification)
}

func (h *Handler) MarkAllNotificationsRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	res := db.DB.Model(&models.Notification{}).Where("user_id = ? AND read = ?", userID, false).Update("read", true)

	if res.Error != nil {
		internalError(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
}

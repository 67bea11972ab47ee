package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/emilythestrangee/git-forum/backend/internal/models"
)

type NotificationHandler struct {
	db *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

type notificationResponse struct {
	ID         int         `json:"id"`
	Actor      userSummary `json:"actor"`
	Verb       string      `json:"verb"`
	TargetLink string      `json:"target_link"`
	IsRead     bool        `json:"is_read"`
	Timestamp  time.Time   `json:"timestamp"`
}

// GetNotifications lists the caller's notifications, newest first.
// ?unread=true restricts the list to unread ones.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p := parsePage(c)

	query := h.db.WithContext(c.Request.Context()).Model(&models.Notification{}).Where("recipient_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	query.Count(&total)

	var notifications []models.Notification
	if err := p.apply(query).Preload("Actor").Order("created_at desc").Order("id desc").Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     total,
		"page":      p.Page,
		"page_size": p.PageSize,
		"results": lo.Map(notifications, func(n models.Notification, _ int) notificationResponse {
			return notificationResponse{
				ID:         n.ID,
				Actor:      summarize(n.Actor),
				Verb:       n.Verb,
				TargetLink: n.TargetLink,
				IsRead:     n.IsRead,
				Timestamp:  n.CreatedAt,
			}
		}),
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": res.RowsAffected})
}

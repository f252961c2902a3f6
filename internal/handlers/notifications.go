package handlers

import (
	"pressroom/internal/middleware"
	"pressroom/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.Notifications
}

func NewNotificationHandler(notifications *services.Notifications) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	me := middleware.Identity(c)
	page, err := h.notifications.List(c.Request.Context(), me.UserID, c.Query("unread") == "true", pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, page)
}

func (h *NotificationHandler) Read(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id, middleware.Identity(c).UserID); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"id": id, "is_read": true})
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), middleware.Identity(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"updated": n})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id, middleware.Identity(c).UserID); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"id": id, "deleted": true})
}

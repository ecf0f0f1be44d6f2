package handlers

import (
	"net/http"

	"coursesearch/internal/middleware"
	"coursesearch/internal/services"
	"coursesearch/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifier *services.Notifier
}

func NewNotificationHandler(notifier *services.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	notifications, err := h.notifier.List(c.Request.Context(), user.ID, 50)
	if err != nil {
		abortWithError(c, err)
		return
	}
	unread, _ := c.Get(middleware.UnreadCountKey)
	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "unread": unread})
}

func (h *NotificationHandler) Read(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	if err := h.notifier.MarkRead(c.Request.Context(), user.ID, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.notifier.MarkAllRead(c.Request.Context(), user.ID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

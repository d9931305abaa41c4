package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskforge/internal/utils"
)

func (h *Handler) ListNotifications(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	notifications, err := h.notifications.List(ctx.Request.Context(), userID, ctx.Query("unread") == "true")

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, notifications)
}

func (h *Handler) MarkNotificationRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	notificationID, err := utils.GetNotificationID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	notification, err := h.notifications.MarkRead(ctx.Request.Context(), userID, notificationID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, notification)
}

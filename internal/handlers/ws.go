package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskforge/internal/realtime"
	"github.com/monocle-dev/taskforge/internal/utils"
	log "github.com/sirupsen/logrus"
)

// WebSocket upgrades an authenticated request. Rooms are joined afterwards
// with join-project messages, each checked against project membership.
func (h *Handler) WebSocket(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := realtime.NewClient(userID)

	log.WithFields(log.Fields{
		"client_id": client.ID,
		"user_id":   userID,
	}).Info("WebSocket connection established")

	realtime.Serve(ctx.Request.Context(), conn, h.hub, client, h.projects.CanJoin)
}

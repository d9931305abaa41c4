package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskforge/internal/types"
	"github.com/monocle-dev/taskforge/internal/utils"
)

func (h *Handler) SearchUsers(ctx *gin.Context) {
	users, err := h.users.Search(ctx.Request.Context(), ctx.Param("query"))

	if err != nil {
		respondError(ctx, err)
		return
	}

	response := make([]types.UserResponse, 0, len(users))
	for i := range users {
		response = append(response, types.NewUserResponse(&users[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

func (h *Handler) GetUser(ctx *gin.Context) {
	userID, err := utils.GetUserID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	user, err := h.users.Get(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewUserResponse(user))
}

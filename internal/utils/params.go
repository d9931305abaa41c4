package utils

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskforge/internal/apperr"
)

// GetIDParam parses a numeric path parameter. label names it in errors.
func GetIDParam(ctx *gin.Context, name, label string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, apperr.Invalid(fmt.Sprintf("%s ID not found", label))
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil || id == 0 {
		return 0, apperr.Invalid(fmt.Sprintf("Invalid %s ID", label))
	}

	return uint(id), nil
}

func GetProjectID(ctx *gin.Context) (uint, error) {
	return GetIDParam(ctx, "project_id", "Project")
}

func GetTaskID(ctx *gin.Context) (uint, error) {
	return GetIDParam(ctx, "task_id", "Task")
}

func GetMemberID(ctx *gin.Context) (uint, error) {
	return GetIDParam(ctx, "member_id", "Member")
}

func GetUserID(ctx *gin.Context) (uint, error) {
	return GetIDParam(ctx, "user_id", "User")
}

func GetNotificationID(ctx *gin.Context) (uint, error) {
	return GetIDParam(ctx, "notification_id", "Notification")
}

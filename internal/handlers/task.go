package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskforge/internal/apperr"
	"github.com/monocle-dev/taskforge/internal/services"
	"github.com/monocle-dev/taskforge/internal/utils"
)

// Title is checked by the service once membership is confirmed.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  *uint      `json:"assigned_to"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	AssignedTo  nullableID   `json:"assigned_to"`
	Priority    *string      `json:"priority"`
	Status      *string      `json:"status"`
	DueDate     nullableTime `json:"due_date"`
}

func (h *Handler) CreateTask(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	var body CreateTaskRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, err)
		return
	}

	task, err := h.tasks.Create(ctx.Request.Context(), userID, projectID, services.TaskInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		Priority:    body.Priority,
		AssigneeID:  body.AssignedTo,
		DueDate:     body.DueDate,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, task)
}

func (h *Handler) ListTasks(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	filter := services.TaskFilter{Status: ctx.Query("status")}

	if raw := ctx.Query("assigned_to"); raw != "" {
		assignee, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(ctx, apperr.Invalid("Invalid assigned_to filter"))
			return
		}
		id := uint(assignee)
		filter.AssigneeID = &id
	}

	tasks, err := h.tasks.List(ctx.Request.Context(), userID, projectID, filter)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, tasks)
}

func (h *Handler) UpdateTask(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	var body UpdateTaskRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, err)
		return
	}

	update := services.TaskUpdate{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		Priority:    body.Priority,
	}

	if body.DueDate.Set {
		update.DueDate = body.DueDate.Value
		update.ClearDueDate = body.DueDate.Value == nil
	}

	if body.AssignedTo.Set {
		assignee := body.AssignedTo.Value
		update.AssigneeID = &assignee
	}

	task, err := h.tasks.Update(ctx.Request.Context(), userID, taskID, update)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, task)
}

func (h *Handler) DeleteTask(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	taskID, err := utils.GetTaskID(ctx)

	if err != nil {
		respondError(ctx, err)
		return
	}

	if err := h.tasks.Delete(ctx.Request.Context(), userID, taskID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

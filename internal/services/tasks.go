package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/monocle-dev/taskforge/internal/access"
	"github.com/monocle-dev/taskforge/internal/apperr"
	"github.com/monocle-dev/taskforge/internal/models"
	"github.com/monocle-dev/taskforge/internal/realtime"
	"gorm.io/gorm"
)

type TaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  *uint
	DueDate     *time.Time
}

// TaskUpdate holds the fields to change; nil means untouched. An AssigneeID
// of zero clears the assignment. ClearDueDate removes the due date and wins
// over DueDate.
type TaskUpdate struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	AssigneeID   *uint
	DueDate      *time.Time
	ClearDueDate bool
}

type TaskFilter struct {
	Status     string
	AssigneeID *uint
}

type TaskService struct {
	db       *gorm.DB
	projects *ProjectService
	events   realtime.Broadcaster
	notifier *Notifier
	now      func() time.Time
}

func NewTaskService(db *gorm.DB, projects *ProjectService, events realtime.Broadcaster, notifier *Notifier) *TaskService {
	return &TaskService{
		db:       db,
		projects: projects,
		events:   events,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *TaskService) Create(ctx context.Context, callerID, projectID uint, in TaskInput) (*models.Task, error) {
	project, _, err := s.projects.Authorize(ctx, callerID, projectID, access.CanRead)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      models.StatusTodo,
		Priority:    models.PriorityMedium,
		ProjectID:   projectID,
		CreatorID:   callerID,
		DueDate:     in.DueDate,
	}

	if task.Title == "" {
		return nil, apperr.Invalid("Task title is required")
	}

	if in.Status != "" {
		status, ok := models.ParseStatus(in.Status)
		if !ok {
			return nil, apperr.Invalid("Invalid task status")
		}
		task.Status = status
	}

	if in.Priority != "" {
		priority, ok := models.ParsePriority(in.Priority)
		if !ok {
			return nil, apperr.Invalid("Priority must be low, medium or high")
		}
		task.Priority = priority
	}

	if in.AssigneeID != nil && *in.AssigneeID != 0 {
		if err := checkAssignee(project, *in.AssigneeID); err != nil {
			return nil, err
		}
		assignee := *in.AssigneeID
		task.AssigneeID = &assignee
	}

	task.ApplyCompletion(s.now())

	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, apperr.Internal("Failed to create task", err)
	}

	created, err := s.load(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	if created.AssigneeID != nil && *created.AssigneeID != callerID {
		s.notifier.TaskAssigned(ctx, created)
	}

	s.events.Emit(projectID, realtime.EventTaskCreated, created)

	return created, nil
}

func (s *TaskService) List(ctx context.Context, callerID, projectID uint, filter TaskFilter) ([]models.Task, error) {
	if _, _, err := s.projects.Authorize(ctx, callerID, projectID, access.CanRead); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("project_id = ?", projectID)

	if filter.Status != "" {
		status, ok := models.ParseStatus(filter.Status)
		if !ok {
			return nil, apperr.Invalid("Invalid task status")
		}
		q = q.Where("status = ?", status)
	}

	if filter.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *filter.AssigneeID)
	}

	tasks := []models.Task{}

	if err := q.Preload("Assignee").Preload("Creator").Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, apperr.Internal("Failed to retrieve tasks", err)
	}

	return tasks, nil
}

func (s *TaskService) Update(ctx context.Context, callerID, taskID uint, in TaskUpdate) (*models.Task, error) {
	task, err := s.find(ctx, taskID)
	if err != nil {
		return nil, err
	}

	project, _, err := s.projects.Authorize(ctx, callerID, task.ProjectID, access.CanRead)
	if err != nil {
		return nil, err
	}

	previousAssignee := task.AssigneeID
	previousDue := task.DueDate

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperr.Invalid("Task title cannot be empty")
		}
		task.Title = title
	}

	if in.Description != nil {
		task.Description = *in.Description
	}

	if in.Status != nil {
		status, ok := models.ParseStatus(*in.Status)
		if !ok {
			return nil, apperr.Invalid("Invalid task status")
		}
		task.Status = status
	}

	if in.Priority != nil {
		priority, ok := models.ParsePriority(*in.Priority)
		if !ok {
			return nil, apperr.Invalid("Priority must be low, medium or high")
		}
		task.Priority = priority
	}

	if in.AssigneeID != nil {
		if *in.AssigneeID == 0 {
			task.AssigneeID = nil
		} else {
			if err := checkAssignee(project, *in.AssigneeID); err != nil {
				return nil, err
			}
			assignee := *in.AssigneeID
			task.AssigneeID = &assignee
		}
	}

	if in.ClearDueDate {
		task.DueDate = nil
	} else if in.DueDate != nil {
		task.DueDate = in.DueDate
	}

	task.ApplyCompletion(s.now())

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		if sameTime(previousDue, task.DueDate) {
			return nil
		}
		// a moved due date re-arms its reminders
		return tx.Where("task_id = ? AND type IN ?", task.ID, models.ReminderTypes).
			Delete(&models.Notification{}).Error
	})

	if err != nil {
		return nil, apperr.Internal("Failed to update task", err)
	}

	updated, err := s.load(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	if reassigned(previousAssignee, updated.AssigneeID) && *updated.AssigneeID != callerID {
		s.notifier.TaskAssigned(ctx, updated)
	}

	s.events.Emit(updated.ProjectID, realtime.EventTaskUpdated, updated)

	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, callerID, taskID uint) error {
	task, err := s.find(ctx, taskID)
	if err != nil {
		return err
	}

	isCreator := task.CreatorID == callerID

	_, _, err = s.projects.Authorize(ctx, callerID, task.ProjectID, func(r access.Role) bool {
		return access.CanDeleteTask(r, isCreator)
	})
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, task.ID).Error
	})

	if err != nil {
		return apperr.Internal("Failed to delete task", err)
	}

	s.events.Emit(task.ProjectID, realtime.EventTaskDeleted, task.ID)

	return nil
}

func (s *TaskService) find(ctx context.Context, taskID uint) (*models.Task, error) {
	var task models.Task

	if err := s.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrTaskNotFound
		}
		return nil, apperr.Internal("Failed to retrieve task", err)
	}

	return &task, nil
}

func (s *TaskService) load(ctx context.Context, taskID uint) (*models.Task, error) {
	var task models.Task

	if err := s.db.WithContext(ctx).Preload("Assignee").Preload("Creator").First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrTaskNotFound
		}
		return nil, apperr.Internal("Failed to retrieve task", err)
	}

	return &task, nil
}

func checkAssignee(project *models.Project, userID uint) error {
	if !access.CanRead(access.RoleOf(userID, project)) {
		return apperr.Invalid("Assignee must be a project member")
	}
	return nil
}

func reassigned(before, after *uint) bool {
	if after == nil {
		return false
	}
	return before == nil || *before != *after
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

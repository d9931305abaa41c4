package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/monocle-dev/taskforge/internal/apperr"
	"github.com/monocle-dev/taskforge/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Notifier records per-user notifications. Failures to record are logged and
// never fail the request that triggered them.
type Notifier struct {
	db *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db}
}

func (n *Notifier) TaskAssigned(ctx context.Context, task *models.Task) {
	if task.AssigneeID == nil {
		return
	}

	taskID := task.ID
	n.record(ctx, models.Notification{
		UserID:    *task.AssigneeID,
		ProjectID: task.ProjectID,
		TaskID:    &taskID,
		Type:      models.NotificationTaskAssigned,
		Message:   fmt.Sprintf("You were assigned to %q", task.Title),
	})
}

func (n *Notifier) ProjectInvited(ctx context.Context, project *models.Project, userID, actorID uint) {
	if userID == actorID {
		return
	}

	n.record(ctx, models.Notification{
		UserID:    userID,
		ProjectID: project.ID,
		Type:      models.NotificationProjectInvited,
		Message:   fmt.Sprintf("You were added to project %q", project.Name),
	})
}

// Remind records a due-date reminder of the given kind unless the current
// assignee already has one for the task. It reports whether a notification
// was created.
func (n *Notifier) Remind(ctx context.Context, task models.Task, kind string) (bool, error) {
	if task.AssigneeID == nil {
		return false, nil
	}

	var count int64

	err := n.db.WithContext(ctx).Model(&models.Notification{}).
		Where("task_id = ? AND user_id = ? AND type = ?", task.ID, *task.AssigneeID, kind).
		Count(&count).Error

	if err != nil {
		return false, err
	}

	if count > 0 {
		return false, nil
	}

	message := fmt.Sprintf("%q is due soon", task.Title)
	if kind == models.NotificationTaskOverdue {
		message = fmt.Sprintf("%q is overdue", task.Title)
	}

	taskID := task.ID
	note := models.Notification{
		UserID:    *task.AssigneeID,
		ProjectID: task.ProjectID,
		TaskID:    &taskID,
		Type:      kind,
		Message:   message,
	}

	if err := n.db.WithContext(ctx).Create(&note).Error; err != nil {
		return false, err
	}

	return true, nil
}

func (n *Notifier) List(ctx context.Context, userID uint, unreadOnly bool) ([]models.Notification, error) {
	q := n.db.WithContext(ctx).Where("user_id = ?", userID)

	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}

	notifications := []models.Notification{}

	if err := q.Order("created_at DESC, id DESC").Find(&notifications).Error; err != nil {
		return nil, apperr.Internal("Failed to retrieve notifications", err)
	}

	return notifications, nil
}

func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	var note models.Notification

	err := n.db.WithContext(ctx).Where("id = ? AND user_id = ?", notificationID, userID).First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Notification not found")
		}
		return nil, apperr.Internal("Failed to retrieve notification", err)
	}

	if note.ReadAt == nil {
		now := time.Now()
		note.ReadAt = &now

		if err := n.db.WithContext(ctx).Model(&note).Update("read_at", now).Error; err != nil {
			return nil, apperr.Internal("Failed to update notification", err)
		}
	}

	return &note, nil
}

func (n *Notifier) record(ctx context.Context, note models.Notification) {
	if err := n.db.WithContext(ctx).Create(&note).Error; err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": note.UserID,
			"type":    note.Type,
		}).Error("Failed to record notification")
	}
}

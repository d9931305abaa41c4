package models

import "time"

const (
	NotificationTaskAssigned   = "task_assigned"
	NotificationProjectInvited = "project_invited"
	NotificationTaskDueSoon    = "task_due_soon"
	NotificationTaskOverdue    = "task_overdue"
)

// ReminderTypes are the due-date notifications the scheduler creates.
var ReminderTypes = []string{NotificationTaskDueSoon, NotificationTaskOverdue}

type Notification struct {
	BaseModel

	UserID    uint       `gorm:"not null;index" json:"user_id"`
	ProjectID uint       `gorm:"not null;index" json:"project_id"`
	TaskID    *uint      `gorm:"index" json:"task_id"`
	Type      string     `gorm:"not null" json:"type"`
	Message   string     `json:"message"`
	ReadAt    *time.Time `json:"read_at"`
}

package models

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusDone       TaskStatus = "done"
)

// Older clients send pending/in-progress/completed.
var statusAliases = map[string]TaskStatus{
	"todo":        StatusTodo,
	"pending":     StatusTodo,
	"in_progress": StatusInProgress,
	"in-progress": StatusInProgress,
	"review":      StatusReview,
	"done":        StatusDone,
	"completed":   StatusDone,
}

// ParseStatus maps any accepted spelling onto the canonical status.
func ParseStatus(raw string) (TaskStatus, bool) {
	status, ok := statusAliases[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(raw string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	}
	return "", false
}

type Task struct {
	BaseModel

	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `gorm:"not null;index" json:"status"`
	Priority    Priority   `gorm:"not null" json:"priority"`
	ProjectID   uint       `gorm:"not null;index" json:"project_id"`
	AssigneeID  *uint      `gorm:"index" json:"assigned_to"`
	CreatorID   uint       `gorm:"not null" json:"created_by"`
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`

	// Relationships
	Assignee *User `gorm:"foreignKey:AssigneeID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"assignee,omitempty"`
	Creator  *User `gorm:"foreignKey:CreatorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"creator,omitempty"`
}

// ApplyCompletion keeps CompletedAt consistent with Status. It must run on
// every write, not only when the status field changed.
func (t *Task) ApplyCompletion(now time.Time) {
	if t.Status != StatusDone {
		t.CompletedAt = nil
		return
	}
	if t.CompletedAt == nil {
		stamp := now
		t.CompletedAt = &stamp
	}
}

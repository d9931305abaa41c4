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

type ProjectInput struct {
	Name        string
	Description string
	EndDate     *time.Time
}

// ProjectUpdate holds the fields to change; nil means untouched.
// ClearEndDate removes the end date and wins over EndDate.
type ProjectUpdate struct {
	Name         *string
	Description  *string
	EndDate      *time.Time
	ClearEndDate bool
}

type ProjectService struct {
	db       *gorm.DB
	events   realtime.Broadcaster
	notifier *Notifier
}

func NewProjectService(db *gorm.DB, events realtime.Broadcaster, notifier *Notifier) *ProjectService {
	return &ProjectService{db: db, events: events, notifier: notifier}
}

// Authorize loads the project with its memberships and checks the caller's
// role against allow. Nothing is returned on denial.
func (s *ProjectService) Authorize(ctx context.Context, callerID, projectID uint, allow func(access.Role) bool) (*models.Project, access.Role, error) {
	var project models.Project

	if err := s.db.WithContext(ctx).Preload("Memberships").First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, access.RoleNone, apperr.ErrProjectNotFound
		}
		return nil, access.RoleNone, apperr.Internal("Failed to retrieve project", err)
	}

	role := access.RoleOf(callerID, &project)

	if !allow(role) {
		return nil, role, apperr.ErrAccessDenied
	}

	return &project, role, nil
}

// CanJoin reports whether the caller may join the project's realtime room.
func (s *ProjectService) CanJoin(ctx context.Context, callerID, projectID uint) error {
	_, _, err := s.Authorize(ctx, callerID, projectID, access.CanRead)
	return err
}

func (s *ProjectService) Create(ctx context.Context, callerID uint, in ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)

	if name == "" {
		return nil, apperr.Invalid("Project name is required")
	}

	project := models.Project{
		Name:        name,
		Description: in.Description,
		OwnerID:     callerID,
		EndDate:     in.EndDate,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		return tx.Create(&models.ProjectMembership{
			UserID:    callerID,
			ProjectID: project.ID,
			Role:      models.MemberRoleAdmin,
		}).Error
	})

	if err != nil {
		return nil, apperr.Internal("Failed to create project", err)
	}

	return s.populated(ctx, project.ID)
}

// List returns the projects the caller owns or belongs to, newest first.
func (s *ProjectService) List(ctx context.Context, callerID uint) ([]models.Project, error) {
	memberOf := s.db.Model(&models.ProjectMembership{}).Select("project_id").Where("user_id = ?", callerID)

	projects := []models.Project{}

	err := preloadProject(s.db.WithContext(ctx)).
		Where("owner_id = ? OR id IN (?)", callerID, memberOf).
		Order("created_at DESC, id DESC").
		Find(&projects).Error

	if err != nil {
		return nil, apperr.Internal("Failed to retrieve projects", err)
	}

	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, callerID, projectID uint) (*models.Project, error) {
	if _, _, err := s.Authorize(ctx, callerID, projectID, access.CanRead); err != nil {
		return nil, err
	}

	return s.populated(ctx, projectID)
}

func (s *ProjectService) Update(ctx context.Context, callerID, projectID uint, in ProjectUpdate) (*models.Project, error) {
	if _, _, err := s.Authorize(ctx, callerID, projectID, access.CanManage); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Invalid("Project name cannot be empty")
		}
		updates["name"] = name
	}

	if in.Description != nil {
		updates["description"] = *in.Description
	}

	if in.ClearEndDate {
		updates["end_date"] = nil
	} else if in.EndDate != nil {
		updates["end_date"] = *in.EndDate
	}

	if len(updates) == 0 {
		return nil, apperr.Invalid("No valid fields to update")
	}

	if err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Updates(updates).Error; err != nil {
		return nil, apperr.Internal("Failed to update project", err)
	}

	project, err := s.populated(ctx, projectID)
	if err != nil {
		return nil, err
	}

	s.events.Emit(projectID, realtime.EventProjectUpdated, project)

	return project, nil
}

// Delete removes the project with its tasks, memberships and notifications
// in one transaction.
func (s *ProjectService) Delete(ctx context.Context, callerID, projectID uint) error {
	if _, _, err := s.Authorize(ctx, callerID, projectID, access.CanDelete); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMembership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, projectID).Error
	})

	if err != nil {
		return apperr.Internal("Failed to delete project", err)
	}

	return nil
}

func (s *ProjectService) AddMember(ctx context.Context, callerID, projectID uint, email, role string) (*models.Project, error) {
	project, _, err := s.Authorize(ctx, callerID, projectID, access.CanManage)
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = models.MemberRoleMember
	}

	if !models.ValidMemberRole(role) {
		return nil, apperr.Invalid("Role must be admin or member")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" {
		return nil, apperr.Invalid("Email is required")
	}

	var user models.User

	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Internal("Failed to retrieve user", err)
	}

	if _, exists := project.Membership(user.ID); exists || user.ID == project.OwnerID {
		return nil, apperr.Invalid("User is already a member")
	}

	membership := models.ProjectMembership{
		UserID:    user.ID,
		ProjectID: projectID,
		Role:      role,
	}

	if err := s.db.WithContext(ctx).Create(&membership).Error; err != nil {
		if s.isMember(ctx, err, projectID, user.ID) {
			return nil, apperr.Invalid("User is already a member")
		}
		return nil, apperr.Internal("Failed to add member", err)
	}

	s.notifier.ProjectInvited(ctx, project, user.ID, callerID)

	updated, err := s.populated(ctx, projectID)
	if err != nil {
		return nil, err
	}

	s.events.Emit(projectID, realtime.EventProjectUpdated, updated)

	return updated, nil
}

func (s *ProjectService) RemoveMember(ctx context.Context, callerID, projectID, memberID uint) (*models.Project, error) {
	project, _, err := s.Authorize(ctx, callerID, projectID, access.CanManage)
	if err != nil {
		return nil, err
	}

	if memberID == project.OwnerID {
		return nil, apperr.Invalid("The project owner cannot be removed")
	}

	res := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, memberID).
		Delete(&models.ProjectMembership{})

	if res.Error != nil {
		return nil, apperr.Internal("Failed to remove member", res.Error)
	}

	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Member not found")
	}

	updated, err := s.populated(ctx, projectID)
	if err != nil {
		return nil, err
	}

	s.events.Emit(projectID, realtime.EventProjectUpdated, updated)

	return updated, nil
}

// isMember reports whether a failed membership insert lost a race with a
// concurrent add of the same user.
func (s *ProjectService) isMember(ctx context.Context, err error, projectID, userID uint) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var count int64
	if s.db.WithContext(ctx).Model(&models.ProjectMembership{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error != nil {
		return false
	}

	return count > 0
}

func (s *ProjectService) populated(ctx context.Context, projectID uint) (*models.Project, error) {
	var project models.Project

	if err := preloadProject(s.db.WithContext(ctx)).First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrProjectNotFound
		}
		return nil, apperr.Internal("Failed to retrieve project", err)
	}

	return &project, nil
}

func preloadProject(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Owner").
		Preload("Memberships", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Memberships.User").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC, id DESC") }).
		Preload("Tasks.Assignee").
		Preload("Tasks.Creator")
}

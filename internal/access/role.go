// Package access decides what a caller may do inside a project.
//
// Roles are ordered: owner > admin > member > none. The owner is privileged
// whether or not the membership list mentions them.
package access

import "github.com/monocle-dev/taskforge/internal/models"

type Role int

const (
	RoleNone Role = iota
	RoleMember
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleMember:
		return "member"
	default:
		return "none"
	}
}

// RoleOf classifies userID against project. Memberships must be loaded.
func RoleOf(userID uint, project *models.Project) Role {
	if project == nil || userID == 0 {
		return RoleNone
	}
	if project.OwnerID == userID {
		return RoleOwner
	}
	m, ok := project.Membership(userID)
	if !ok {
		return RoleNone
	}
	if m.Role == models.MemberRoleAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// CanRead covers viewing the project and its tasks, joining its room, and
// creating or updating tasks.
func CanRead(r Role) bool { return r >= RoleMember }

// CanManage covers editing project fields and adding or removing members.
func CanManage(r Role) bool { return r >= RoleAdmin }

// CanDelete is owner only.
func CanDelete(r Role) bool { return r == RoleOwner }

// CanDeleteTask requires membership and, for plain members, authorship.
func CanDeleteTask(r Role, isCreator bool) bool {
	return CanRead(r) && (isCreator || CanManage(r))
}

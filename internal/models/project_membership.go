package models

const (
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

type ProjectMembership struct {
	BaseModel

	UserID    uint   `gorm:"not null;uniqueIndex:idx_user_project" json:"user_id"`
	ProjectID uint   `gorm:"not null;uniqueIndex:idx_user_project;index" json:"project_id"`
	Role      string `gorm:"not null" json:"role"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func ValidMemberRole(role string) bool {
	return role == MemberRoleAdmin || role == MemberRoleMember
}

package models

import "time"

type Project struct {
	BaseModel

	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	EndDate     *time.Time `json:"end_date"`

	// Relationships
	Owner       *User               `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"owner,omitempty"`
	Memberships []ProjectMembership `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"members"`
	Tasks       []Task              `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"tasks"`
}

// Membership returns the caller's entry in the member list, if any.
func (p *Project) Membership(userID uint) (ProjectMembership, bool) {
	for _, m := range p.Memberships {
		if m.UserID == userID {
			return m, true
		}
	}
	return ProjectMembership{}, false
}

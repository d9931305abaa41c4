package types

import "github.com/monocle-dev/taskforge/internal/models"

const (
	ContextUserKey = "user"
	TokenCookie    = "token"
)

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}

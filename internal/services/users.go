package services

import (
	"context"
	"errors"
	"strings"

	"github.com/monocle-dev/taskforge/internal/apperr"
	"github.com/monocle-dev/taskforge/internal/auth"
	"github.com/monocle-dev/taskforge/internal/models"
	"gorm.io/gorm"
)

const searchLimit = 20

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type ProfileUpdate struct {
	Name            string
	Email           string
	CurrentPassword string
	NewPassword     string
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)

	if name == "" || email == "" {
		return nil, apperr.Invalid("Name and email are required")
	}

	taken, err := s.emailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Invalid("Email already exists")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("Failed to hash password", err)
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if s.isEmailConflict(ctx, err, email, 0) {
			return nil, apperr.Invalid("Email already exists")
		}
		return nil, apperr.Internal("Failed to create user", err)
	}

	return &user, nil
}

// Authenticate returns the user for valid credentials. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Invalid("Invalid email or password")
		}
		return nil, apperr.Internal("Failed to retrieve user", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Invalid("Invalid email or password")
	}

	return &user, nil
}

func (s *UserService) Get(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User

	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Internal("Failed to retrieve user", err)
	}

	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
	}

	if in.Email != "" {
		email := normalizeEmail(in.Email)

		if email != user.Email {
			taken, err := s.emailTaken(ctx, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apperr.Invalid("Email already exists")
			}
		}

		updates["email"] = email
	}

	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return nil, apperr.Invalid("Current password is required to change password")
		}

		if !auth.CheckPassword(user.PasswordHash, in.CurrentPassword) {
			return nil, apperr.Invalid("Current password is incorrect")
		}

		hash, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			return nil, apperr.Internal("Failed to hash password", err)
		}

		updates["password_hash"] = hash
	}

	if len(updates) == 0 {
		return nil, apperr.Invalid("No valid fields to update")
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		if email, ok := updates["email"].(string); ok && s.isEmailConflict(ctx, err, email, user.ID) {
			return nil, apperr.Invalid("Email already exists")
		}
		return nil, apperr.Internal("Failed to update user", err)
	}

	return s.Get(ctx, user.ID)
}

// Search matches name or email case-insensitively.
func (s *UserService) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	if query == "" {
		return nil, apperr.Invalid("Search query is required")
	}

	pattern := "%" + query + "%"
	users := []models.User{}

	err := s.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).
		Order("name").
		Limit(searchLimit).
		Find(&users).Error

	if err != nil {
		return nil, apperr.Internal("Failed to search users", err)
	}

	return users, nil
}

func (s *UserService) emailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND id <> ?", email, exceptID).
		Count(&count).Error

	if err != nil {
		return false, apperr.Internal("Failed to check email", err)
	}

	return count > 0, nil
}

// isEmailConflict reports whether a failed write lost a race with another
// account taking the same email.
func (s *UserService) isEmailConflict(ctx context.Context, err error, email string, exceptID uint) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	taken, checkErr := s.emailTaken(ctx, email, exceptID)
	return checkErr == nil && taken
}

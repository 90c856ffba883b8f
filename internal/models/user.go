package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the coarse permission level of a user
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleVolunteer Role = "VOLUNTEER"
	RoleClient    Role = "CLIENT"
)

// User is a person known to the system. A user owns at most one client
// profile and at most one volunteer profile.
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Email     *string   `gorm:"uniqueIndex;size:255" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Role      Role      `gorm:"size:20;not null;default:CLIENT" json:"role"`
	GoogleID  *string   `gorm:"uniqueIndex;size:128" json:"-"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// BeforeCreate assigns the primary key
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleClient
	}
	return nil
}

// EmailAddress returns the email or "" when the user has none
func (u *User) EmailAddress() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// IsAdmin reports whether the user holds the ADMIN role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserRequest is the body accepted when creating or editing a person
type UserRequest struct {
	Name  string `json:"name" binding:"required,max=120"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
}

// UserUpdateRequest carries optional user fields; empty values are left untouched
type UserUpdateRequest struct {
	Name  string `json:"name" binding:"omitempty,max=120"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
}

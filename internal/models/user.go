package models

import (
	"time"
)

type UserRole string
type Role = UserRole // Alias for compatibility

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether r is one of the roles the service recognises.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User is the local directory copy of an identity-provider account. It is
// upserted on each authenticated request and read to resolve display names.
type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"fullName" gorm:"size:100"`
	Email    string   `json:"email" gorm:"size:255;index"`
	Role     UserRole `json:"role" gorm:"size:20;not null;default:student"`

	LastSeenAt *time.Time `json:"lastSeenAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName falls back to the id when the profile carries no name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.ID
}

func (User) TableName() string {
	return "users"
}

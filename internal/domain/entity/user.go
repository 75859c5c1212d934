package entity

import (
	"strings"
	"time"
)

// User is a member of the company directory
type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	CredentialHash string    `json:"-"`
	ManagerID      *int64    `json:"manager_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsDirectSubordinateOf reports whether managerID is this user's direct manager
func (u *User) IsDirectSubordinateOf(managerID int64) bool {
	return u.ManagerID != nil && *u.ManagerID == managerID
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Registration is a self-service sign-up request
type Registration struct {
	Name       string `json:"name" validate:"notblank,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Credential string `json:"password" validate:"notblank"`
	Role       Role   `json:"role" validate:"role"`
}

// Validate checks required fields and formats
func (r Registration) Validate() error {
	return validateStruct(r)
}

// Package domain contains the user aggregate and its repository contract.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserType classifies an account.
type UserType string

const (
	UserTypeStandard UserType = "standard"
	UserTypeAdmin    UserType = "admin"
	UserTypeService  UserType = "service"
)

// IsValid reports whether the user type is one of the known values.
func (t UserType) IsValid() bool {
	switch t {
	case UserTypeStandard, UserTypeAdmin, UserTypeService:
		return true
	}
	return false
}

// User is an account aggregate.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	UserType  UserType
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a user with a fresh identity. Field validation happens in
// the command handlers so faults carry request-level context.
func NewUser(id uuid.UUID, username, email string, userType UserType) *User {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if userType == "" {
		userType = UserTypeStandard
	}
	now := time.Now().UTC()
	return &User{
		ID:        id,
		Username:  username,
		Email:     email,
		UserType:  userType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps the update timestamp.
func (u *User) Touch() {
	u.UpdatedAt = time.Now().UTC()
}

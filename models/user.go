package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleWriter UserRole = "writer"
	RoleEditor UserRole = "editor"
	RoleAdmin  UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleWriter, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	Username  string         `json:"username" gorm:"uniqueIndex;not null"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"not null"`
	Role      UserRole       `json:"role" gorm:"default:'writer'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Identity is the request-scoped view of a user handed to the core by the
// auth middleware. The zero value is the anonymous user.
type Identity struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	// Session tells anonymous callers apart. Unused once authenticated.
	Session string `json:"-"`
}

func Anonymous() Identity { return Identity{} }

func (i Identity) IsAuthenticated() bool { return i.UserID != 0 }

// LeaseHolder is the value stored in a write lease for this identity.
func (i Identity) LeaseHolder() string {
	if !i.IsAuthenticated() {
		if i.Session != "" {
			return "anonymous:" + i.Session
		}
		return "anonymous"
	}
	return fmt.Sprintf("user:%d", i.UserID)
}

// Ref returns a nullable foreign key for the identity.
func (i Identity) Ref() *uint {
	if !i.IsAuthenticated() {
		return nil
	}
	id := i.UserID
	return &id
}

func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrInvalidRole   = errors.New("invalid user role")
	ErrMalformedUser = errors.New("malformed user record")
)

// Role is the single role a user holds in the timetable.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return true
	}
	return false
}

// User represents a student, lecturer or admin. Users are managed by the identity
// service; this package only reads them.
type User struct {
	ID                string // UUID
	Email             string
	FullName          string
	Role              Role
	EnrolledCourseIDs []string
	CreatedAt         time.Time
}

// Validate rejects records missing required fields.
func (u *User) Validate() error {
	if u.ID == "" || u.Email == "" || !u.Role.Valid() {
		return ErrMalformedUser
	}
	return nil
}

// UserFilter defines filter options for listing users.
type UserFilter struct {
	Role     Role
	Page     int
	PageSize int
}

package http

import (
	"time"

	"github.com/nekogravitycat/timetable-backend/internal/pkg/request"
	"github.com/nekogravitycat/timetable-backend/internal/user"
)

// ListUsersRequest defines query parameters for listing users.
type ListUsersRequest struct {
	request.ListParams
	Role string `form:"role" binding:"omitempty,oneof=student lecturer admin"`
}

// UserResponse is the shape of user data returned in API responses.
type UserResponse struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	Role              string    `json:"role"`
	EnrolledCourseIDs []string  `json:"enrolled_course_ids"`
	CreatedAt         time.Time `json:"created_at"`
}

// UserTag is a brief representation of a user.
type UserTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewUserResponse converts domain user.User to UserResponse used by the API.
func NewUserResponse(u *user.User) UserResponse {
	courses := make([]string, 0, len(u.EnrolledCourseIDs))
	courses = append(courses, u.EnrolledCourseIDs...)

	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		FullName:          u.FullName,
		Role:              string(u.Role),
		EnrolledCourseIDs: courses,
		CreatedAt:         u.CreatedAt,
	}
}

// NewUserTag returns nil for a user that could not be resolved.
func NewUserTag(u *user.User) *UserTag {
	if u == nil {
		return nil
	}
	return &UserTag{ID: u.ID, Name: u.FullName}
}

// MeResponse returns the current user info.
type MeResponse struct {
	User UserResponse `json:"user"`
}

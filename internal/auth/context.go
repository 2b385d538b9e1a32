package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/timetable-backend/internal/user"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// GetUserRole returns the authenticated user's role or empty role.
func GetUserRole(c *gin.Context) user.Role {
	if v, ok := c.Get(userRoleKey); ok {
		if r, ok := v.(user.Role); ok {
			return r
		}
	}
	return ""
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/timetable-backend/internal/user"
)

type stubUsers struct {
	u   *user.User
	err error
}

func (s stubUsers) GetByID(context.Context, string) (*user.User, error) {
	return s.u, s.err
}

func (s stubUsers) List(context.Context, user.UserFilter) ([]*user.User, int, error) {
	return nil, 0, nil
}

func serve(t *testing.T, users user.Service, header string, mw ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := NewJWTManager("secret", time.Minute)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthRequired(m, users)}, mw...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "role": GetUserRole(c)})
	})
	r.GET("/", handlers...)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header == "token" {
		token, err := m.GenerateAccessToken("user-1", "ada@uni.edu")
		require.NoError(t, err)
		header = "Bearer " + token
	}
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	lecturer := &user.User{ID: "user-1", Email: "ada@uni.edu", Role: user.RoleLecturer}

	tests := []struct {
		name   string
		users  user.Service
		header string
		want   int
	}{
		{"resolves role", stubUsers{u: lecturer}, "token", http.StatusOK},
		{"missing header", stubUsers{u: lecturer}, "", http.StatusUnauthorized},
		{"wrong scheme", stubUsers{u: lecturer}, "Basic abc", http.StatusUnauthorized},
		{"bad token", stubUsers{u: lecturer}, "Bearer nope", http.StatusUnauthorized},
		{"unknown user", stubUsers{err: user.ErrNotFound}, "token", http.StatusUnauthorized},
		{"directory outage", stubUsers{err: errors.New("connection refused")}, "token", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, tt.users, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("outage body hides cause", func(t *testing.T) {
		w := serve(t, stubUsers{err: errors.New("connection refused")}, "token")
		assert.NotContains(t, w.Body.String(), "connection refused")
		assert.Contains(t, w.Body.String(), "internal server error")
	})
}

func TestRequireRole(t *testing.T) {
	student := &user.User{ID: "user-1", Role: user.RoleStudent}
	admin := &user.User{ID: "user-1", Role: user.RoleAdmin}

	w := serve(t, stubUsers{u: student}, "token", RequireRole(user.RoleAdmin, user.RoleLecturer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(t, stubUsers{u: admin}, "token", RequireRole(user.RoleAdmin, user.RoleLecturer))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
}

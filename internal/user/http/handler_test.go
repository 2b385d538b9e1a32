package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/timetable-backend/internal/app"
	"github.com/nekogravitycat/timetable-backend/internal/memstore"
	"github.com/nekogravitycat/timetable-backend/internal/pkg/response"
	userHttp "github.com/nekogravitycat/timetable-backend/internal/user/http"
)

const (
	adminID = "00000000-0000-0000-0000-0000000000a1"
	adaID   = "00000000-0000-0000-0000-0000000000b1"
	samID   = "00000000-0000-0000-0000-0000000000c1"
)

func newContainer(t *testing.T) *app.Container {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New(time.Second)
	require.NoError(t, store.Apply(memstore.Seed{
		Users: []memstore.SeedUser{
			{ID: adminID, Email: "admin@uni.edu", FullName: "Admin", Role: "admin"},
			{ID: adaID, Email: "ada@uni.edu", FullName: "Ada Lovelace", Role: "lecturer"},
			{ID: samID, Email: "sam@uni.edu", FullName: "Sam Student", Role: "student", Courses: []string{"csc-201"}},
		},
	}))
	return app.NewContainer(app.Config{Store: store, JWTSecret: "test-secret", JWTTTL: time.Minute})
}

func get(t *testing.T, c *app.Container, userID, path string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := c.JWTManager.GenerateAccessToken(userID, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	c.Router.ServeHTTP(w, req)
	return w
}

func TestMe(t *testing.T) {
	c := newContainer(t)

	w := get(t, c, samID, "/v1/me")
	require.Equal(t, http.StatusOK, w.Code)

	var resp userHttp.MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, samID, resp.User.ID)
	assert.Equal(t, "student", resp.User.Role)
	assert.Equal(t, []string{"csc-201"}, resp.User.EnrolledCourseIDs)
}

func TestListUsers(t *testing.T) {
	c := newContainer(t)

	w := get(t, c, adaID, "/v1/users")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = get(t, c, adminID, "/v1/users?role=lecturer")
	require.Equal(t, http.StatusOK, w.Code)
	var page response.PageResponse[userHttp.UserResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, adaID, page.Items[0].ID)

	w = get(t, c, adminID, "/v1/users?role=janitor")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUser(t *testing.T) {
	c := newContainer(t)

	w := get(t, c, adminID, "/v1/users/"+adaID)
	require.Equal(t, http.StatusOK, w.Code)

	w = get(t, c, adminID, "/v1/users/00000000-0000-0000-0000-0000000000ff")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, c, adminID, "/v1/users/ada")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

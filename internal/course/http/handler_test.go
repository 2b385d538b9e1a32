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
	courseHttp "github.com/nekogravitycat/timetable-backend/internal/course/http"
	"github.com/nekogravitycat/timetable-backend/internal/memstore"
)

const (
	adaID   = "00000000-0000-0000-0000-0000000000b1"
	alanID  = "00000000-0000-0000-0000-0000000000b2"
	samID   = "00000000-0000-0000-0000-0000000000c1"
	csc201  = "00000000-0000-0000-0000-0000000000d1"
	csc301  = "00000000-0000-0000-0000-0000000000d2"
	mth201  = "00000000-0000-0000-0000-0000000000d3"
	missing = "00000000-0000-0000-0000-0000000000ff"
)

func newContainer(t *testing.T) *app.Container {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New(time.Second)
	require.NoError(t, store.Apply(memstore.Seed{
		Users: []memstore.SeedUser{
			{ID: adaID, Email: "ada@uni.edu", FullName: "Ada Lovelace", Role: "lecturer"},
			{ID: alanID, Email: "alan@uni.edu", FullName: "Alan Turing", Role: "lecturer"},
			{ID: samID, Email: "sam@uni.edu", FullName: "Sam Student", Role: "student"},
		},
		Courses: []memstore.SeedCourse{
			{ID: csc301, Code: "CSC 301", Title: "Algorithms", LecturerID: alanID, Level: 300},
			{ID: csc201, Code: "CSC 201", Title: "Data Structures", LecturerID: adaID, Level: 200},
			{ID: mth201, Code: "MTH 201", Title: "Linear Algebra", LecturerID: alanID, Level: 200},
		},
	}))
	return app.NewContainer(app.Config{Store: store, JWTSecret: "test-secret", JWTTTL: time.Minute})
}

func get(t *testing.T, c *app.Container, path string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authed {
		token, err := c.JWTManager.GenerateAccessToken(samID, "")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.Router.ServeHTTP(w, req)
	return w
}

func codes(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp courseHttp.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, len(resp.Items), resp.Total)
	out := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, item.Code)
	}
	return out
}

func TestListCourses(t *testing.T) {
	c := newContainer(t)

	t.Run("requires auth", func(t *testing.T) {
		w := get(t, c, "/v1/courses", false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("all ordered by code", func(t *testing.T) {
		assert.Equal(t, []string{"CSC 201", "CSC 301", "MTH 201"}, codes(t, get(t, c, "/v1/courses", true)))
	})

	t.Run("by level", func(t *testing.T) {
		assert.Equal(t, []string{"CSC 201", "MTH 201"}, codes(t, get(t, c, "/v1/courses?level=200", true)))
	})

	t.Run("by lecturer and level", func(t *testing.T) {
		assert.Equal(t, []string{"MTH 201"}, codes(t, get(t, c, "/v1/courses?level=200&lecturer_id="+alanID, true)))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, codes(t, get(t, c, "/v1/courses?level=400", true)))
	})

	t.Run("invalid query", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, c, "/v1/courses?level=abc", true).Code)
		assert.Equal(t, http.StatusBadRequest, get(t, c, "/v1/courses?lecturer_id=ada", true).Code)
	})
}

func TestGetCourse(t *testing.T) {
	c := newContainer(t)

	w := get(t, c, "/v1/courses/"+csc201, true)
	require.Equal(t, http.StatusOK, w.Code)
	var resp courseHttp.CourseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Data Structures", resp.Title)
	assert.Equal(t, adaID, resp.LecturerID)

	assert.Equal(t, http.StatusNotFound, get(t, c, "/v1/courses/"+missing, true).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, c, "/v1/courses/csc-201", true).Code)
}

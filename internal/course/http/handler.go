package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/timetable-backend/internal/course"
	"github.com/nekogravitycat/timetable-backend/internal/pkg/request"
	"github.com/nekogravitycat/timetable-backend/internal/pkg/response"
)

type Handler struct {
	service course.Service
}

func NewHandler(service course.Service) *Handler {
	return &Handler{service: service}
}

// List returns the course catalog, optionally filtered by level and lecturer.
func (h *Handler) List(c *gin.Context) {
	var req ListCoursesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	courses, err := h.service.List(c.Request.Context(), course.Filter{
		Level:      req.Level,
		LecturerID: req.LecturerID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]CourseResponse, len(courses))
	for i, co := range courses {
		items[i] = NewCourseResponse(co)
	}
	c.JSON(http.StatusOK, ListResponse{Items: items, Total: len(items)})
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	co, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			return
		}
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewCourseResponse(co))
}

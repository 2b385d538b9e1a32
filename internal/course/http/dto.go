package http

import "github.com/nekogravitycat/timetable-backend/internal/course"

// ListCoursesRequest defines query parameters for listing courses.
type ListCoursesRequest struct {
	Level      int    `form:"level" binding:"omitempty,min=100,max=900"`
	LecturerID string `form:"lecturer_id" binding:"omitempty,uuid"`
}

type CourseResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	CreditUnits int    `json:"credit_units"`
	LecturerID  string `json:"lecturer_id"`
	Level       int    `json:"level"`
}

func NewCourseResponse(c *course.Course) CourseResponse {
	return CourseResponse{
		ID:          c.ID,
		Code:        c.Code,
		Title:       c.Title,
		CreditUnits: c.CreditUnits,
		LecturerID:  c.LecturerID,
		Level:       c.Level,
	}
}

type ListResponse struct {
	Items []CourseResponse `json:"items"`
	Total int              `json:"total"`
}

package course

import "errors"

var (
	ErrNotFound        = errors.New("course not found")
	ErrMalformedCourse = errors.New("malformed course record")
)

// Course is a taught unit, e.g. "CSC 201 Data Structures".
type Course struct {
	ID          string
	Code        string
	Title       string
	CreditUnits int
	LecturerID  string
	Level       int // 100, 200, ...
}

// Validate rejects records missing required fields.
func (c *Course) Validate() error {
	if c.ID == "" || c.Code == "" || c.Title == "" {
		return ErrMalformedCourse
	}
	return nil
}

// Filter defines parameters for listing courses.
type Filter struct {
	LecturerID string
	Level      int
}

package http

import (
	"strings"
	"time"

	"github.com/nekogravitycat/timetable-backend/internal/booking"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
	userHttp "github.com/nekogravitycat/timetable-backend/internal/user/http"
)

// CreateBookingBody is the payload of POST /bookings. A lecturer may omit
// lecturer_id to book themselves.
type CreateBookingBody struct {
	CourseID   string `json:"course_id" binding:"required"`
	VenueID    string `json:"venue_id" binding:"required"`
	LecturerID string `json:"lecturer_id"`
	DayOfWeek  string `json:"day_of_week" binding:"required"`
	StartTime  string `json:"start_time" binding:"required"`
	EndTime    string `json:"end_time" binding:"required"`
}

// RescheduleBookingBody is the payload of PATCH /bookings/:id.
// Day, start and end are always sent together; venue_id is optional.
type RescheduleBookingBody struct {
	DayOfWeek string  `json:"day_of_week" binding:"required"`
	StartTime string  `json:"start_time" binding:"required"`
	EndTime   string  `json:"end_time" binding:"required"`
	VenueID   *string `json:"venue_id"`
}

// CheckBody is the payload of POST /bookings/check.
type CheckBody struct {
	DayOfWeek        string `json:"day_of_week" binding:"required"`
	StartTime        string `json:"start_time" binding:"required"`
	EndTime          string `json:"end_time" binding:"required"`
	VenueID          string `json:"venue_id"`
	LecturerID       string `json:"lecturer_id"`
	ExcludeBookingID string `json:"exclude_booking_id"`
}

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	LecturerID string `form:"lecturer_id"`
	VenueID    string `form:"venue_id"`
	CourseID   string `form:"course_id"`
	CourseIDIn string `form:"course_id_in"` // comma separated
	Day        string `form:"day"`
}

// Filter converts the query into a booking filter.
func (r *ListBookingsRequest) Filter() (booking.Filter, error) {
	f := booking.Filter{
		LecturerID: r.LecturerID,
		VenueID:    r.VenueID,
		CourseID:   r.CourseID,
	}
	if r.CourseIDIn != "" {
		f.CourseIDIn = []string{}
		for _, id := range strings.Split(r.CourseIDIn, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.CourseIDIn = append(f.CourseIDIn, id)
			}
		}
	}
	if r.Day != "" {
		day, err := timeslot.ParseWeekday(r.Day)
		if err != nil {
			return booking.Filter{}, err
		}
		f.DayOfWeek = day
	}
	return f, nil
}

// parseSlot parses the wire day and "HH:MM" times. The range itself is checked by the service.
func parseSlot(day, start, end string) (timeslot.Weekday, timeslot.Clock, timeslot.Clock, error) {
	d, err := timeslot.ParseWeekday(day)
	if err != nil {
		return 0, 0, 0, err
	}
	s, err := timeslot.ParseClock(start)
	if err != nil {
		return 0, 0, 0, err
	}
	e, err := timeslot.ParseClock(end)
	if err != nil {
		return 0, 0, 0, err
	}
	return d, s, e, nil
}

type BookingResponse struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	VenueID    string    `json:"venue_id"`
	LecturerID string    `json:"lecturer_id"`
	DayOfWeek  string    `json:"day_of_week"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:         b.ID,
		CourseID:   b.CourseID,
		VenueID:    b.VenueID,
		LecturerID: b.LecturerID,
		DayOfWeek:  b.DayOfWeek.String(),
		StartTime:  b.Interval.Start.String(),
		EndTime:    b.Interval.End.String(),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// CourseTag is a brief representation of a course.
type CourseTag struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// VenueTag is a brief representation of a venue.
type VenueTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DetailsResponse is a booking with its references resolved. A reference that
// no longer exists is null.
type DetailsResponse struct {
	BookingResponse
	Course   *CourseTag        `json:"course"`
	Venue    *VenueTag         `json:"venue"`
	Lecturer *userHttp.UserTag `json:"lecturer"`
}

func NewDetailsResponse(d *booking.Details) DetailsResponse {
	resp := DetailsResponse{
		BookingResponse: NewBookingResponse(d.Booking),
		Lecturer:        userHttp.NewUserTag(d.Lecturer),
	}
	if d.Course != nil {
		resp.Course = &CourseTag{ID: d.Course.ID, Code: d.Course.Code, Title: d.Course.Title}
	}
	if d.Venue != nil {
		resp.Venue = &VenueTag{ID: d.Venue.ID, Name: d.Venue.Name}
	}
	return resp
}

func NewDetailsResponses(details []*booking.Details) []DetailsResponse {
	items := make([]DetailsResponse, len(details))
	for i, d := range details {
		items[i] = NewDetailsResponse(d)
	}
	return items
}

// ConflictResponse describes one clash.
type ConflictResponse struct {
	Resource     string `json:"resource"`
	ResourceID   string `json:"resource_id"`
	BookingID    string `json:"booking_id"`
	DayOfWeek    string `json:"day_of_week"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	OverlapStart string `json:"overlap_start"`
	OverlapEnd   string `json:"overlap_end"`
}

func NewConflictResponses(conflicts []booking.Conflict) []ConflictResponse {
	items := make([]ConflictResponse, len(conflicts))
	for i, c := range conflicts {
		items[i] = ConflictResponse{
			Resource:     string(c.Resource),
			ResourceID:   c.ResourceID,
			BookingID:    c.Booking.ID,
			DayOfWeek:    c.Booking.DayOfWeek.String(),
			StartTime:    c.Booking.Interval.Start.String(),
			EndTime:      c.Booking.Interval.End.String(),
			OverlapStart: c.Overlap.Start.String(),
			OverlapEnd:   c.Overlap.End.String(),
		}
	}
	return items
}

// ConflictErrorResponse is the 409 body.
type ConflictErrorResponse struct {
	Error     string             `json:"error"`
	Conflicts []ConflictResponse `json:"conflicts"`
}

// CheckResponse is the body of POST /bookings/check.
type CheckResponse struct {
	Available bool               `json:"available"`
	Conflicts []ConflictResponse `json:"conflicts"`
}

type SummaryResponse struct {
	DayOfWeek    string `json:"day_of_week"`
	ClassesToday int    `json:"classes_today"`
	VenuesInUse  int    `json:"venues_in_use"`
}

// ListResponse wraps list endpoints.
type ListResponse struct {
	Items []DetailsResponse `json:"items"`
	Total int               `json:"total"`
}

func NewListResponse(details []*booking.Details) ListResponse {
	return ListResponse{Items: NewDetailsResponses(details), Total: len(details)}
}

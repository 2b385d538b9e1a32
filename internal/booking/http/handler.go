package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/timetable-backend/internal/auth"
	"github.com/nekogravitycat/timetable-backend/internal/booking"
	"github.com/nekogravitycat/timetable-backend/internal/pkg/request"
	"github.com/nekogravitycat/timetable-backend/internal/pkg/response"
	"github.com/nekogravitycat/timetable-backend/internal/timeslot"
	"github.com/nekogravitycat/timetable-backend/internal/user"
)

type Handler struct {
	service booking.Service
	query   booking.Query
}

func NewHandler(service booking.Service, query booking.Query) *Handler {
	return &Handler{
		service: service,
		query:   query,
	}
}

func actorOf(c *gin.Context) booking.Actor {
	return booking.Actor{UserID: auth.GetUserID(c), Role: auth.GetUserRole(c)}
}

// writeError reports conflicts with their details and everything else through response.Error.
func writeError(c *gin.Context, err error) {
	var conflictErr *booking.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ConflictErrorResponse{
			Error:     booking.ErrTimeConflict.Message,
			Conflicts: NewConflictResponses(conflictErr.Conflicts),
		})
		return
	}
	response.Error(c, err)
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	actor := actorOf(c)
	if body.LecturerID == "" && actor.Role == user.RoleLecturer {
		body.LecturerID = actor.UserID
	}

	day, start, end, err := parseSlot(body.DayOfWeek, body.StartTime, body.EndTime)
	if err != nil {
		response.Error(c, err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), actor, booking.CreateRequest{
		CourseID:   body.CourseID,
		VenueID:    body.VenueID,
		LecturerID: body.LecturerID,
		DayOfWeek:  day,
		StartTime:  start,
		EndTime:    end,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	d, err := h.query.Get(c.Request.Context(), actorOf(c), req.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewDetailsResponse(d))
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	filter, err := req.Filter()
	if err != nil {
		response.Error(c, err)
		return
	}

	details, err := h.query.Search(c.Request.Context(), actorOf(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewListResponse(details))
}

// Mine returns the caller's timetable: everything for admins, taught classes for
// lecturers and enrolled classes for students.
func (h *Handler) Mine(c *gin.Context) {
	details, err := h.query.ForActor(c.Request.Context(), actorOf(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewListResponse(details))
}

func (h *Handler) Today(c *gin.Context) {
	details, err := h.query.Today(c.Request.Context(), actorOf(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewListResponse(details))
}

func (h *Handler) Summary(c *gin.Context) {
	s, err := h.query.Summary(c.Request.Context(), actorOf(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		DayOfWeek:    s.DayOfWeek.String(),
		ClassesToday: s.ClassesToday,
		VenuesInUse:  s.VenuesInUse,
	})
}

func (h *Handler) Check(c *gin.Context) {
	var body CheckBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	day, start, end, err := parseSlot(body.DayOfWeek, body.StartTime, body.EndTime)
	if err != nil {
		response.Error(c, err)
		return
	}
	interval, err := timeslot.NewInterval(start, end)
	if err != nil {
		response.Error(c, err)
		return
	}

	conflicts, err := h.service.CheckAvailability(c.Request.Context(), booking.Candidate{
		DayOfWeek:        day,
		Interval:         interval,
		VenueID:          body.VenueID,
		LecturerID:       body.LecturerID,
		ExcludeBookingID: body.ExcludeBookingID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckResponse{
		Available: len(conflicts) == 0,
		Conflicts: NewConflictResponses(conflicts),
	})
}

func (h *Handler) Reschedule(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body RescheduleBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	day, start, end, err := parseSlot(body.DayOfWeek, body.StartTime, body.EndTime)
	if err != nil {
		response.Error(c, err)
		return
	}

	b, err := h.service.Reschedule(c.Request.Context(), actorOf(c), req.ID, booking.RescheduleRequest{
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		VenueID:   body.VenueID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Delete(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), actorOf(c), req.ID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

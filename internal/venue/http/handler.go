package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/timetable-backend/internal/pkg/request"
	"github.com/nekogravitycat/timetable-backend/internal/pkg/response"
	"github.com/nekogravitycat/timetable-backend/internal/venue"
)

type Handler struct {
	service venue.Service
}

func NewHandler(service venue.Service) *Handler {
	return &Handler{service: service}
}

// List returns all venues ordered by name, optionally of one type.
func (h *Handler) List(c *gin.Context) {
	var req ListVenuesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	venues, err := h.service.List(c.Request.Context(), venue.Filter{Type: venue.Type(req.Type)})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]VenueResponse, len(venues))
	for i, v := range venues {
		items[i] = NewVenueResponse(v)
	}
	c.JSON(http.StatusOK, ListResponse{Items: items, Total: len(items)})
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	v, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, venue.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "venue not found"})
			return
		}
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewVenueResponse(v))
}

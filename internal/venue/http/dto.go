package http

import "github.com/nekogravitycat/timetable-backend/internal/venue"

// ListVenuesRequest defines query parameters for listing venues.
type ListVenuesRequest struct {
	Type string `form:"type" binding:"omitempty,oneof=lab lecture_hall seminar_room"`
}

type VenueResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Location string `json:"location"`
	Type     string `json:"type"`
}

func NewVenueResponse(v *venue.Venue) VenueResponse {
	return VenueResponse{
		ID:       v.ID,
		Name:     v.Name,
		Capacity: v.Capacity,
		Location: v.Location,
		Type:     string(v.Type),
	}
}

type ListResponse struct {
	Items []VenueResponse `json:"items"`
	Total int             `json:"total"`
}

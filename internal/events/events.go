package events

import (
	"context"
	"time"
)

// Routing keys for booking lifecycle events.
const (
	BookingCreated     = "booking.created"
	BookingRescheduled = "booking.rescheduled"
	BookingDeleted     = "booking.deleted"
)

// BookingEvent is the payload published after a booking change is committed.
type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	CourseID   string    `json:"course_id"`
	VenueID    string    `json:"venue_id"`
	LecturerID string    `json:"lecturer_id"`
	DayOfWeek  string    `json:"day_of_week"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PartitionKey groups every event about one booking.
func (e BookingEvent) PartitionKey() string {
	return e.BookingID
}

// Keyed is implemented by events that carry their own partition key.
type Keyed interface {
	PartitionKey() string
}

// Publisher delivers events to a broker. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
	Close() error
}

type noopPublisher struct{}

// NewNoopPublisher returns a Publisher that drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
func (noopPublisher) Close() error                               { return nil }

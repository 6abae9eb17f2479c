package outbox

import (
	"encoding/json"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

// Booking lifecycle topics. The Kafka topic name equals EventType.
const (
	EventBookingCreated = "roombook.booking.created.v1"
	EventBookingUpdated = "roombook.booking.updated.v1"
	EventBookingDeleted = "roombook.booking.deleted.v1"

	aggregateBooking = "booking"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type bookingPayload struct {
	BookingID  string      `json:"booking_id"`
	Date       string      `json:"date"`
	Room       string      `json:"room"`
	Instructor string      `json:"instructor"`
	StartTime  model.Clock `json:"start_time"`
	EndTime    model.Clock `json:"end_time"`
	Name       string      `json:"name,omitempty"`
	Topic      string      `json:"topic,omitempty"`
	People     int         `json:"people,omitempty"`
	Forced     bool        `json:"forced,omitempty"`
}

// BookingEvent builds the envelope for a booking change. Deletions carry only the
// slot so consumers can release it; forced marks an admin removal.
func BookingEvent(eventType string, b model.Booking, forced bool) (Event, error) {
	p := bookingPayload{
		BookingID:  b.ID,
		Date:       b.Date,
		Room:       b.Room,
		Instructor: b.Instructor,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Forced:     forced,
	}
	if eventType != EventBookingDeleted {
		p.Name = b.Name
		p.Topic = b.Topic
		p.People = b.People
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateBooking,
		AggregateID:   b.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}

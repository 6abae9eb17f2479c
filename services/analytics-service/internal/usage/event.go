package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Booking lifecycle topics published by booking-service.
const (
	TopicBookingCreated = "roombook.booking.created.v1"
	TopicBookingUpdated = "roombook.booking.updated.v1"
	TopicBookingDeleted = "roombook.booking.deleted.v1"
)

// Topics lists every topic the projection consumes.
var Topics = []string{TopicBookingCreated, TopicBookingUpdated, TopicBookingDeleted}

// ErrMalformed marks an event that can never be applied. Consumers drop it.
var ErrMalformed = errors.New("malformed booking event")

// Kind is the lifecycle step an event reports.
type Kind int

const (
	Created Kind = iota
	Updated
	Deleted
)

// Change is one booking event reduced to what the projection stores.
type Change struct {
	Kind        Kind
	BookingID   string
	Date        string
	Room        string
	Instructor  string
	StartMinute int
	EndMinute   int
	People      int
	Forced      bool
}

// Minutes is the booked length of the slot.
func (c Change) Minutes() int {
	return c.EndMinute - c.StartMinute
}

type payload struct {
	BookingID  string `json:"booking_id"`
	Date       string `json:"date"`
	Room       string `json:"room"`
	Instructor string `json:"instructor"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	People     int    `json:"people"`
	Forced     bool   `json:"forced"`
}

// Decode turns a raw event into a Change. eventType is the header value or topic.
func Decode(eventType string, value []byte) (Change, error) {
	var kind Kind
	switch eventType {
	case TopicBookingCreated:
		kind = Created
	case TopicBookingUpdated:
		kind = Updated
	case TopicBookingDeleted:
		kind = Deleted
	default:
		return Change{}, fmt.Errorf("%w: unknown event type %q", ErrMalformed, eventType)
	}

	var p payload
	if err := json.Unmarshal(value, &p); err != nil {
		return Change{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.BookingID == "" {
		return Change{}, fmt.Errorf("%w: missing booking_id", ErrMalformed)
	}
	c := Change{Kind: kind, BookingID: p.BookingID, Forced: p.Forced}
	if kind == Deleted {
		return c, nil
	}

	if p.Room == "" {
		return Change{}, fmt.Errorf("%w: missing room", ErrMalformed)
	}
	if _, err := time.Parse(time.DateOnly, p.Date); err != nil {
		return Change{}, fmt.Errorf("%w: invalid date %q", ErrMalformed, p.Date)
	}
	start, err := parseClock(p.StartTime)
	if err != nil {
		return Change{}, err
	}
	end, err := parseClock(p.EndTime)
	if err != nil {
		return Change{}, err
	}
	if start >= end {
		return Change{}, fmt.Errorf("%w: start %s not before end %s", ErrMalformed, p.StartTime, p.EndTime)
	}
	c.Date = p.Date
	c.Room = p.Room
	c.Instructor = p.Instructor
	c.StartMinute = start
	c.EndMinute = end
	c.People = p.People
	return c, nil
}

// parseClock reads "HH:MM" as minutes since midnight; "24:00" is the day end.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: invalid time %q", ErrMalformed, s)
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 0 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: invalid time %q", ErrMalformed, s)
	}
	total := h*60 + m
	if total > 24*60 {
		return 0, fmt.Errorf("%w: invalid time %q", ErrMalformed, s)
	}
	return total, nil
}

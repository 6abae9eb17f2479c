package model

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Booking is a reserved [StartTime, EndTime) range of one room on one date.
// Password holds the credential on input and is always blank on output.
type Booking struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	Room       string    `json:"room"`
	Instructor string    `json:"instructor"`
	StartTime  Clock     `json:"startTime"`
	EndTime    Clock     `json:"endTime"`
	Name       string    `json:"name"`
	Course     string    `json:"course"`
	Topic      string    `json:"topic"`
	People     int       `json:"people"`
	Password   string    `json:"password,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// BookingInput is a booking as submitted for create or update: no id, no createdAt.
type BookingInput struct {
	Date       string `json:"date"`
	Room       string `json:"room"`
	Instructor string `json:"instructor"`
	StartTime  Clock  `json:"startTime"`
	EndTime    Clock  `json:"endTime"`
	Name       string `json:"name"`
	Course     string `json:"course"`
	Topic      string `json:"topic"`
	People     int    `json:"people"`
	Password   string `json:"password,omitempty"`
}

// RoomBlock shows that another instructor holds the room, without the booking's details.
type RoomBlock struct {
	Room       string `json:"room"`
	StartTime  Clock  `json:"startTime"`
	EndTime    Clock  `json:"endTime"`
	Instructor string `json:"instructor"`
}

// DaySnapshot is everything the grid needs for one date and instructor.
type DaySnapshot struct {
	Bookings   []Booking   `json:"bookings"`
	RoomBlocks []RoomBlock `json:"roomBlocks"`
}

const MinPasswordLength = 4

// Normalize trims free-text fields and defaults People to 1.
func (in BookingInput) Normalize() BookingInput {
	in.Date = strings.TrimSpace(in.Date)
	in.Room = strings.TrimSpace(in.Room)
	in.Instructor = strings.TrimSpace(in.Instructor)
	in.Name = strings.TrimSpace(in.Name)
	in.Course = strings.TrimSpace(in.Course)
	in.Topic = strings.TrimSpace(in.Topic)
	if in.People <= 0 {
		in.People = 1
	}
	return in
}

// CheckFields reports missing or malformed fields. The password is only
// required when requirePassword is set (create), since updates carry it separately.
func (in BookingInput) CheckFields(requirePassword bool) error {
	switch {
	case in.Date == "":
		return Validationf("date is required")
	case in.Room == "":
		return Validationf("room is required")
	case in.Name == "" || in.Course == "" || in.Topic == "":
		return Validationf("name, course and topic are required")
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		return Validationf("invalid date %q", in.Date)
	}
	if !in.StartTime.Valid() || !in.EndTime.Valid() || in.StartTime >= in.EndTime {
		return Validationf("start time must be before end time")
	}
	if requirePassword {
		if in.Password == "" {
			return Validationf("password is required")
		}
		if len([]rune(in.Password)) < MinPasswordLength {
			return Validationf("password must be at least %d characters", MinPasswordLength)
		}
	}
	return nil
}

// Apply builds the stored booking from b with in's editable fields.
func (b Booking) Apply(in BookingInput) Booking {
	b.Date = in.Date
	b.Room = in.Room
	b.Instructor = in.Instructor
	b.StartTime = in.StartTime
	b.EndTime = in.EndTime
	b.Name = in.Name
	b.Course = in.Course
	b.Topic = in.Topic
	b.People = in.People
	return b
}

// Public strips the credential.
func (b Booking) Public() Booking {
	b.Password = ""
	return b
}

// Block projects b into the detail-free view other instructors see.
func (b Booking) Block() RoomBlock {
	return RoomBlock{Room: b.Room, StartTime: b.StartTime, EndTime: b.EndTime, Instructor: b.Instructor}
}

// Matches is the admin search predicate over name, topic, room and instructor.
func (b Booking) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{b.Name, b.Topic, b.Room, b.Instructor} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
